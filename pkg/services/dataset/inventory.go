package dataset

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/de-tools/vision-audit/pkg/models/domain"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tif":  true,
	".tiff": true,
}

// Files the walker never treats as annotations even though they share an
// annotation extension.
var reservedNames = map[string]bool{
	"classes.txt":      true,
	"data.yaml":        true,
	"data.yml":         true,
	"readme.txt":       true,
	"requirements.txt": true,
}

type FileRef struct {
	Path string // absolute
	Rel  string // slash-separated, relative to the dataset root
	Stem string // base name without extension, lowered
	Ext  string // lowered, with dot
	Size int64
}

// Inventory is the result of one walk over the dataset root: every image
// and annotation file, the resolved annotation format, and the class
// names when a class index was found alongside the data.
type Inventory struct {
	Dataset     domain.Dataset
	Format      domain.AnnotationFormat
	Images      []FileRef
	Annotations []FileRef
	ClassNames  []string

	coco *cocoFile

	matchedImages      int
	orphanAnnotations  int
	annotationRecords  int
	structureScore     float64
	namingScore        float64
}

// BuildInventory walks the dataset root once, classifies files, resolves
// the annotation format and matches images to their annotations by stem.
func BuildInventory(ctx context.Context, ds domain.Dataset) (*Inventory, error) {
	info, err := os.Stat(ds.Path)
	if err != nil {
		return nil, &domain.FatalDatasetError{Reason: fmt.Sprintf("dataset path %s is not readable: %v", ds.Path, err)}
	}
	if !info.IsDir() {
		return nil, &domain.FatalDatasetError{Reason: fmt.Sprintf("dataset path %s is not a directory", ds.Path)}
	}

	inv := &Inventory{Dataset: ds, Format: ds.Format}

	var yamlFiles, jsonFiles, xmlFiles, txtFiles []FileRef
	err = filepath.WalkDir(ds.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != ds.Path {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		rel, relErr := filepath.Rel(ds.Path, path)
		if relErr != nil {
			return relErr
		}
		ext := strings.ToLower(filepath.Ext(name))
		ref := FileRef{
			Path: path,
			Rel:  filepath.ToSlash(rel),
			Stem: strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name))),
			Ext:  ext,
		}
		if fi, infoErr := d.Info(); infoErr == nil {
			ref.Size = fi.Size()
		}

		switch {
		case imageExtensions[ext]:
			inv.Images = append(inv.Images, ref)
		case ext == ".yaml" || ext == ".yml":
			yamlFiles = append(yamlFiles, ref)
		case ext == ".json":
			jsonFiles = append(jsonFiles, ref)
		case ext == ".xml":
			xmlFiles = append(xmlFiles, ref)
		case ext == ".txt":
			if !reservedNames[strings.ToLower(name)] {
				txtFiles = append(txtFiles, ref)
			}
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.FatalDatasetError{Reason: fmt.Sprintf("walking %s: %v", ds.Path, err)}
	}

	sort.Slice(inv.Images, func(i, j int) bool { return inv.Images[i].Rel < inv.Images[j].Rel })
	sort.Slice(txtFiles, func(i, j int) bool { return txtFiles[i].Rel < txtFiles[j].Rel })
	sort.Slice(xmlFiles, func(i, j int) bool { return xmlFiles[i].Rel < xmlFiles[j].Rel })
	sort.Slice(jsonFiles, func(i, j int) bool { return jsonFiles[i].Rel < jsonFiles[j].Rel })

	inv.resolveFormat(yamlFiles, jsonFiles, xmlFiles, txtFiles)
	inv.loadClassNames(yamlFiles)
	inv.match(jsonFiles, txtFiles, xmlFiles)
	inv.assessStructure()
	inv.assessNaming()
	return inv, nil
}

func (inv *Inventory) resolveFormat(yamlFiles, jsonFiles, xmlFiles, txtFiles []FileRef) {
	if inv.Format != domain.FormatAuto && inv.Format != "" {
		return
	}
	hasDataYAML := false
	for _, f := range yamlFiles {
		base := strings.ToLower(filepath.Base(f.Path))
		if base == "data.yaml" || base == "data.yml" {
			hasDataYAML = true
		}
	}
	switch {
	case hasDataYAML && len(txtFiles) > 0:
		inv.Format = domain.FormatYOLO
	case len(jsonFiles) > 0 && cocoCandidate(jsonFiles) != "":
		inv.Format = domain.FormatCOCO
	case len(xmlFiles) > 0:
		inv.Format = domain.FormatVOC
	case len(txtFiles) > 0:
		inv.Format = domain.FormatYOLO
	default:
		inv.Format = domain.FormatAuto
	}
}

// cocoCandidate picks the json file most likely to be the annotation
// index: a conventional name first, otherwise the only json present.
func cocoCandidate(jsonFiles []FileRef) string {
	for _, f := range jsonFiles {
		base := strings.ToLower(filepath.Base(f.Path))
		if strings.Contains(base, "annotation") || strings.Contains(base, "instances") || strings.Contains(base, "coco") {
			return f.Path
		}
	}
	if len(jsonFiles) == 1 {
		return jsonFiles[0].Path
	}
	return ""
}

func (inv *Inventory) loadClassNames(yamlFiles []FileRef) {
	for _, f := range yamlFiles {
		base := strings.ToLower(filepath.Base(f.Path))
		if base != "data.yaml" && base != "data.yml" {
			continue
		}
		if names := parseDataYAML(f.Path); len(names) > 0 {
			inv.ClassNames = names
			return
		}
	}

	classFile := inv.Dataset.ClassFile
	if classFile == "" {
		candidate := filepath.Join(inv.Dataset.Path, "classes.txt")
		if _, err := os.Stat(candidate); err == nil {
			classFile = candidate
		}
	}
	if classFile != "" {
		if names := parseClassFile(classFile); len(names) > 0 {
			inv.ClassNames = names
		}
	}
}

func parseDataYAML(path string) []string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var doc struct {
		Names any `yaml:"names"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	switch v := doc.Names.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, n := range v {
			out = append(out, cast.ToString(n))
		}
		return out
	case map[string]any:
		ids := make([]int, 0, len(v))
		byID := map[int]string{}
		for k, n := range v {
			id := cast.ToInt(k)
			ids = append(ids, id)
			byID[id] = cast.ToString(n)
		}
		sort.Ints(ids)
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			out = append(out, byID[id])
		}
		return out
	}
	return nil
}

func parseClassFile(path string) []string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// match pairs images with their annotations. YOLO and VOC pair by file
// stem; COCO pairs by the file_name entries of the annotation index.
func (inv *Inventory) match(jsonFiles, txtFiles, xmlFiles []FileRef) {
	switch inv.Format {
	case domain.FormatCOCO:
		path := cocoCandidate(jsonFiles)
		if path == "" {
			return
		}
		coco, err := parseCOCO(path)
		if err != nil {
			return
		}
		inv.coco = coco
		for _, f := range jsonFiles {
			if f.Path == path {
				inv.Annotations = append(inv.Annotations, f)
			}
		}
		inv.annotationRecords = len(coco.Annotations)

		onDisk := map[string]bool{}
		for _, img := range inv.Images {
			onDisk[strings.ToLower(path2base(img.Rel))] = true
		}
		annotated := map[int64]bool{}
		for _, a := range coco.Annotations {
			annotated[a.ImageID] = true
		}
		referenced := map[string]bool{}
		for _, img := range coco.Images {
			base := strings.ToLower(path2base(img.FileName))
			if annotated[img.ID] {
				referenced[base] = true
			}
			if !onDisk[base] {
				inv.orphanAnnotations++
			}
		}
		for _, img := range inv.Images {
			if referenced[strings.ToLower(path2base(img.Rel))] {
				inv.matchedImages++
			}
		}
	default:
		labels := txtFiles
		if inv.Format == domain.FormatVOC {
			labels = xmlFiles
		}
		inv.Annotations = labels
		inv.annotationRecords = len(labels)

		stems := map[string]bool{}
		for _, img := range inv.Images {
			stems[img.Stem] = true
		}
		labelStems := map[string]bool{}
		for _, l := range labels {
			labelStems[l.Stem] = true
			if !stems[l.Stem] {
				inv.orphanAnnotations++
			}
		}
		for _, img := range inv.Images {
			if labelStems[img.Stem] {
				inv.matchedImages++
			}
		}
	}
}

func path2base(p string) string {
	return filepath.Base(filepath.FromSlash(p))
}

// assessStructure scores the directory layout. A split layout or an
// images plus labels layout is the expected shape; everything in one
// flat directory still works but scores low.
func (inv *Inventory) assessStructure() {
	if len(inv.Images) == 0 {
		inv.structureScore = 0
		return
	}
	topDirs := map[string]bool{}
	flat := 0
	for _, img := range inv.Images {
		parts := strings.Split(img.Rel, "/")
		if len(parts) == 1 {
			flat++
			continue
		}
		topDirs[strings.ToLower(parts[0])] = true
	}

	hasSplit := false
	for _, split := range []string{"train", "val", "valid", "test"} {
		if topDirs[split] {
			hasSplit = true
			break
		}
	}
	hasImagesDir := topDirs["images"] || topDirs["imgs"]

	labelDirs := map[string]bool{}
	for _, a := range inv.Annotations {
		parts := strings.Split(a.Rel, "/")
		if len(parts) > 1 {
			labelDirs[strings.ToLower(parts[0])] = true
		}
	}
	hasLabelsDir := labelDirs["labels"] || labelDirs["annotations"]

	switch {
	case hasSplit, hasImagesDir && hasLabelsDir:
		inv.structureScore = 100
	case hasImagesDir || hasLabelsDir:
		inv.structureScore = 70
	case flat == len(inv.Images):
		inv.structureScore = 40
	default:
		inv.structureScore = 55
	}
}

var (
	numericStem = regexp.MustCompile(`^\d+$`)
	snakeStem   = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)+$`)
	kebabStem   = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)+$`)
	plainStem   = regexp.MustCompile(`^[a-z0-9]+$`)
)

func stemPattern(stem string) string {
	switch {
	case numericStem.MatchString(stem):
		return "numeric"
	case snakeStem.MatchString(stem):
		return "snake"
	case kebabStem.MatchString(stem):
		return "kebab"
	case plainStem.MatchString(stem):
		return "plain"
	default:
		return "mixed"
	}
}

// assessNaming rewards a dataset whose files follow one naming pattern.
func (inv *Inventory) assessNaming() {
	if len(inv.Images) == 0 {
		inv.namingScore = 0
		return
	}
	var t Tally
	for _, img := range inv.Images {
		t.Add(stemPattern(img.Stem))
	}
	inv.namingScore = t.ModalShare() * 100
}

// CheckMinimums enforces the floor under which no score is meaningful.
func (inv *Inventory) CheckMinimums(req domain.MinimumRequirements) error {
	if len(inv.Images) < req.MinImages {
		return &domain.FatalDatasetError{
			Reason: fmt.Sprintf("dataset holds %d images, at least %d required", len(inv.Images), req.MinImages),
		}
	}
	if inv.annotationRecords < req.MinAnnotations {
		return &domain.FatalDatasetError{
			Reason: fmt.Sprintf("dataset holds %d annotations, at least %d required", inv.annotationRecords, req.MinAnnotations),
		}
	}
	return nil
}

// CompletenessMetrics derives the completeness dimension inputs from the
// walk. Ratios guard against empty denominators so an empty dataset
// reports zeros instead of NaN.
func (inv *Inventory) CompletenessMetrics() domain.RawMetricSet {
	set := domain.NewRawMetricSet(domain.DimCompleteness)
	imageCount := len(inv.Images)
	set.Values[domain.MetricImageCount] = float64(imageCount)
	set.Values[domain.MetricAnnotationCount] = float64(inv.annotationRecords)

	coverage := 0.0
	if imageCount > 0 {
		coverage = float64(inv.matchedImages) / float64(imageCount)
	}
	set.Values[domain.MetricCoverageScore] = coverage * 100
	set.Values[domain.MetricMissingAnnotationRatio] = 1 - coverage

	refTotal := inv.annotationRecords
	if inv.Format != domain.FormatCOCO {
		refTotal = len(inv.Annotations)
	} else if inv.coco != nil {
		refTotal = len(inv.coco.Images)
	}
	missingImages := 0.0
	if refTotal > 0 {
		missingImages = float64(inv.orphanAnnotations) / float64(refTotal)
	}
	set.Values[domain.MetricMissingImageRatio] = missingImages

	set.Values[domain.MetricStructureScore] = inv.structureScore
	set.Values[domain.MetricNamingScore] = inv.namingScore
	return set
}
