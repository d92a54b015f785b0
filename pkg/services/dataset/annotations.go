package dataset

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/de-tools/vision-audit/pkg/models/domain"
)

type cocoFile struct {
	Images      []cocoImage      `json:"images"`
	Annotations []cocoAnnotation `json:"annotations"`
	Categories  []cocoCategory   `json:"categories"`
}

type cocoImage struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type cocoAnnotation struct {
	ImageID    int64     `json:"image_id"`
	CategoryID int64     `json:"category_id"`
	Bbox       []float64 `json:"bbox"`
}

type cocoCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func parseCOCO(path string) (*cocoFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var doc cocoFile
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &doc, nil
}

type vocDoc struct {
	Size struct {
		Width  int `xml:"width"`
		Height int `xml:"height"`
	} `xml:"size"`
	Objects []struct {
		Name   string `xml:"name"`
		Bndbox struct {
			Xmin float64 `xml:"xmin"`
			Ymin float64 `xml:"ymin"`
			Xmax float64 `xml:"xmax"`
			Ymax float64 `xml:"ymax"`
		} `xml:"bndbox"`
	} `xml:"object"`
}

// annotationStats aggregates label findings across the dataset. All
// counters merge associatively so the per-file pass can run chunked.
type annotationStats struct {
	classes        Tally
	totalBoxes     int64
	invalidBoxes   int64
	unitsSeen      int64
	unitsWithValid int64
}

func (s *annotationStats) merge(b annotationStats) {
	s.classes.Merge(b.classes)
	s.totalBoxes += b.totalBoxes
	s.invalidBoxes += b.invalidBoxes
	s.unitsSeen += b.unitsSeen
	s.unitsWithValid += b.unitsWithValid
}

// analyzeAnnotations parses every annotation in the inventory and folds
// the findings into one stats block. YOLO and VOC parse one file per
// image on a chunked worker pool; COCO iterates its single index.
func analyzeAnnotations(ctx context.Context, inv *Inventory, settings Settings) (*annotationStats, error) {
	switch inv.Format {
	case domain.FormatCOCO:
		return analyzeCOCO(ctx, inv)
	case domain.FormatVOC, domain.FormatYOLO:
		files := sampled(inv.Annotations, settings)
		partials, err := parallelFold(ctx, files, settings.Workers, func(ctx context.Context, chunk []FileRef) (annotationStats, error) {
			var part annotationStats
			for _, f := range chunk {
				if err := ctx.Err(); err != nil {
					return part, err
				}
				if inv.Format == domain.FormatVOC {
					foldVOCFile(&part, f)
				} else {
					foldYOLOFile(&part, f, inv.ClassNames)
				}
			}
			return part, nil
		})
		if err != nil {
			return nil, err
		}
		total := &annotationStats{}
		for _, p := range partials {
			total.merge(p)
		}
		return total, nil
	default:
		return nil, &domain.DataUnavailableError{
			Dimension: domain.DimAnnotationQuality,
			Reason:    "no annotation format could be resolved for the dataset",
		}
	}
}

func analyzeCOCO(ctx context.Context, inv *Inventory) (*annotationStats, error) {
	if inv.coco == nil {
		return nil, &domain.DataUnavailableError{
			Dimension: domain.DimAnnotationQuality,
			Reason:    "the coco annotation index could not be parsed",
		}
	}

	names := map[int64]string{}
	for _, c := range inv.coco.Categories {
		names[c.ID] = c.Name
	}
	dims := map[int64]cocoImage{}
	for _, img := range inv.coco.Images {
		dims[img.ID] = img
	}

	stats := &annotationStats{}
	validByImage := map[int64]bool{}
	for i, a := range inv.coco.Annotations {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		stats.totalBoxes++

		name, ok := names[a.CategoryID]
		if !ok {
			name = "category_" + strconv.FormatInt(a.CategoryID, 10)
		}
		stats.classes.Add(name)

		if cocoBoxValid(a, dims[a.ImageID]) {
			validByImage[a.ImageID] = true
		} else {
			stats.invalidBoxes++
		}
	}

	stats.unitsSeen = int64(len(inv.coco.Images))
	for _, img := range inv.coco.Images {
		if validByImage[img.ID] {
			stats.unitsWithValid++
		}
	}
	return stats, nil
}

func cocoBoxValid(a cocoAnnotation, img cocoImage) bool {
	if len(a.Bbox) != 4 {
		return false
	}
	x, y, w, h := a.Bbox[0], a.Bbox[1], a.Bbox[2], a.Bbox[3]
	if w <= 0 || h <= 0 || x < 0 || y < 0 {
		return false
	}
	if img.Width > 0 && x+w > float64(img.Width)+0.5 {
		return false
	}
	if img.Height > 0 && y+h > float64(img.Height)+0.5 {
		return false
	}
	return true
}

func foldYOLOFile(part *annotationStats, f FileRef, classNames []string) {
	part.unitsSeen++
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return
	}

	var valid int64
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		part.totalBoxes++

		cls, ok := parseYOLOLine(line, len(classNames))
		if !ok {
			part.invalidBoxes++
			continue
		}
		valid++
		if cls < len(classNames) {
			part.classes.Add(classNames[cls])
		} else {
			part.classes.Add("class_" + strconv.Itoa(cls))
		}
	}
	if valid > 0 {
		part.unitsWithValid++
	}
}

// parseYOLOLine validates one label row: class index then four
// normalized coordinates, with width and height strictly positive.
// Extra fields beyond the box are tolerated for segmentation exports.
func parseYOLOLine(line string, classCount int) (int, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return 0, false
	}
	cls, err := strconv.Atoi(fields[0])
	if err != nil || cls < 0 {
		return 0, false
	}
	if classCount > 0 && cls >= classCount {
		return cls, false
	}
	var coords [4]float64
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return cls, false
		}
		coords[i] = v
	}
	cx, cy, w, h := coords[0], coords[1], coords[2], coords[3]
	if cx < 0 || cx > 1 || cy < 0 || cy > 1 {
		return cls, false
	}
	if w <= 0 || w > 1 || h <= 0 || h > 1 {
		return cls, false
	}
	return cls, true
}

func foldVOCFile(part *annotationStats, f FileRef) {
	part.unitsSeen++
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return
	}
	var doc vocDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return
	}

	var valid int64
	for _, obj := range doc.Objects {
		part.totalBoxes++
		b := obj.Bndbox
		ok := b.Xmax > b.Xmin && b.Ymax > b.Ymin && b.Xmin >= 0 && b.Ymin >= 0
		if ok && doc.Size.Width > 0 && b.Xmax > float64(doc.Size.Width)+0.5 {
			ok = false
		}
		if ok && doc.Size.Height > 0 && b.Ymax > float64(doc.Size.Height)+0.5 {
			ok = false
		}
		if !ok {
			part.invalidBoxes++
			continue
		}
		valid++
		name := strings.TrimSpace(obj.Name)
		if name == "" {
			name = "unnamed"
		}
		part.classes.Add(name)
	}
	if valid > 0 {
		part.unitsWithValid++
	}
}

// sampled thins the file list with a fixed stride in quick mode so two
// quick runs inspect the same files.
func sampled(files []FileRef, settings Settings) []FileRef {
	if !settings.Quick || settings.QuickSample <= 0 || len(files) <= settings.QuickSample {
		return files
	}
	stride := len(files) / settings.QuickSample
	if stride < 1 {
		stride = 1
	}
	out := make([]FileRef, 0, settings.QuickSample)
	for i := 0; i < len(files) && len(out) < settings.QuickSample; i += stride {
		out = append(out, files[i])
	}
	return out
}

// Metrics converts the raw findings into the annotation quality inputs.
func (s *annotationStats) Metrics() domain.RawMetricSet {
	set := domain.NewRawMetricSet(domain.DimAnnotationQuality)
	if s.totalBoxes == 0 {
		return set
	}

	balance := s.classes.Entropy01() * 100
	if s.classes.Distinct() == 1 {
		balance = 100
	}
	set.Values[domain.MetricClassBalanceScore] = balance
	set.Values[domain.MetricClassImbalanceRatio] = 1 - s.classes.MinMaxRatio()
	set.Values[domain.MetricClassCount] = float64(s.classes.Distinct())

	validity := float64(s.totalBoxes-s.invalidBoxes) / float64(s.totalBoxes)
	set.Values[domain.MetricBboxValidityScore] = validity * 100
	set.Values[domain.MetricInvalidBboxRatio] = float64(s.invalidBoxes) / float64(s.totalBoxes)

	if s.unitsSeen > 0 {
		set.Values[domain.MetricLabelCoverageScore] = float64(s.unitsWithValid) / float64(s.unitsSeen) * 100
	}
	return set
}
