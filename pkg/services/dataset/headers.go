package dataset

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/de-tools/vision-audit/pkg/models/domain"
)

// headerStats is the product of the cheap pass: image headers only, no
// pixel data. It feeds the diversity and consistency dimensions and the
// quick variant of the image quality pass.
type headerStats struct {
	resolutions Tally
	formats     Tally
	aspects     Accumulator
	sizes       Accumulator
	minSides    Accumulator
	unreadable  int64
	total       int64
}

func (s *headerStats) merge(b headerStats) {
	s.resolutions.Merge(b.resolutions)
	s.formats.Merge(b.formats)
	s.aspects.Merge(b.aspects)
	s.sizes.Merge(b.sizes)
	s.minSides.Merge(b.minSides)
	s.unreadable += b.unreadable
	s.total += b.total
}

// collectHeaders reads width, height and format for every image without
// decoding pixels. The pass is cheap enough to always run in full.
func collectHeaders(ctx context.Context, inv *Inventory, settings Settings) (*headerStats, error) {
	partials, err := parallelFold(ctx, inv.Images, settings.Workers, func(ctx context.Context, chunk []FileRef) (headerStats, error) {
		var part headerStats
		for _, ref := range chunk {
			if err := ctx.Err(); err != nil {
				return part, err
			}
			part.total++
			part.sizes.Add(float64(ref.Size))

			f, err := os.Open(ref.Path)
			if err != nil {
				part.unreadable++
				continue
			}
			cfg, format, err := image.DecodeConfig(f)
			f.Close()
			if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
				part.unreadable++
				continue
			}
			part.resolutions.Add(fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
			part.formats.Add(format)
			part.aspects.Add(float64(cfg.Width) / float64(cfg.Height))
			part.minSides.Add(float64(min(cfg.Width, cfg.Height)))
		}
		return part, nil
	})
	if err != nil {
		return nil, err
	}
	total := &headerStats{}
	for _, p := range partials {
		total.merge(p)
	}
	if total.total == 0 {
		return nil, &domain.DataUnavailableError{
			Dimension: domain.DimDiversity,
			Reason:    "the dataset holds no image files to measure",
		}
	}
	return total, nil
}

// aspectSpreadScale maps aspect ratio spread to a score: a standard
// deviation of 0.25 across the dataset already counts as full spread.
const aspectSpreadScale = 0.25

// classCountTarget is the class count that earns a full diversity score.
const classCountTarget = 20

func (s *headerStats) DiversityMetrics(classCount int) domain.RawMetricSet {
	set := domain.NewRawMetricSet(domain.DimDiversity)
	if s.resolutions.Total() > 0 {
		set.Values[domain.MetricResolutionDiversityScore] = s.resolutions.Entropy01() * 100
		set.Values[domain.MetricFormatDiversityScore] = s.formats.Entropy01() * 100
		set.Values[domain.MetricAspectSpreadScore] = clamp01(s.aspects.StdDev()/aspectSpreadScale) * 100
	}
	if s.sizes.Count() > 0 {
		set.Values[domain.MetricSizeSpreadScore] = clamp01(s.sizes.CoefficientOfVariation()) * 100
	}
	if classCount > 0 {
		set.Values[domain.MetricClassCountScore] = clamp01(float64(classCount)/classCountTarget) * 100
	}
	return set
}

func (s *headerStats) ConsistencyMetrics(inv *Inventory) domain.RawMetricSet {
	set := domain.NewRawMetricSet(domain.DimConsistency)
	if s.resolutions.Total() > 0 {
		set.Values[domain.MetricResolutionConsistencyScore] = s.resolutions.ModalShare() * 100
	}
	if s.sizes.Count() > 0 {
		set.Values[domain.MetricSizeConsistencyScore] = (1 - clamp01(s.sizes.CoefficientOfVariation())) * 100
	}
	if v, ok := annotationConsistency(inv); ok {
		set.Values[domain.MetricAnnotationConsistencyScore] = v * 100
	}
	return set
}

// annotationConsistency blends two cheap signals: whether the label
// files share one extension, and how uniform their sizes are. A single
// coco index is trivially consistent.
func annotationConsistency(inv *Inventory) (float64, bool) {
	if inv.Format == domain.FormatCOCO {
		if inv.coco == nil {
			return 0, false
		}
		return 1, true
	}
	if len(inv.Annotations) == 0 {
		return 0, false
	}
	var exts Tally
	var sizes Accumulator
	for _, a := range inv.Annotations {
		exts.Add(a.Ext)
		sizes.Add(float64(a.Size))
	}
	return (exts.ModalShare() + (1 - clamp01(sizes.CoefficientOfVariation()))) / 2, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
