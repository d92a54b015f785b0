package dataset

import (
	"context"
	"sync"

	"github.com/de-tools/vision-audit/pkg/models/domain"
)

type Settings struct {
	// Workers bounds the goroutines used by the per-file passes.
	Workers int
	// Quick trades accuracy for speed: pixel and label passes inspect a
	// stride sample instead of every file.
	Quick bool
	// QuickSample is the number of files a quick pass fully inspects.
	QuickSample int
	// TargetMinSide is the smaller image side that earns a full
	// resolution credit.
	TargetMinSide int
	// MinSharpness is the laplacian variance under which an image
	// counts as blurry.
	MinSharpness float64
	// BrightnessFloor and BrightnessCeil bound the acceptable mean
	// luminance, on the 0..255 scale.
	BrightnessFloor float64
	BrightnessCeil  float64
}

func DefaultSettings() Settings {
	return Settings{
		Workers:         4,
		QuickSample:     64,
		TargetMinSide:   640,
		MinSharpness:    50,
		BrightnessFloor: 40,
		BrightnessCeil:  220,
	}
}

func (s Settings) normalized() Settings {
	def := DefaultSettings()
	if s.Workers < 1 {
		s.Workers = def.Workers
	}
	if s.QuickSample < 1 {
		s.QuickSample = def.QuickSample
	}
	if s.TargetMinSide < 1 {
		s.TargetMinSide = def.TargetMinSide
	}
	if s.MinSharpness <= 0 {
		s.MinSharpness = def.MinSharpness
	}
	if s.BrightnessFloor <= 0 {
		s.BrightnessFloor = def.BrightnessFloor
	}
	if s.BrightnessCeil <= 0 {
		s.BrightnessCeil = def.BrightnessCeil
	}
	return s
}

// Survey owns every per-run artifact derived from the dataset on disk:
// the inventory walk, the header pass and the two deep passes. Each is
// computed once and cached for the rest of the run, so no stage scans
// the same files twice.
type Survey struct {
	dataset  domain.Dataset
	settings Settings

	mu          sync.Mutex
	inv         *Inventory
	headers     *headerStats
	images      *imageStats
	annotations *annotationStats
}

func NewSurvey(ds domain.Dataset, settings Settings) *Survey {
	return &Survey{dataset: ds, settings: settings.normalized()}
}

// Load walks the dataset and verifies it clears the configured floors.
// It backs the data loading stage and must succeed before anything else
// is worth measuring.
func (s *Survey) Load(ctx context.Context, req domain.MinimumRequirements) (*Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.inventory(ctx)
	if err != nil {
		return nil, err
	}
	if err := inv.CheckMinimums(req); err != nil {
		return nil, err
	}
	return inv, nil
}

// Collect produces the raw metrics for one dimension, running and
// caching whichever pass the dimension needs.
func (s *Survey) Collect(ctx context.Context, dim domain.Dimension) (domain.RawMetricSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.inventory(ctx)
	if err != nil {
		return domain.RawMetricSet{}, err
	}

	switch dim {
	case domain.DimCompleteness:
		return inv.CompletenessMetrics(), nil

	case domain.DimDiversity:
		h, err := s.headerStats(ctx)
		if err != nil {
			return domain.RawMetricSet{}, err
		}
		return h.DiversityMetrics(len(inv.ClassNames)), nil

	case domain.DimConsistency:
		h, err := s.headerStats(ctx)
		if err != nil {
			return domain.RawMetricSet{}, err
		}
		return h.ConsistencyMetrics(inv), nil

	case domain.DimImageQuality:
		st, err := s.imageStats(ctx)
		if err != nil {
			return domain.RawMetricSet{}, err
		}
		return st.Metrics(), nil

	case domain.DimAnnotationQuality:
		st, err := s.annotationStats(ctx)
		if err != nil {
			return domain.RawMetricSet{}, err
		}
		return st.Metrics(), nil

	default:
		return domain.RawMetricSet{}, &domain.DataUnavailableError{
			Dimension: dim,
			Reason:    "no collector serves this dimension",
		}
	}
}

func (s *Survey) inventory(ctx context.Context) (*Inventory, error) {
	if s.inv != nil {
		return s.inv, nil
	}
	inv, err := BuildInventory(ctx, s.dataset)
	if err != nil {
		return nil, err
	}
	s.inv = inv
	return inv, nil
}

func (s *Survey) headerStats(ctx context.Context) (*headerStats, error) {
	if s.headers != nil {
		return s.headers, nil
	}
	h, err := collectHeaders(ctx, s.inv, s.settings)
	if err != nil {
		return nil, err
	}
	s.headers = h
	return h, nil
}

func (s *Survey) imageStats(ctx context.Context) (*imageStats, error) {
	if s.images != nil {
		return s.images, nil
	}
	var headers *headerStats
	if s.settings.Quick {
		h, err := s.headerStats(ctx)
		if err != nil {
			return nil, err
		}
		headers = h
	}
	st, err := analyzeImages(ctx, s.inv, s.settings, headers)
	if err != nil {
		return nil, err
	}
	s.images = st
	return st, nil
}

func (s *Survey) annotationStats(ctx context.Context) (*annotationStats, error) {
	if s.annotations != nil {
		return s.annotations, nil
	}
	st, err := analyzeAnnotations(ctx, s.inv, s.settings)
	if err != nil {
		return nil, err
	}
	s.annotations = st
	return st, nil
}
