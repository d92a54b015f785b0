package domain

import (
	"fmt"
	"time"
)

type Direction string

const (
	HigherIsBetter Direction = "higher_better"
	LowerIsBetter  Direction = "lower_better"
)

// Bands are the raw-value boundaries a metric is graded against. For
// higher-is-better metrics Excellent is the largest raw value; for
// lower-is-better metrics the ordering is reversed.
type Bands struct {
	Excellent float64 `mapstructure:"excellent"`
	Good      float64 `mapstructure:"good"`
	Fair      float64 `mapstructure:"fair"`
	Poor      float64 `mapstructure:"poor"`
}

// MetricSpec describes how one raw metric is scored. A nil Bands falls back
// to the dimension-level thresholds.
type MetricSpec struct {
	Weight    float64   `mapstructure:"weight"`
	Direction Direction `mapstructure:"direction"`
	Bands     *Bands    `mapstructure:"bands"`
}

// PenaltySpec describes a structural penalty: when the named ratio metric
// exceeds Trigger, Weight×observed is subtracted from the target dimension's
// raw score.
type PenaltySpec struct {
	Dimension Dimension `mapstructure:"dimension"`
	Metric    string    `mapstructure:"metric"`
	Weight    float64   `mapstructure:"weight"`
	Trigger   float64   `mapstructure:"trigger"`
}

const (
	PenaltyMissingImages      = "missing_images"
	PenaltyMissingAnnotations = "missing_annotations"
	PenaltyCorruptFiles       = "corrupt_files"
	PenaltyClassImbalance     = "class_imbalance"
	PenaltyLowQualityImages   = "low_quality_images"
)

// PriorityThresholds are cutoffs applied to normalized scores:
// below Critical → critical, below High → high, below Medium → medium,
// otherwise low.
type PriorityThresholds struct {
	Critical float64 `mapstructure:"critical"`
	High     float64 `mapstructure:"high"`
	Medium   float64 `mapstructure:"medium"`
}

// MinimumRequirements gate a run: a dataset below either floor aborts with
// a FatalDatasetError instead of producing a misleading score.
type MinimumRequirements struct {
	MinImages      int `mapstructure:"min_images"`
	MinAnnotations int `mapstructure:"min_annotations"`
}

// ScoringConfig is validated once at construction and never re-validated
// per call.
type ScoringConfig struct {
	Weights            map[Dimension]float64
	Thresholds         map[Dimension]Bands
	Metrics            map[Dimension]map[string]MetricSpec
	Penalties          map[string]PenaltySpec
	Priority           PriorityThresholds
	Requirements       MinimumRequirements
	MaxRecommendations int
}

func DefaultScoringConfig() ScoringConfig {
	bands := Bands{Excellent: 90, Good: 75, Fair: 60, Poor: 40}
	thresholds := map[Dimension]Bands{}
	for _, dim := range AllDimensions() {
		thresholds[dim] = bands
	}
	return ScoringConfig{
		Weights: map[Dimension]float64{
			DimImageQuality:      0.25,
			DimAnnotationQuality: 0.25,
			DimCompleteness:      0.20,
			DimDiversity:         0.15,
			DimConsistency:       0.15,
		},
		Thresholds: thresholds,
		Metrics: map[Dimension]map[string]MetricSpec{
			DimImageQuality: {
				MetricResolutionScore:  {Weight: 0.30, Direction: HigherIsBetter},
				MetricSharpnessVar:     {Weight: 0.25, Direction: HigherIsBetter, Bands: &Bands{Excellent: 500, Good: 300, Fair: 150, Poor: 50}},
				MetricBrightnessScore:  {Weight: 0.25, Direction: HigherIsBetter},
				MetricContrastScore:    {Weight: 0.20, Direction: HigherIsBetter},
			},
			DimAnnotationQuality: {
				MetricClassBalanceScore:   {Weight: 0.35, Direction: HigherIsBetter},
				MetricBboxValidityScore:   {Weight: 0.30, Direction: HigherIsBetter},
				MetricLabelCoverageScore:  {Weight: 0.20, Direction: HigherIsBetter},
				MetricClassImbalanceRatio: {Weight: 0.15, Direction: LowerIsBetter, Bands: &Bands{Excellent: 0.2, Good: 0.4, Fair: 0.6, Poor: 0.8}},
			},
			DimCompleteness: {
				MetricCoverageScore:  {Weight: 0.50, Direction: HigherIsBetter},
				MetricStructureScore: {Weight: 0.25, Direction: HigherIsBetter},
				MetricNamingScore:    {Weight: 0.25, Direction: HigherIsBetter},
			},
			DimDiversity: {
				MetricResolutionDiversityScore: {Weight: 0.25, Direction: HigherIsBetter},
				MetricFormatDiversityScore:     {Weight: 0.15, Direction: HigherIsBetter},
				MetricSizeSpreadScore:          {Weight: 0.20, Direction: HigherIsBetter},
				MetricAspectSpreadScore:        {Weight: 0.15, Direction: HigherIsBetter},
				MetricClassCountScore:          {Weight: 0.25, Direction: HigherIsBetter},
			},
			DimConsistency: {
				MetricResolutionConsistencyScore: {Weight: 0.35, Direction: HigherIsBetter},
				MetricSizeConsistencyScore:       {Weight: 0.30, Direction: HigherIsBetter},
				MetricAnnotationConsistencyScore: {Weight: 0.35, Direction: HigherIsBetter},
			},
		},
		Penalties: map[string]PenaltySpec{
			PenaltyMissingImages:      {Dimension: DimCompleteness, Metric: MetricMissingImageRatio, Weight: 0.30, Trigger: 0.05},
			PenaltyMissingAnnotations: {Dimension: DimCompleteness, Metric: MetricMissingAnnotationRatio, Weight: 0.20, Trigger: 0.05},
			PenaltyCorruptFiles:       {Dimension: DimImageQuality, Metric: MetricCorruptFileRatio, Weight: 0.20, Trigger: 0},
			PenaltyClassImbalance:     {Dimension: DimAnnotationQuality, Metric: MetricClassImbalanceRatio, Weight: 0.25, Trigger: 0.70},
			PenaltyLowQualityImages:   {Dimension: DimImageQuality, Metric: MetricLowQualityRatio, Weight: 0.15, Trigger: 0.10},
		},
		Priority:           PriorityThresholds{Critical: 0.3, High: 0.6, Medium: 0.8},
		Requirements:       MinimumRequirements{MinImages: 1, MinAnnotations: 1},
		MaxRecommendations: 10,
	}
}

func (c ScoringConfig) Validate() error {
	for _, dim := range AllDimensions() {
		if _, ok := c.Weights[dim]; !ok {
			return &ConfigurationError{Key: "scoring.weights", Reason: fmt.Sprintf("missing weight for %s", dim)}
		}
		if c.Weights[dim] < 0 {
			return &ConfigurationError{Key: "scoring.weights", Reason: fmt.Sprintf("negative weight for %s", dim)}
		}
		if _, ok := c.Thresholds[dim]; !ok {
			return &ConfigurationError{Key: "analysis.thresholds", Reason: fmt.Sprintf("missing bands for %s", dim)}
		}
		if err := validateBands(c.Thresholds[dim], HigherIsBetter); err != nil {
			return &ConfigurationError{Key: fmt.Sprintf("analysis.thresholds.%s", dim), Reason: err.Error()}
		}
	}
	total := 0.0
	for _, w := range c.Weights {
		total += w
	}
	if total <= 0 {
		return &ConfigurationError{Key: "scoring.weights", Reason: "weights sum to zero"}
	}
	for dim, specs := range c.Metrics {
		for name, spec := range specs {
			key := fmt.Sprintf("analysis.metrics.%s.%s", dim, name)
			if spec.Weight < 0 {
				return &ConfigurationError{Key: key, Reason: "negative weight"}
			}
			if spec.Direction != HigherIsBetter && spec.Direction != LowerIsBetter {
				return &ConfigurationError{Key: key, Reason: fmt.Sprintf("unknown direction %q", spec.Direction)}
			}
			if spec.Bands != nil {
				if err := validateBands(*spec.Bands, spec.Direction); err != nil {
					return &ConfigurationError{Key: key, Reason: err.Error()}
				}
			}
		}
	}
	for name, p := range c.Penalties {
		key := fmt.Sprintf("analysis.penalties.%s", name)
		if p.Weight < 0 || p.Weight > 1 {
			return &ConfigurationError{Key: key, Reason: "weight must be within [0, 1]"}
		}
		if p.Trigger < 0 {
			return &ConfigurationError{Key: key, Reason: "negative trigger"}
		}
		if p.Metric == "" {
			return &ConfigurationError{Key: key, Reason: "missing source metric"}
		}
		if !validDimension(p.Dimension) {
			return &ConfigurationError{Key: key, Reason: fmt.Sprintf("unknown dimension %q", p.Dimension)}
		}
	}
	pt := c.Priority
	if !(pt.Critical > 0 && pt.Critical < pt.High && pt.High < pt.Medium && pt.Medium < 1) {
		return &ConfigurationError{Key: "analysis.priority_thresholds", Reason: "cutoffs must satisfy 0 < critical < high < medium < 1"}
	}
	if c.Requirements.MinImages < 0 || c.Requirements.MinAnnotations < 0 {
		return &ConfigurationError{Key: "analysis.minimum_requirements", Reason: "negative floor"}
	}
	if c.MaxRecommendations < 1 {
		return &ConfigurationError{Key: "recommendations.max", Reason: "must be at least 1"}
	}
	return nil
}

func validateBands(b Bands, dir Direction) error {
	if dir == LowerIsBetter {
		if !(b.Excellent < b.Good && b.Good < b.Fair && b.Fair < b.Poor) {
			return fmt.Errorf("lower-is-better bands must be strictly increasing from excellent to poor")
		}
		return nil
	}
	if !(b.Excellent > b.Good && b.Good > b.Fair && b.Fair > b.Poor) {
		return fmt.Errorf("bands must be strictly decreasing from excellent to poor")
	}
	return nil
}

func validDimension(dim Dimension) bool {
	for _, d := range AllDimensions() {
		if d == dim {
			return true
		}
	}
	return false
}

// PipelineSettings control stage execution; they live beside ScoringConfig
// because both arrive from the same configuration document.
type PipelineSettings struct {
	Workers       int
	StageTimeout  time.Duration
	StageTimeouts map[StageName]time.Duration
	Quick         bool
}

func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		Workers:      4,
		StageTimeout: 2 * time.Minute,
	}
}

// TimeoutFor resolves the effective budget for one stage.
func (s PipelineSettings) TimeoutFor(stage StageName) time.Duration {
	if t, ok := s.StageTimeouts[stage]; ok && t > 0 {
		return t
	}
	return s.StageTimeout
}

func (s PipelineSettings) Validate() error {
	if s.Workers < 1 {
		return &ConfigurationError{Key: "pipeline.workers", Reason: "must be at least 1"}
	}
	if s.StageTimeout <= 0 {
		return &ConfigurationError{Key: "pipeline.stage_timeout", Reason: "must be positive"}
	}
	return nil
}
