package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/de-tools/vision-audit/pkg/models/domain"
)

// ComparisonDefaults carry the comparison tuning knobs from the
// configuration document; the comparator substitutes its own defaults
// for zero values.
type ComparisonDefaults struct {
	RegressionThreshold float64 `mapstructure:"regression_threshold"`
	StableSlope         float64 `mapstructure:"stable_slope"`
}

// AppConfig is everything the assessment services need from one
// configuration document.
type AppConfig struct {
	Scoring    domain.ScoringConfig
	Pipeline   domain.PipelineSettings
	Comparison ComparisonDefaults
}

// fileDocument mirrors the YAML layout. Every section is optional; absent
// sections keep their defaults.
type fileDocument struct {
	Scoring struct {
		Weights map[string]float64 `mapstructure:"weights"`
	} `mapstructure:"scoring"`
	Analysis struct {
		Thresholds   map[string]domain.Bands                 `mapstructure:"thresholds"`
		Metrics      map[string]map[string]domain.MetricSpec `mapstructure:"metrics"`
		Penalties    map[string]domain.PenaltySpec           `mapstructure:"penalties"`
		Priority     *domain.PriorityThresholds              `mapstructure:"priority_thresholds"`
		Requirements *domain.MinimumRequirements             `mapstructure:"minimum_requirements"`
	} `mapstructure:"analysis"`
	Recommendations struct {
		Max int `mapstructure:"max"`
	} `mapstructure:"recommendations"`
	Pipeline struct {
		Workers       int                      `mapstructure:"workers"`
		StageTimeout  time.Duration            `mapstructure:"stage_timeout"`
		StageTimeouts map[string]time.Duration `mapstructure:"stage_timeouts"`
		Quick         *bool                    `mapstructure:"quick"`
	} `mapstructure:"pipeline"`
	Comparison ComparisonDefaults `mapstructure:"comparison"`
}

// Load reads the configuration file at path and merges it over the
// defaults. An empty path returns the defaults unchanged. The merged
// scoring configuration is validated before it is returned.
func Load(path string) (AppConfig, error) {
	cfg := AppConfig{
		Scoring:  domain.DefaultScoringConfig(),
		Pipeline: domain.DefaultPipelineSettings(),
	}
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return AppConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var doc fileDocument
	if err := v.UnmarshalExact(&doc); err != nil {
		return AppConfig{}, &domain.ConfigurationError{Key: path, Reason: err.Error()}
	}
	if err := merge(&cfg, doc); err != nil {
		return AppConfig{}, err
	}
	if err := cfg.Scoring.Validate(); err != nil {
		return AppConfig{}, err
	}
	if err := cfg.Pipeline.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func merge(cfg *AppConfig, doc fileDocument) error {
	for name, w := range doc.Scoring.Weights {
		dim, err := parseDimension(name, "scoring.weights")
		if err != nil {
			return err
		}
		cfg.Scoring.Weights[dim] = w
	}
	for name, bands := range doc.Analysis.Thresholds {
		dim, err := parseDimension(name, "analysis.thresholds")
		if err != nil {
			return err
		}
		cfg.Scoring.Thresholds[dim] = bands
	}
	for name, specs := range doc.Analysis.Metrics {
		dim, err := parseDimension(name, "analysis.metrics")
		if err != nil {
			return err
		}
		if cfg.Scoring.Metrics[dim] == nil {
			cfg.Scoring.Metrics[dim] = map[string]domain.MetricSpec{}
		}
		for metric, spec := range specs {
			if spec.Direction == "" {
				spec.Direction = domain.HigherIsBetter
			}
			cfg.Scoring.Metrics[dim][metric] = spec
		}
	}
	for name, spec := range doc.Analysis.Penalties {
		cfg.Scoring.Penalties[name] = spec
	}
	if doc.Analysis.Priority != nil {
		cfg.Scoring.Priority = *doc.Analysis.Priority
	}
	if doc.Analysis.Requirements != nil {
		cfg.Scoring.Requirements = *doc.Analysis.Requirements
	}
	if doc.Recommendations.Max > 0 {
		cfg.Scoring.MaxRecommendations = doc.Recommendations.Max
	}

	if doc.Pipeline.Workers > 0 {
		cfg.Pipeline.Workers = doc.Pipeline.Workers
	}
	if doc.Pipeline.StageTimeout > 0 {
		cfg.Pipeline.StageTimeout = doc.Pipeline.StageTimeout
	}
	for name, budget := range doc.Pipeline.StageTimeouts {
		stage, err := parseStage(name)
		if err != nil {
			return err
		}
		if cfg.Pipeline.StageTimeouts == nil {
			cfg.Pipeline.StageTimeouts = map[domain.StageName]time.Duration{}
		}
		cfg.Pipeline.StageTimeouts[stage] = budget
	}
	if doc.Pipeline.Quick != nil {
		cfg.Pipeline.Quick = *doc.Pipeline.Quick
	}

	cfg.Comparison = doc.Comparison
	return nil
}

func parseDimension(name, key string) (domain.Dimension, error) {
	for _, dim := range domain.AllDimensions() {
		if string(dim) == name {
			return dim, nil
		}
	}
	return "", &domain.ConfigurationError{Key: key, Reason: fmt.Sprintf("unknown dimension %q", name)}
}

func parseStage(name string) (domain.StageName, error) {
	for _, stage := range domain.StageOrder() {
		if string(stage) == name {
			return stage, nil
		}
	}
	return "", &domain.ConfigurationError{Key: "pipeline.stage_timeouts", Reason: fmt.Sprintf("unknown stage %q", name)}
}
