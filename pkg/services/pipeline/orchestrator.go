package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/de-tools/vision-audit/pkg/models/domain"
	"github.com/de-tools/vision-audit/pkg/services/issues"
	"github.com/de-tools/vision-audit/pkg/services/recommend"
	"github.com/de-tools/vision-audit/pkg/services/scoring"
)

// Collector is the boundary to whatever scans the dataset. Load must
// succeed before any metric is worth collecting.
type Collector interface {
	Load(ctx context.Context, req domain.MinimumRequirements) error
	Collect(ctx context.Context, dim domain.Dimension) (domain.RawMetricSet, error)
}

// Sink receives the finished result during report handoff.
type Sink interface {
	Deliver(ctx context.Context, run domain.PipelineRun, result domain.QualityResult) error
}

type Deps struct {
	Collector Collector
	Sink      Sink // optional
	Config    domain.ScoringConfig
	Settings  domain.PipelineSettings
	Logger    zerolog.Logger
}

// Orchestrator drives one assessment through the fixed stage sequence.
// Configuration is validated once here; the stages themselves assume it
// is sound.
type Orchestrator struct {
	collector   Collector
	sink        Sink
	scorer      *scoring.Scorer
	aggregator  *scoring.Aggregator
	detector    *issues.Detector
	recommender *recommend.Engine
	cfg         domain.ScoringConfig
	settings    domain.PipelineSettings
	log         zerolog.Logger

	now   func() time.Time
	newID func() string
}

func New(deps Deps) (*Orchestrator, error) {
	if deps.Collector == nil {
		return nil, &domain.ConfigurationError{Key: "collector", Reason: "a collector is required"}
	}
	if err := deps.Settings.Validate(); err != nil {
		return nil, err
	}
	scorer, err := scoring.NewScorer(deps.Config)
	if err != nil {
		return nil, err
	}
	aggregator, err := scoring.NewAggregator(deps.Config)
	if err != nil {
		return nil, err
	}
	detector, err := issues.NewDetector(deps.Config)
	if err != nil {
		return nil, err
	}
	recommender, err := recommend.NewEngine(deps.Config)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		collector:   deps.Collector,
		sink:        deps.Sink,
		scorer:      scorer,
		aggregator:  aggregator,
		detector:    detector,
		recommender: recommender,
		cfg:         deps.Config,
		settings:    deps.Settings,
		log:         deps.Logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}, nil
}

// stageDimensions maps each collecting stage to the dimensions it feeds.
// When a stage degrades, exactly these dimensions score zero.
var stageDimensions = map[domain.StageName][]domain.Dimension{
	domain.StageDataLoading:        {domain.DimCompleteness},
	domain.StageBasicStatistics:    {domain.DimDiversity, domain.DimConsistency},
	domain.StageImageAnalysis:      {domain.DimImageQuality},
	domain.StageAnnotationAnalysis: {domain.DimAnnotationQuality},
}

// Run executes the full sequence for one dataset. The returned run
// record is always populated; the result is nil only when the dataset
// failed to load at all.
func (o *Orchestrator) Run(ctx context.Context, ds domain.Dataset) (*domain.QualityResult, domain.PipelineRun, error) {
	mode := domain.ModeComprehensive
	if o.settings.Quick {
		mode = domain.ModeQuick
	}
	run := domain.PipelineRun{
		ID:        o.newID(),
		Dataset:   ds.Name,
		Mode:      mode,
		Status:    domain.StageRunning,
		StartedAt: o.now(),
	}
	o.log.Info().
		Str("run_id", run.ID).
		Str("dataset", ds.Name).
		Str("mode", string(mode)).
		Msg("assessment started")

	sets := map[domain.Dimension]domain.RawMetricSet{}

	// Loading is the one stage that can abort the run.
	loadErr := o.runStage(ctx, &run, domain.StageDataLoading, func(stageCtx context.Context) error {
		if err := o.collector.Load(stageCtx, o.cfg.Requirements); err != nil {
			return err
		}
		return o.collectInto(stageCtx, &run, domain.StageDataLoading, sets)
	})
	if loadErr != nil {
		o.finish(&run, domain.StageFailed)
		o.log.Error().Err(loadErr).Str("run_id", run.ID).Msg("assessment aborted")
		return nil, run, loadErr
	}

	for _, stage := range []domain.StageName{
		domain.StageBasicStatistics,
		domain.StageImageAnalysis,
		domain.StageAnnotationAnalysis,
	} {
		_ = o.runStage(ctx, &run, stage, func(stageCtx context.Context) error {
			return o.collectInto(stageCtx, &run, stage, sets)
		})
	}

	var result domain.QualityResult
	_ = o.runStage(ctx, &run, domain.StageQualityAssessment, func(context.Context) error {
		result = o.assess(ds, &run, sets)
		return nil
	})

	// The result is finalized before handoff so the delivered copy
	// matches what the caller gets; only a handoff failure can still
	// downgrade the returned status afterwards.
	result.RunID = run.ID
	result.GeneratedAt = o.now()
	result.Status = overallStatus(run.Stages)
	result.Warnings = append(result.Warnings, run.Warnings...)

	_ = o.runStage(ctx, &run, domain.StageReportHandoff, func(stageCtx context.Context) error {
		if o.sink == nil {
			return nil
		}
		snapshot := run
		snapshot.Status = result.Status
		snapshot.FinishedAt = o.now()
		return o.sink.Deliver(stageCtx, snapshot, result)
	})

	o.finish(&run, overallStatus(run.Stages))
	result.Status = run.Status

	o.log.Info().
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Int("score", result.OverallScore).
		Str("grade", string(result.Grade)).
		Msg("assessment finished")
	return &result, run, nil
}

// collectInto gathers every dimension a stage feeds. A failed dimension
// degrades with a warning instead of stopping the run; the stage status
// reflects how much was lost.
func (o *Orchestrator) collectInto(ctx context.Context, run *domain.PipelineRun, stage domain.StageName, sets map[domain.Dimension]domain.RawMetricSet) error {
	dims := stageDimensions[stage]
	var firstErr error
	failed := 0
	for _, dim := range dims {
		set, err := o.collector.Collect(ctx, dim)
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			run.Warnings = append(run.Warnings, fmt.Sprintf("stage %s: %s degraded: %v", stage, dim, err))
			o.log.Warn().Err(err).
				Str("stage", string(stage)).
				Str("dimension", string(dim)).
				Msg("dimension degraded")
			continue
		}
		sets[dim] = set
	}
	if failed == 0 {
		return nil
	}
	if failed < len(dims) {
		return &partialError{cause: firstErr}
	}
	return firstErr
}

// partialError marks a stage that lost some but not all of its
// dimensions.
type partialError struct {
	cause error
}

func (e *partialError) Error() string { return e.cause.Error() }
func (e *partialError) Unwrap() error { return e.cause }

// assess is the pure scoring stage: no file access, no clock, no
// randomness. Missing dimensions score zero at full weight.
func (o *Orchestrator) assess(ds domain.Dataset, run *domain.PipelineRun, sets map[domain.Dimension]domain.RawMetricSet) domain.QualityResult {
	var scores []domain.DimensionScore
	for _, dim := range domain.AllDimensions() {
		set, ok := sets[dim]
		if !ok {
			scores = append(scores, o.scorer.ScoreMissing(dim))
			continue
		}
		scores = append(scores, o.scorer.ScoreDimension(set))
	}

	overall, grade, warnings := o.aggregator.Aggregate(scores)
	run.Warnings = append(run.Warnings, warnings...)

	found := o.detector.Detect(scores)
	return domain.QualityResult{
		Dataset:         ds.Name,
		OverallScore:    overall,
		Grade:           grade,
		Dimensions:      scores,
		Issues:          found,
		Recommendations: o.recommender.Recommend(found),
	}
}

// runStage wraps one stage with its timeout, bookkeeping and logging.
func (o *Orchestrator) runStage(ctx context.Context, run *domain.PipelineRun, name domain.StageName, fn func(context.Context) error) error {
	budget := o.settings.TimeoutFor(name)
	stageCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	started := o.now()
	o.log.Debug().Str("stage", string(name)).Str("run_id", run.ID).Msg("stage started")

	err := fn(stageCtx)
	if err != nil && stageCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		err = &domain.StageTimeoutError{Stage: name, Budget: budget}
	}

	sr := domain.StageResult{
		Name:      name,
		Status:    domain.StageSucceeded,
		StartedAt: started,
		Duration:  o.now().Sub(started),
	}
	switch {
	case err == nil:
	case isPartial(err):
		sr.Status = domain.StagePartiallyFailed
		sr.Error = err.Error()
	default:
		sr.Status = domain.StageFailed
		sr.Error = err.Error()
	}
	run.Stages = append(run.Stages, sr)

	evt := o.log.Info()
	if err != nil {
		evt = o.log.Warn().Err(err)
	}
	evt.Str("stage", string(name)).
		Str("status", string(sr.Status)).
		Dur("duration", sr.Duration).
		Msg("stage finished")
	return err
}

func isPartial(err error) bool {
	var p *partialError
	return errors.As(err, &p)
}

func (o *Orchestrator) finish(run *domain.PipelineRun, status domain.StageStatus) {
	run.Status = status
	run.FinishedAt = o.now()
}

// overallStatus folds the stage outcomes into the run status.
func overallStatus(stages []domain.StageResult) domain.StageStatus {
	sawFailure := false
	for _, s := range stages {
		switch s.Status {
		case domain.StageFailed, domain.StagePartiallyFailed:
			sawFailure = true
		}
	}
	if sawFailure {
		return domain.StagePartiallyFailed
	}
	return domain.StageSucceeded
}
