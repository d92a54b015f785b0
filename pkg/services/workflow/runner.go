package workflow

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/de-tools/vision-audit/pkg/models/domain"
	"github.com/de-tools/vision-audit/pkg/services/assessment"
	"github.com/de-tools/vision-audit/pkg/store/sqlite/workflow"
)

// Runner re-assesses one dataset profile on a fixed interval and keeps
// the persisted workflow row in step with what it did.
type Runner struct {
	profile       string
	svc           assessment.Service
	workflowStore workflow.Store
	done          chan struct{}
	progress      chan RunnerProgress
	config        RunnerConfig
}

type RunnerConfig struct {
	Interval time.Duration
}

type RunnerProgress struct {
	RunID      string
	Score      int
	Grade      domain.Grade
	FinishedAt time.Time
}

func NewRunner(
	profile string,
	svc assessment.Service,
	workflowStore workflow.Store,
	config RunnerConfig,
) *Runner {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	return &Runner{
		profile:       profile,
		svc:           svc,
		workflowStore: workflowStore,
		done:          make(chan struct{}),
		progress:      make(chan RunnerProgress, 100),
		config:        config,
	}
}

func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) Progress() <-chan RunnerProgress {
	return r.progress
}

// Run assesses once immediately and then on every tick until the
// context is cancelled.
func (r *Runner) Run(ctx context.Context) {
	log := zerolog.Ctx(ctx).With().Str("profile", r.profile).Logger()
	defer close(r.done)
	defer close(r.progress)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.assess(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("assessment workflow stopped")
			return
		case <-ticker.C:
			r.assess(ctx, log)
		}
	}
}

func (r *Runner) assess(ctx context.Context, log zerolog.Logger) {
	result, run, err := r.svc.Assess(ctx, r.profile, assessment.RunOptions{Save: true})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Msg("scheduled assessment failed")
		if storeErr := r.workflowStore.RecordError(ctx, r.profile, err.Error()); storeErr != nil {
			log.Error().Err(storeErr).Msg("failed to record workflow error")
		}
		return
	}

	if err := r.workflowStore.ProgressWorkflow(ctx, r.profile, run.ID, run.FinishedAt); err != nil {
		log.Error().Err(err).Msg("failed to update workflow state")
	}
	log.Info().
		Str("run_id", run.ID).
		Int("score", result.OverallScore).
		Str("grade", string(result.Grade)).
		Msg("scheduled assessment finished")

	// The run is already persisted; a slow consumer only misses
	// intermediate updates.
	select {
	case r.progress <- RunnerProgress{
		RunID:      run.ID,
		Score:      result.OverallScore,
		Grade:      result.Grade,
		FinishedAt: run.FinishedAt,
	}:
	default:
	}
}
