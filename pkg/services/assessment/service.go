package assessment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/de-tools/vision-audit/pkg/adapters"
	"github.com/de-tools/vision-audit/pkg/models/domain"
	"github.com/de-tools/vision-audit/pkg/models/store"
	"github.com/de-tools/vision-audit/pkg/services/compare"
	"github.com/de-tools/vision-audit/pkg/services/config"
	"github.com/de-tools/vision-audit/pkg/services/dataset"
	"github.com/de-tools/vision-audit/pkg/services/pipeline"
	"github.com/de-tools/vision-audit/pkg/store/sqlite"
	assessmentstore "github.com/de-tools/vision-audit/pkg/store/sqlite/assessment"
)

// ErrNoBaseline is returned by Compare when the dataset has only one
// stored result and no explicit baseline was named.
var ErrNoBaseline = errors.New("no baseline run to compare against")

// Service is the application-facing surface for running assessments and
// reading back what earlier runs produced. The CLI and the web handlers
// both sit on top of it.
type Service interface {
	ListProfiles(ctx context.Context) ([]domain.Dataset, error)
	Assess(ctx context.Context, profile string, opts RunOptions) (*domain.QualityResult, domain.PipelineRun, error)
	AssessDataset(ctx context.Context, ds domain.Dataset, opts RunOptions) (*domain.QualityResult, domain.PipelineRun, error)
	Latest(ctx context.Context, profile string) (domain.QualityResult, error)
	History(ctx context.Context, profile string, limit int) ([]domain.QualityResult, error)
	Compare(ctx context.Context, profile, againstRunID string) (domain.ComparisonResult, error)
	CompareResults(baseline, current domain.QualityResult) domain.ComparisonResult
	Trend(ctx context.Context, profile string, limit int) (domain.TrendReport, error)
}

// RunOptions tune one assessment. A nil Quick keeps the configured
// pipeline mode; Save requires a configured store.
type RunOptions struct {
	Quick *bool
	Save  bool
}

type Deps struct {
	Registry config.Registry
	Store    assessmentstore.Store // optional; history operations need it
	DB       *sql.DB               // optional; persists run and result in one transaction
	Config   config.AppConfig
	Logger   zerolog.Logger
}

type defaultService struct {
	registry config.Registry
	store    assessmentstore.Store
	db       *sql.DB
	cfg      config.AppConfig
	cmp      *compare.Comparator
	log      zerolog.Logger
}

func NewService(deps Deps) (Service, error) {
	if deps.Registry == nil {
		return nil, &domain.ConfigurationError{Key: "registry", Reason: "a profile registry is required"}
	}
	if err := deps.Config.Scoring.Validate(); err != nil {
		return nil, err
	}
	if err := deps.Config.Pipeline.Validate(); err != nil {
		return nil, err
	}
	cmp := compare.NewComparator(compare.Settings{
		RegressionThreshold: deps.Config.Comparison.RegressionThreshold,
		StableSlope:         deps.Config.Comparison.StableSlope,
	})
	return &defaultService{
		registry: deps.Registry,
		store:    deps.Store,
		db:       deps.DB,
		cfg:      deps.Config,
		cmp:      cmp,
		log:      deps.Logger,
	}, nil
}

func (s *defaultService) ListProfiles(ctx context.Context) ([]domain.Dataset, error) {
	profiles, err := s.registry.GetProfiles(ctx)
	if err != nil {
		return nil, err
	}
	datasets := make([]domain.Dataset, 0, len(profiles))
	for _, profile := range profiles {
		ds, err := s.registry.GetDataset(ctx, profile)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

func (s *defaultService) Assess(ctx context.Context, profile string, opts RunOptions) (*domain.QualityResult, domain.PipelineRun, error) {
	ds, err := s.registry.GetDataset(ctx, profile)
	if err != nil {
		return nil, domain.PipelineRun{}, err
	}
	return s.AssessDataset(ctx, ds, opts)
}

func (s *defaultService) AssessDataset(ctx context.Context, ds domain.Dataset, opts RunOptions) (*domain.QualityResult, domain.PipelineRun, error) {
	settings := s.cfg.Pipeline
	if opts.Quick != nil {
		settings.Quick = *opts.Quick
	}

	var sink pipeline.Sink
	if opts.Save {
		if s.store == nil {
			return nil, domain.PipelineRun{}, &domain.ConfigurationError{Key: "store", Reason: "persistence is not configured"}
		}
		sink = &storeSink{store: s.store, db: s.db}
	}

	survey := dataset.NewSurvey(ds, dataset.Settings{
		Workers: settings.Workers,
		Quick:   settings.Quick,
	})
	orch, err := pipeline.New(pipeline.Deps{
		Collector: &collectorAdapter{survey: survey},
		Sink:      sink,
		Config:    s.cfg.Scoring,
		Settings:  settings,
		Logger:    s.log,
	})
	if err != nil {
		return nil, domain.PipelineRun{}, err
	}
	return orch.Run(ctx, ds)
}

func (s *defaultService) Latest(ctx context.Context, profile string) (domain.QualityResult, error) {
	if s.store == nil {
		return domain.QualityResult{}, &domain.ConfigurationError{Key: "store", Reason: "persistence is not configured"}
	}
	rec, err := s.store.LatestResult(ctx, profile)
	if err != nil {
		return domain.QualityResult{}, err
	}
	return adapters.MapStoreResultToDomain(rec)
}

func (s *defaultService) History(ctx context.Context, profile string, limit int) ([]domain.QualityResult, error) {
	if s.store == nil {
		return nil, &domain.ConfigurationError{Key: "store", Reason: "persistence is not configured"}
	}
	recs, err := s.store.ListResults(ctx, profile, limit)
	if err != nil {
		return nil, err
	}
	results := make([]domain.QualityResult, 0, len(recs))
	for _, rec := range recs {
		result, err := adapters.MapStoreResultToDomain(rec)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// Compare puts the latest stored result against a baseline. An explicit
// againstRunID selects the baseline run; otherwise the second most
// recent result for the dataset is used.
func (s *defaultService) Compare(ctx context.Context, profile, againstRunID string) (domain.ComparisonResult, error) {
	if s.store == nil {
		return domain.ComparisonResult{}, &domain.ConfigurationError{Key: "store", Reason: "persistence is not configured"}
	}
	currentRec, err := s.store.LatestResult(ctx, profile)
	if err != nil {
		return domain.ComparisonResult{}, err
	}
	current, err := adapters.MapStoreResultToDomain(currentRec)
	if err != nil {
		return domain.ComparisonResult{}, err
	}

	var baselineRec store.AssessmentResult
	if againstRunID != "" {
		baselineRec, err = s.store.GetResult(ctx, againstRunID)
		if err != nil {
			return domain.ComparisonResult{}, err
		}
		if baselineRec.Dataset != profile {
			return domain.ComparisonResult{}, fmt.Errorf("run %s belongs to dataset %s, not %s", againstRunID, baselineRec.Dataset, profile)
		}
	} else {
		recent, err := s.store.ListResults(ctx, profile, 2)
		if err != nil {
			return domain.ComparisonResult{}, err
		}
		if len(recent) < 2 {
			return domain.ComparisonResult{}, fmt.Errorf("dataset %s: %w", profile, ErrNoBaseline)
		}
		baselineRec = recent[1]
	}
	baseline, err := adapters.MapStoreResultToDomain(baselineRec)
	if err != nil {
		return domain.ComparisonResult{}, err
	}
	return s.cmp.Compare(baseline, current), nil
}

func (s *defaultService) CompareResults(baseline, current domain.QualityResult) domain.ComparisonResult {
	return s.cmp.Compare(baseline, current)
}

func (s *defaultService) Trend(ctx context.Context, profile string, limit int) (domain.TrendReport, error) {
	if s.store == nil {
		return domain.TrendReport{}, &domain.ConfigurationError{Key: "store", Reason: "persistence is not configured"}
	}
	history, err := s.store.ResultHistory(ctx, profile, limit)
	if err != nil {
		return domain.TrendReport{}, err
	}
	return s.cmp.Trend(profile, adapters.MapHistoryToTrendPoints(history)), nil
}

// collectorAdapter feeds the pipeline from a filesystem survey.
type collectorAdapter struct {
	survey *dataset.Survey
}

func (c *collectorAdapter) Load(ctx context.Context, req domain.MinimumRequirements) error {
	_, err := c.survey.Load(ctx, req)
	return err
}

func (c *collectorAdapter) Collect(ctx context.Context, dim domain.Dimension) (domain.RawMetricSet, error) {
	return c.survey.Collect(ctx, dim)
}

// storeSink persists a finished run. With a database handle both writes
// share one transaction so a failed result insert never leaves an
// orphaned run row.
type storeSink struct {
	store assessmentstore.Store
	db    *sql.DB
}

func (s *storeSink) Deliver(ctx context.Context, run domain.PipelineRun, result domain.QualityResult) error {
	runRec, stageRecs := adapters.MapDomainRunToStore(run)
	resultRec, err := adapters.MapDomainResultToStore(result)
	if err != nil {
		return err
	}

	if s.db == nil {
		if err := s.store.SaveRun(ctx, runRec, stageRecs); err != nil {
			return err
		}
		return s.store.SaveResult(ctx, resultRec)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	txCtx := sqlite.WithTransaction(ctx, tx)
	if err := s.store.SaveRun(txCtx, runRec, stageRecs); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := s.store.SaveResult(txCtx, resultRec); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assessment: %w", err)
	}
	return nil
}
