package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/de-tools/vision-audit/pkg/adapters"
	"github.com/de-tools/vision-audit/pkg/models/domain"
	"github.com/de-tools/vision-audit/pkg/models/store"
	"github.com/de-tools/vision-audit/pkg/services/assessment"
	"github.com/de-tools/vision-audit/pkg/services/config"
	"github.com/de-tools/vision-audit/pkg/store/sqlite/workflow"
)

var (
	ErrAlreadyRunning = errors.New("workflow already running")
	ErrNotRunning     = errors.New("workflow not running")
)

type Controller interface {
	Start(ctx context.Context, profile string) error
	Cancel(ctx context.Context, profile string) error
	Status(ctx context.Context) ([]domain.Workflow, error)
}

type workflowDescriptor struct {
	cancelFunc context.CancelFunc
	runner     *Runner
}

type DefaultController struct {
	workflowStore workflow.Store
	registry      config.Registry
	svc           assessment.Service
	interval      time.Duration

	mu        sync.Mutex
	workflows map[string]workflowDescriptor
}

func NewController(
	svc assessment.Service,
	registry config.Registry,
	workflowStore workflow.Store,
	interval time.Duration,
) *DefaultController {
	if interval <= 0 {
		interval = time.Hour
	}
	return &DefaultController{
		workflowStore: workflowStore,
		registry:      registry,
		svc:           svc,
		interval:      interval,
		workflows:     make(map[string]workflowDescriptor),
	}
}

// Init resumes every persisted workflow. Profiles that disappeared from
// the registry since the last boot are left stopped with their rows
// intact.
func (ctrl *DefaultController) Init(ctx context.Context) error {
	workflows, err := ctrl.workflowStore.ListWorkflows(ctx)
	if err != nil {
		return err
	}

	for _, wf := range workflows {
		if _, err := ctrl.registry.GetDataset(ctx, wf.Profile); err != nil {
			continue
		}
		ctrl.startWorkflow(ctx, wf.Profile)
	}
	return nil
}

func (ctrl *DefaultController) Start(ctx context.Context, profile string) error {
	if _, err := ctrl.registry.GetDataset(ctx, profile); err != nil {
		return err
	}

	ctrl.mu.Lock()
	_, running := ctrl.workflows[profile]
	ctrl.mu.Unlock()
	if running {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, profile)
	}

	if err := ctrl.workflowStore.CreateWorkflow(ctx, &store.Workflow{Profile: profile}); err != nil {
		return err
	}

	ctrl.startWorkflow(ctx, profile)
	return nil
}

func (ctrl *DefaultController) Cancel(_ context.Context, profile string) error {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	desc, ok := ctrl.workflows[profile]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, profile)
	}
	desc.cancelFunc()
	<-desc.runner.Done()

	delete(ctrl.workflows, profile)
	return nil
}

// Status merges the persisted rows with live scheduler state, sorted by
// profile.
func (ctrl *DefaultController) Status(ctx context.Context) ([]domain.Workflow, error) {
	workflows, err := ctrl.workflowStore.ListWorkflows(ctx)
	if err != nil {
		return nil, err
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	statuses := make([]domain.Workflow, 0, len(workflows))
	for _, wf := range workflows {
		_, running := ctrl.workflows[wf.Profile]
		statuses = append(statuses, adapters.MapStoreWorkflowToDomain(wf, running, ctrl.interval))
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Profile < statuses[j].Profile })
	return statuses, nil
}

func (ctrl *DefaultController) startWorkflow(ctx context.Context, profile string) {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if _, running := ctrl.workflows[profile]; running {
		return
	}

	// The loop must outlive the request that started it; only its
	// values (logger) are carried over.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	runner := NewRunner(profile, ctrl.svc, ctrl.workflowStore, RunnerConfig{Interval: ctrl.interval})
	ctrl.workflows[profile] = workflowDescriptor{
		cancelFunc: cancel,
		runner:     runner,
	}

	go runner.Run(runCtx)
}
