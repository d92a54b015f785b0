package adapters

import (
	"time"

	"github.com/de-tools/vision-audit/pkg/models/api"
	"github.com/de-tools/vision-audit/pkg/models/domain"
	"github.com/de-tools/vision-audit/pkg/models/store"
)

// MapStoreWorkflowToDomain combines a persisted workflow row with the
// scheduler state the store cannot know about.
func MapStoreWorkflowToDomain(w *store.Workflow, running bool, interval time.Duration) domain.Workflow {
	return domain.Workflow{
		Profile:   w.Profile,
		Running:   running,
		Interval:  interval,
		CreatedAt: w.CreatedAt,
		LastRunID: w.LastRunID,
		LastRunAt: w.LastProcessedAt,
		Error:     w.Error,
	}
}

func MapWorkflowDomainToApi(w domain.Workflow) api.WorkflowStatus {
	status := api.WorkflowStatus{
		Profile:  w.Profile,
		Running:  w.Running,
		Interval: w.Interval.String(),
	}
	if w.LastRunID != nil {
		status.LastRunId = *w.LastRunID
	}
	status.LastRunAt = w.LastRunAt
	if w.Error != nil {
		status.Error = *w.Error
	}
	return status
}
