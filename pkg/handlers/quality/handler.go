package quality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/de-tools/vision-audit/pkg/adapters"
	"github.com/de-tools/vision-audit/pkg/models/api"
	"github.com/de-tools/vision-audit/pkg/models/domain"
	"github.com/de-tools/vision-audit/pkg/services/assessment"
	"github.com/de-tools/vision-audit/pkg/services/config"
	"github.com/de-tools/vision-audit/pkg/services/workflow"
	assessmentstore "github.com/de-tools/vision-audit/pkg/store/sqlite/assessment"
)

type Handler struct {
	svc       assessment.Service
	workflows workflow.Controller
}

func NewHandler(svc assessment.Service, workflows workflow.Controller) *Handler {
	return &Handler{
		svc:       svc,
		workflows: workflows,
	}
}

func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	datasets, err := h.svc.ListProfiles(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	response := make([]api.DatasetProfile, 0, len(datasets))
	for _, ds := range datasets {
		response = append(response, adapters.MapDatasetDomainToApi(ds))
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) RunAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile := chi.URLParam(r, "profile")

	quick, err := parseQuickMode(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, run, err := h.svc.Assess(ctx, profile, assessment.RunOptions{Quick: quick, Save: true})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	assessmentsTotal.WithLabelValues(profile, string(run.Status)).Inc()
	assessmentDuration.WithLabelValues(profile).Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())

	writeJSON(ctx, w, http.StatusCreated, api.AssessmentResponse{
		Report: adapters.MapQualityResultDomainToApi(*result),
		Run:    adapters.MapPipelineRunDomainToApi(run),
	})
}

func (h *Handler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile := chi.URLParam(r, "profile")

	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	results, err := h.svc.History(ctx, profile, limit)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	response := make([]api.QualityReport, 0, len(results))
	for _, result := range results {
		response = append(response, adapters.MapQualityResultDomainToApi(result))
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) LatestAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile := chi.URLParam(r, "profile")

	result, err := h.svc.Latest(ctx, profile)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, adapters.MapQualityResultDomainToApi(result))
}

func (h *Handler) GetComparison(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile := chi.URLParam(r, "profile")
	against := r.URL.Query().Get("against")

	comparison, err := h.svc.Compare(ctx, profile, against)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, adapters.MapComparisonDomainToApi(comparison))
}

func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile := chi.URLParam(r, "profile")

	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	trend, err := h.svc.Trend(ctx, profile, limit)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, adapters.MapTrendDomainToApi(trend))
}

func (h *Handler) StartWorkflow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile := chi.URLParam(r, "profile")

	if err := h.workflows.Start(ctx, profile); err != nil {
		respondError(ctx, w, err)
		return
	}
	h.writeWorkflowStatus(ctx, w, profile)
}

func (h *Handler) StopWorkflow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile := chi.URLParam(r, "profile")

	if err := h.workflows.Cancel(ctx, profile); err != nil {
		respondError(ctx, w, err)
		return
	}
	h.writeWorkflowStatus(ctx, w, profile)
}

func (h *Handler) WorkflowStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile := chi.URLParam(r, "profile")
	h.writeWorkflowStatus(ctx, w, profile)
}

func (h *Handler) writeWorkflowStatus(ctx context.Context, w http.ResponseWriter, profile string) {
	statuses, err := h.workflows.Status(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	for _, status := range statuses {
		if status.Profile == profile {
			writeJSON(ctx, w, http.StatusOK, adapters.MapWorkflowDomainToApi(status))
			return
		}
	}
	http.Error(w, fmt.Sprintf("no workflow for profile %s", profile), http.StatusNotFound)
}

func parseQuickMode(r *http.Request) (*bool, error) {
	mode := r.URL.Query().Get("mode")
	switch mode {
	case "":
		return nil, nil
	case string(domain.ModeQuick):
		quick := true
		return &quick, nil
	case string(domain.ModeComprehensive):
		quick := false
		return &quick, nil
	default:
		return nil, fmt.Errorf("unknown mode %q, expected quick or comprehensive", mode)
	}
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return limit, nil
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	var fatal *domain.FatalDatasetError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, config.ErrProfileNotFound),
		errors.Is(err, assessmentstore.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, assessment.ErrNoBaseline),
		errors.Is(err, workflow.ErrAlreadyRunning),
		errors.Is(err, workflow.ErrNotRunning):
		status = http.StatusConflict
	case errors.As(err, &fatal):
		status = http.StatusUnprocessableEntity
	}

	if status >= http.StatusInternalServerError {
		zerolog.Ctx(ctx).Error().Err(err).Msg("request failed")
	}
	http.Error(w, err.Error(), status)
}
