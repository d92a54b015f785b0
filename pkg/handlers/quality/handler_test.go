package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/vision-audit/pkg/models/api"
	"github.com/de-tools/vision-audit/pkg/models/domain"
	"github.com/de-tools/vision-audit/pkg/services/assessment"
	"github.com/de-tools/vision-audit/pkg/services/config"
	"github.com/de-tools/vision-audit/pkg/services/workflow"
	assessmentstore "github.com/de-tools/vision-audit/pkg/store/sqlite/assessment"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) ListProfiles(ctx context.Context) ([]domain.Dataset, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Dataset), args.Error(1)
}

func (m *mockService) Assess(ctx context.Context, profile string, opts assessment.RunOptions) (*domain.QualityResult, domain.PipelineRun, error) {
	args := m.Called(ctx, profile, opts)
	var result *domain.QualityResult
	if r := args.Get(0); r != nil {
		result = r.(*domain.QualityResult)
	}
	return result, args.Get(1).(domain.PipelineRun), args.Error(2)
}

func (m *mockService) AssessDataset(ctx context.Context, ds domain.Dataset, opts assessment.RunOptions) (*domain.QualityResult, domain.PipelineRun, error) {
	args := m.Called(ctx, ds, opts)
	var result *domain.QualityResult
	if r := args.Get(0); r != nil {
		result = r.(*domain.QualityResult)
	}
	return result, args.Get(1).(domain.PipelineRun), args.Error(2)
}

func (m *mockService) Latest(ctx context.Context, profile string) (domain.QualityResult, error) {
	args := m.Called(ctx, profile)
	return args.Get(0).(domain.QualityResult), args.Error(1)
}

func (m *mockService) History(ctx context.Context, profile string, limit int) ([]domain.QualityResult, error) {
	args := m.Called(ctx, profile, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QualityResult), args.Error(1)
}

func (m *mockService) Compare(ctx context.Context, profile, againstRunID string) (domain.ComparisonResult, error) {
	args := m.Called(ctx, profile, againstRunID)
	return args.Get(0).(domain.ComparisonResult), args.Error(1)
}

func (m *mockService) CompareResults(baseline, current domain.QualityResult) domain.ComparisonResult {
	args := m.Called(baseline, current)
	return args.Get(0).(domain.ComparisonResult)
}

func (m *mockService) Trend(ctx context.Context, profile string, limit int) (domain.TrendReport, error) {
	args := m.Called(ctx, profile, limit)
	return args.Get(0).(domain.TrendReport), args.Error(1)
}

type mockController struct {
	mock.Mock
}

func (m *mockController) Start(ctx context.Context, profile string) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *mockController) Cancel(ctx context.Context, profile string) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *mockController) Status(ctx context.Context) ([]domain.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Workflow), args.Error(1)
}

func newRequest(method, target, profile string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if profile != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("profile", profile)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	return req
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestListDatasets(t *testing.T) {
	t.Run("successful response", func(t *testing.T) {
		svc := new(mockService)
		svc.On("ListProfiles", mock.Anything).Return([]domain.Dataset{
			{Name: "aerial", Path: "/data/aerial", Format: domain.FormatCOCO},
			{Name: "traffic-signs", Path: "/data/signs", Format: domain.FormatYOLO},
		}, nil)
		h := NewHandler(svc, new(mockController))

		rec := httptest.NewRecorder()
		h.ListDatasets(rec, newRequest("GET", "/datasets", ""))

		assert.Equal(t, http.StatusOK, rec.Code)
		response := decodeBody[[]api.DatasetProfile](t, rec)
		assert.Equal(t, []api.DatasetProfile{
			{Name: "aerial", Path: "/data/aerial", Format: "coco"},
			{Name: "traffic-signs", Path: "/data/signs", Format: "yolo"},
		}, response)
		svc.AssertExpectations(t)
	})

	t.Run("service failure is a server error", func(t *testing.T) {
		svc := new(mockService)
		svc.On("ListProfiles", mock.Anything).Return(nil, fmt.Errorf("profiles file unreadable"))
		h := NewHandler(svc, new(mockController))

		rec := httptest.NewRecorder()
		h.ListDatasets(rec, newRequest("GET", "/datasets", ""))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRunAssessment(t *testing.T) {
	startedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	result := &domain.QualityResult{
		Dataset:      "traffic-signs",
		RunID:        "run-1",
		GeneratedAt:  startedAt.Add(3 * time.Second),
		OverallScore: 82,
		Grade:        domain.GradeB,
		Status:       domain.StageSucceeded,
	}
	run := domain.PipelineRun{
		ID:         "run-1",
		Dataset:    "traffic-signs",
		Mode:       domain.ModeQuick,
		Status:     domain.StageSucceeded,
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(3 * time.Second),
	}

	t.Run("quick mode runs and persists", func(t *testing.T) {
		svc := new(mockService)
		svc.On("Assess", mock.Anything, "traffic-signs", mock.MatchedBy(func(opts assessment.RunOptions) bool {
			return opts.Save && opts.Quick != nil && *opts.Quick
		})).Return(result, run, nil)
		h := NewHandler(svc, new(mockController))

		rec := httptest.NewRecorder()
		h.RunAssessment(rec, newRequest("POST", "/datasets/traffic-signs/assessments?mode=quick", "traffic-signs"))

		assert.Equal(t, http.StatusCreated, rec.Code)
		response := decodeBody[api.AssessmentResponse](t, rec)
		assert.Equal(t, "run-1", response.Report.RunId)
		assert.Equal(t, 82, response.Report.OverallScore)
		assert.Equal(t, "B", response.Report.Grade)
		assert.Equal(t, "quick", response.Run.Mode)
		svc.AssertExpectations(t)
	})

	t.Run("missing mode keeps the configured default", func(t *testing.T) {
		svc := new(mockService)
		svc.On("Assess", mock.Anything, "traffic-signs", mock.MatchedBy(func(opts assessment.RunOptions) bool {
			return opts.Save && opts.Quick == nil
		})).Return(result, run, nil)
		h := NewHandler(svc, new(mockController))

		rec := httptest.NewRecorder()
		h.RunAssessment(rec, newRequest("POST", "/datasets/traffic-signs/assessments", "traffic-signs"))

		assert.Equal(t, http.StatusCreated, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("an unknown mode is rejected before running", func(t *testing.T) {
		svc := new(mockService)
		h := NewHandler(svc, new(mockController))

		rec := httptest.NewRecorder()
		h.RunAssessment(rec, newRequest("POST", "/datasets/traffic-signs/assessments?mode=turbo", "traffic-signs"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unknown mode")
		svc.AssertNotCalled(t, "Assess", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("an unknown profile is not found", func(t *testing.T) {
		svc := new(mockService)
		svc.On("Assess", mock.Anything, "ghost", mock.Anything).
			Return(nil, domain.PipelineRun{}, fmt.Errorf("%w: ghost", config.ErrProfileNotFound))
		h := NewHandler(svc, new(mockController))

		rec := httptest.NewRecorder()
		h.RunAssessment(rec, newRequest("POST", "/datasets/ghost/assessments", "ghost"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("an unusable dataset is unprocessable", func(t *testing.T) {
		svc := new(mockService)
		svc.On("Assess", mock.Anything, "traffic-signs", mock.Anything).
			Return(nil, domain.PipelineRun{}, &domain.FatalDatasetError{Reason: "dataset holds 0 images, at least 1 required"})
		h := NewHandler(svc, new(mockController))

		rec := httptest.NewRecorder()
		h.RunAssessment(rec, newRequest("POST", "/datasets/traffic-signs/assessments", "traffic-signs"))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "0 images")
	})
}

func TestLatestAssessment(t *testing.T) {
	t.Run("successful response", func(t *testing.T) {
		svc := new(mockService)
		svc.On("Latest", mock.Anything, "aerial").Return(domain.QualityResult{
			Dataset:      "aerial",
			RunID:        "run-9",
			OverallScore: 91,
			Grade:        domain.GradeA,
			Status:       domain.StageSucceeded,
		}, nil)
		h := NewHandler(svc, new(mockController))

		rec := httptest.NewRecorder()
		h.LatestAssessment(rec, newRequest("GET", "/datasets/aerial/assessments/latest", "aerial"))

		assert.Equal(t, http.StatusOK, rec.Code)
		report := decodeBody[api.QualityReport](t, rec)
		assert.Equal(t, "run-9", report.RunId)
		assert.Equal(t, "A", report.Grade)
	})

	t.Run("no stored result is not found", func(t *testing.T) {
		svc := new(mockService)
		svc.On("Latest", mock.Anything, "aerial").
			Return(domain.QualityResult{}, fmt.Errorf("query latest result: %w", assessmentstore.ErrNotFound))
		h := NewHandler(svc, new(mockController))

		rec := httptest.NewRecorder()
		h.LatestAssessment(rec, newRequest("GET", "/datasets/aerial/assessments/latest", "aerial"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListAssessments(t *testing.T) {
	t.Run("limit is passed through", func(t *testing.T) {
		svc := new(mockService)
		svc.On("History", mock.Anything, "aerial", 2).Return([]domain.QualityResult{
			{RunID: "run-2"}, {RunID: "run-1"},
		}, nil)
		h := NewHandler(svc, new(mockController))

		rec := httptest.NewRecorder()
		h.ListAssessments(rec, newRequest("GET", "/datasets/aerial/assessments?limit=2", "aerial"))

		assert.Equal(t, http.StatusOK, rec.Code)
		reports := decodeBody[[]api.QualityReport](t, rec)
		require.Len(t, reports, 2)
		assert.Equal(t, "run-2", reports[0].RunId)
		svc.AssertExpectations(t)
	})

	t.Run("a malformed limit is rejected", func(t *testing.T) {
		svc := new(mockService)
		h := NewHandler(svc, new(mockController))

		rec := httptest.NewRecorder()
		h.ListAssessments(rec, newRequest("GET", "/datasets/aerial/assessments?limit=lots", "aerial"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "History", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGetComparison(t *testing.T) {
	t.Run("against is passed through", func(t *testing.T) {
		svc := new(mockService)
		svc.On("Compare", mock.Anything, "aerial", "run-1").Return(domain.ComparisonResult{
			Dataset:           "aerial",
			BaselineRunID:     "run-1",
			CurrentRunID:      "run-2",
			OverallDelta:      -5,
			OverallRegression: true,
			Threshold:         1.0,
		}, nil)
		h := NewHandler(svc, new(mockController))

		rec := httptest.NewRecorder()
		h.GetComparison(rec, newRequest("GET", "/datasets/aerial/comparison?against=run-1", "aerial"))

		assert.Equal(t, http.StatusOK, rec.Code)
		report := decodeBody[api.ComparisonReport](t, rec)
		assert.Equal(t, -5, report.OverallDelta)
		assert.True(t, report.OverallRegression)
	})

	t.Run("a single stored run is a conflict", func(t *testing.T) {
		svc := new(mockService)
		svc.On("Compare", mock.Anything, "aerial", "").
			Return(domain.ComparisonResult{}, fmt.Errorf("dataset aerial: %w", assessment.ErrNoBaseline))
		h := NewHandler(svc, new(mockController))

		rec := httptest.NewRecorder()
		h.GetComparison(rec, newRequest("GET", "/datasets/aerial/comparison", "aerial"))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestGetTrend(t *testing.T) {
	svc := new(mockService)
	svc.On("Trend", mock.Anything, "aerial", 0).Return(domain.TrendReport{
		Dataset:   "aerial",
		Slope:     2.5,
		Direction: domain.TrendImproving,
	}, nil)
	h := NewHandler(svc, new(mockController))

	rec := httptest.NewRecorder()
	h.GetTrend(rec, newRequest("GET", "/datasets/aerial/trend", "aerial"))

	assert.Equal(t, http.StatusOK, rec.Code)
	report := decodeBody[api.TrendReport](t, rec)
	assert.Equal(t, "improving", report.Direction)
}

func TestWorkflowEndpoints(t *testing.T) {
	running := domain.Workflow{Profile: "aerial", Running: true, Interval: time.Hour}

	t.Run("start reports the fresh status", func(t *testing.T) {
		ctrl := new(mockController)
		ctrl.On("Start", mock.Anything, "aerial").Return(nil)
		ctrl.On("Status", mock.Anything).Return([]domain.Workflow{running}, nil)
		h := NewHandler(new(mockService), ctrl)

		rec := httptest.NewRecorder()
		h.StartWorkflow(rec, newRequest("POST", "/datasets/aerial/workflows/start", "aerial"))

		assert.Equal(t, http.StatusOK, rec.Code)
		status := decodeBody[api.WorkflowStatus](t, rec)
		assert.True(t, status.Running)
		assert.Equal(t, "1h0m0s", status.Interval)
		ctrl.AssertExpectations(t)
	})

	t.Run("starting twice is a conflict", func(t *testing.T) {
		ctrl := new(mockController)
		ctrl.On("Start", mock.Anything, "aerial").
			Return(fmt.Errorf("%w: aerial", workflow.ErrAlreadyRunning))
		h := NewHandler(new(mockService), ctrl)

		rec := httptest.NewRecorder()
		h.StartWorkflow(rec, newRequest("POST", "/datasets/aerial/workflows/start", "aerial"))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("stopping an idle workflow is a conflict", func(t *testing.T) {
		ctrl := new(mockController)
		ctrl.On("Cancel", mock.Anything, "aerial").
			Return(fmt.Errorf("%w: aerial", workflow.ErrNotRunning))
		h := NewHandler(new(mockService), ctrl)

		rec := httptest.NewRecorder()
		h.StopWorkflow(rec, newRequest("POST", "/datasets/aerial/workflows/stop", "aerial"))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("status for an unknown workflow is not found", func(t *testing.T) {
		ctrl := new(mockController)
		ctrl.On("Status", mock.Anything).Return([]domain.Workflow{running}, nil)
		h := NewHandler(new(mockService), ctrl)

		rec := httptest.NewRecorder()
		h.WorkflowStatus(rec, newRequest("GET", "/datasets/ghost/workflows/status", "ghost"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
