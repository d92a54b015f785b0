package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/vision-audit/pkg/models/api"
	"github.com/de-tools/vision-audit/pkg/models/domain"
	"github.com/de-tools/vision-audit/pkg/services/assessment"
	"github.com/de-tools/vision-audit/pkg/services/config"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) ListProfiles(ctx context.Context) ([]domain.Dataset, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Dataset), args.Error(1)
}

func (m *mockService) Assess(ctx context.Context, profile string, opts assessment.RunOptions) (*domain.QualityResult, domain.PipelineRun, error) {
	args := m.Called(ctx, profile, opts)
	var result *domain.QualityResult
	if args.Get(0) != nil {
		result = args.Get(0).(*domain.QualityResult)
	}
	return result, args.Get(1).(domain.PipelineRun), args.Error(2)
}

func (m *mockService) AssessDataset(ctx context.Context, ds domain.Dataset, opts assessment.RunOptions) (*domain.QualityResult, domain.PipelineRun, error) {
	args := m.Called(ctx, ds, opts)
	var result *domain.QualityResult
	if args.Get(0) != nil {
		result = args.Get(0).(*domain.QualityResult)
	}
	return result, args.Get(1).(domain.PipelineRun), args.Error(2)
}

func (m *mockService) Latest(ctx context.Context, profile string) (domain.QualityResult, error) {
	args := m.Called(ctx, profile)
	return args.Get(0).(domain.QualityResult), args.Error(1)
}

func (m *mockService) History(ctx context.Context, profile string, limit int) ([]domain.QualityResult, error) {
	args := m.Called(ctx, profile, limit)
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

type mockWorkflows struct {
	mock.Mock
}

func (m *mockWorkflows) Start(ctx context.Context, profile string) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *mockWorkflows) Cancel(ctx context.Context, profile string) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *mockWorkflows) Status(ctx context.Context) ([]domain.Workflow, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Workflow), args.Error(1)
}

type fixture struct {
	svc       *mockService
	workflows *mockWorkflows
	server    *httptest.Server
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	svc := &mockService{}
	workflows := &mockWorkflows{}

	router := ConfigureRouter(Config{
		Dependencies: Dependencies{
			Assessment: svc,
			Workflows:  workflows,
			Logger:     zerolog.Nop(),
		},
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return &fixture{svc: svc, workflows: workflows, server: ts}
}

func TestListDatasets(t *testing.T) {
	f := setupFixture(t)
	f.svc.On("ListProfiles", mock.Anything).Return([]domain.Dataset{
		{Name: "traffic", Path: "/data/traffic", Format: domain.FormatYOLO},
	}, nil)

	resp, err := http.Get(f.server.URL + "/api/v1/datasets")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var datasets []api.DatasetProfile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&datasets))
	require.Len(t, datasets, 1)
	assert.Equal(t, "traffic", datasets[0].Name)
	assert.Equal(t, "yolo", datasets[0].Format)
}

func TestRunAssessment(t *testing.T) {
	f := setupFixture(t)

	result := &domain.QualityResult{
		Dataset:      "traffic",
		RunID:        "run-1",
		OverallScore: 82,
		Grade:        domain.GradeB,
		Status:       domain.StageSucceeded,
	}
	run := domain.PipelineRun{
		ID:         "run-1",
		Dataset:    "traffic",
		Mode:       domain.ModeComprehensive,
		Status:     domain.StageSucceeded,
		StartedAt:  time.Now().Add(-time.Second),
		FinishedAt: time.Now(),
	}
	f.svc.On("Assess", mock.Anything, "traffic", assessment.RunOptions{Save: true}).
		Return(result, run, nil)

	resp, err := http.Post(f.server.URL+"/api/v1/datasets/traffic/assessments", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var response api.AssessmentResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	assert.Equal(t, 82, response.Report.OverallScore)
	assert.Equal(t, "B", response.Report.Grade)
	assert.Equal(t, "run-1", response.Run.Id)
}

func TestRunAssessment_BadMode(t *testing.T) {
	f := setupFixture(t)

	resp, err := http.Post(f.server.URL+"/api/v1/datasets/traffic/assessments?mode=turbo", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	f.svc.AssertNotCalled(t, "Assess", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunAssessment_QuickMode(t *testing.T) {
	f := setupFixture(t)

	quick := true
	f.svc.On("Assess", mock.Anything, "traffic", assessment.RunOptions{Quick: &quick, Save: true}).
		Return(&domain.QualityResult{Dataset: "traffic"}, domain.PipelineRun{ID: "run-2"}, nil)

	resp, err := http.Post(f.server.URL+"/api/v1/datasets/traffic/assessments?mode=quick", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	f.svc.AssertExpectations(t)
}

func TestLatestAssessment_UnknownProfile(t *testing.T) {
	f := setupFixture(t)
	f.svc.On("Latest", mock.Anything, "nope").
		Return(domain.QualityResult{}, config.ErrProfileNotFound)

	resp, err := http.Get(f.server.URL + "/api/v1/datasets/nope/assessments/latest")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetComparison_NoBaseline(t *testing.T) {
	f := setupFixture(t)
	f.svc.On("Compare", mock.Anything, "traffic", "").
		Return(domain.ComparisonResult{}, assessment.ErrNoBaseline)

	resp, err := http.Get(f.server.URL + "/api/v1/datasets/traffic/comparison")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGetTrend(t *testing.T) {
	f := setupFixture(t)
	f.svc.On("Trend", mock.Anything, "traffic", 0).Return(domain.TrendReport{
		Dataset:   "traffic",
		Slope:     1.5,
		Direction: domain.TrendImproving,
		Points: []domain.TrendPoint{
			{RunID: "a", Score: 70},
			{RunID: "b", Score: 73},
		},
	}, nil)

	resp, err := http.Get(f.server.URL + "/api/v1/datasets/traffic/trend")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var trend api.TrendReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&trend))
	assert.Equal(t, "improving", trend.Direction)
	assert.Len(t, trend.Points, 2)
}

func TestWorkflowStatus_NotFound(t *testing.T) {
	f := setupFixture(t)
	f.workflows.On("Status", mock.Anything).Return([]domain.Workflow{}, nil)

	resp, err := http.Get(f.server.URL + "/api/v1/datasets/traffic/workflows/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "no workflow for profile traffic")
}

func TestStartWorkflow(t *testing.T) {
	f := setupFixture(t)

	f.workflows.On("Start", mock.Anything, "traffic").Return(nil)
	f.workflows.On("Status", mock.Anything).Return([]domain.Workflow{
		{Profile: "traffic", Running: true, Interval: time.Hour},
	}, nil)

	resp, err := http.Post(f.server.URL+"/api/v1/datasets/traffic/workflows/start", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status api.WorkflowStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.True(t, status.Running)
}
