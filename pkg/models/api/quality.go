package api

import "time"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type MetricBreakdown struct {
	Metric   string  `json:"metric"`
	Raw      float64 `json:"raw"`
	SubScore float64 `json:"sub_score"`
	Weight   float64 `json:"weight"`
}

type PenaltyApplication struct {
	Name     string  `json:"name"`
	Observed float64 `json:"observed"`
	Amount   float64 `json:"amount"`
}

type DimensionScore struct {
	Dimension string               `json:"dimension"`
	Score     int                  `json:"score"`
	Value     float64              `json:"value"`
	Breakdown []MetricBreakdown    `json:"breakdown,omitempty"`
	Penalties []PenaltyApplication `json:"penalties,omitempty"`
}

type Issue struct {
	Id          string   `json:"id"`
	Dimension   string   `json:"dimension"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Metric      string   `json:"metric,omitempty"`
	Observed    float64  `json:"observed"`
	Threshold   float64  `json:"threshold"`
	RootCause   string   `json:"root_cause,omitempty"`
}

type Recommendation struct {
	Id              string   `json:"id"`
	IssueIds        []string `json:"issue_ids"`
	Priority        float64  `json:"priority"`
	Action          string   `json:"action"`
	EstimatedImpact float64  `json:"estimated_impact"`
}

type QualityReport struct {
	Dataset         string           `json:"dataset"`
	RunId           string           `json:"run_id"`
	GeneratedAt     time.Time        `json:"generated_at"`
	OverallScore    int              `json:"overall_score"`
	Grade           string           `json:"grade"`
	Status          string           `json:"status"`
	Dimensions      []DimensionScore `json:"dimensions"`
	Issues          []Issue          `json:"issues"`
	Recommendations []Recommendation `json:"recommendations"`
	Warnings        []string         `json:"warnings,omitempty"`
}

type StageResult struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

type PipelineRun struct {
	Id         string        `json:"id"`
	Dataset    string        `json:"dataset"`
	Mode       string        `json:"mode"`
	Status     string        `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Stages     []StageResult `json:"stages"`
	Warnings   []string      `json:"warnings,omitempty"`
}

// AssessmentResponse is the POST assessments payload: the report plus the
// stage-level run record that produced it.
type AssessmentResponse struct {
	Report QualityReport `json:"report"`
	Run    PipelineRun   `json:"run"`
}

type DimensionDelta struct {
	Dimension  string  `json:"dimension"`
	Baseline   float64 `json:"baseline"`
	Current    float64 `json:"current"`
	Delta      float64 `json:"delta"`
	Regression bool    `json:"regression"`
}

type ComparisonReport struct {
	Dataset           string           `json:"dataset"`
	BaselineRunId     string           `json:"baseline_run_id"`
	CurrentRunId      string           `json:"current_run_id"`
	BaselineScore     int              `json:"baseline_score"`
	CurrentScore      int              `json:"current_score"`
	OverallDelta      int              `json:"overall_delta"`
	OverallRegression bool             `json:"overall_regression"`
	Threshold         float64          `json:"threshold"`
	Dimensions        []DimensionDelta `json:"dimensions"`
}

type TrendPoint struct {
	RunId       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Score       int       `json:"score"`
}

type TrendReport struct {
	Dataset   string       `json:"dataset"`
	Points    []TrendPoint `json:"points"`
	Slope     float64      `json:"slope"`
	Direction string       `json:"direction"`
}

type DatasetProfile struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Format string `json:"format"`
}

type WorkflowStatus struct {
	Profile   string     `json:"profile"`
	Running   bool       `json:"running"`
	Interval  string     `json:"interval"`
	LastRunId string     `json:"last_run_id,omitempty"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}
