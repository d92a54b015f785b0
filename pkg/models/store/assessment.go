package store

import "time"

// AssessmentRun mirrors one row of assessment_runs.
type AssessmentRun struct {
	ID         string
	Dataset    string
	Mode       string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// StageRecord mirrors one row of assessment_stages. Seq preserves the
// execution order within a run.
type StageRecord struct {
	RunID      string
	Seq        int
	Name       string
	Status     string
	StartedAt  time.Time
	DurationMs int64
	Error      string
}

// AssessmentResult mirrors one row of assessment_results. Dimension
// scores, issues, recommendations and warnings travel in the details
// JSON column.
type AssessmentResult struct {
	RunID        string
	Dataset      string
	GeneratedAt  time.Time
	OverallScore int
	Grade        string
	Status       string
	Details      []byte
}

// HistoryPoint is the projection used by trend queries.
type HistoryPoint struct {
	RunID        string
	GeneratedAt  time.Time
	OverallScore int
}
