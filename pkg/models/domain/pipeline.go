package domain

import "time"

type StageName string

const (
	StageDataLoading        StageName = "data-loading"
	StageBasicStatistics    StageName = "basic-statistics"
	StageImageAnalysis      StageName = "image-analysis"
	StageAnnotationAnalysis StageName = "annotation-analysis"
	StageQualityAssessment  StageName = "quality-assessment"
	StageReportHandoff      StageName = "report-handoff"
)

// StageOrder returns the pipeline stages in execution order.
func StageOrder() []StageName {
	return []StageName{
		StageDataLoading,
		StageBasicStatistics,
		StageImageAnalysis,
		StageAnnotationAnalysis,
		StageQualityAssessment,
		StageReportHandoff,
	}
}

type StageStatus string

const (
	StagePending         StageStatus = "pending"
	StageRunning         StageStatus = "running"
	StageSucceeded       StageStatus = "succeeded"
	StagePartiallyFailed StageStatus = "partially_failed"
	StageFailed          StageStatus = "failed"
)

type AnalysisMode string

const (
	ModeQuick         AnalysisMode = "quick"
	ModeComprehensive AnalysisMode = "comprehensive"
)

type StageResult struct {
	Name      StageName
	Status    StageStatus
	StartedAt time.Time
	Duration  time.Duration
	Error     string
}

// PipelineRun is the append-only record of one orchestrated run.
// It is frozen once the run completes.
type PipelineRun struct {
	ID         string
	Dataset    string
	Mode       AnalysisMode
	Status     StageStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Stages     []StageResult
	Warnings   []string
}

func (r PipelineRun) Stage(name StageName) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageResult{}, false
}
