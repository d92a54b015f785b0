package adapters

import (
	"encoding/json"
	"fmt"

	"github.com/de-tools/vision-audit/pkg/models/domain"
	"github.com/de-tools/vision-audit/pkg/models/store"
)

// resultDetails is the JSON shape of the assessment_results details
// column. It carries everything the flat columns do not.
type resultDetails struct {
	Dimensions      []domain.DimensionScore `json:"dimensions"`
	Issues          []domain.Issue          `json:"issues"`
	Recommendations []domain.Recommendation `json:"recommendations"`
	Warnings        []string                `json:"warnings,omitempty"`
}

func MapDomainRunToStore(run domain.PipelineRun) (store.AssessmentRun, []store.StageRecord) {
	rec := store.AssessmentRun{
		ID:         run.ID,
		Dataset:    run.Dataset,
		Mode:       string(run.Mode),
		Status:     string(run.Status),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	stages := make([]store.StageRecord, 0, len(run.Stages))
	for i, s := range run.Stages {
		stages = append(stages, store.StageRecord{
			RunID:      run.ID,
			Seq:        i,
			Name:       string(s.Name),
			Status:     string(s.Status),
			StartedAt:  s.StartedAt,
			DurationMs: s.Duration.Milliseconds(),
			Error:      s.Error,
		})
	}
	return rec, stages
}

func MapDomainResultToStore(result domain.QualityResult) (store.AssessmentResult, error) {
	details, err := json.Marshal(resultDetails{
		Dimensions:      result.Dimensions,
		Issues:          result.Issues,
		Recommendations: result.Recommendations,
		Warnings:        result.Warnings,
	})
	if err != nil {
		return store.AssessmentResult{}, fmt.Errorf("encode result details: %w", err)
	}
	return store.AssessmentResult{
		RunID:        result.RunID,
		Dataset:      result.Dataset,
		GeneratedAt:  result.GeneratedAt,
		OverallScore: result.OverallScore,
		Grade:        string(result.Grade),
		Status:       string(result.Status),
		Details:      details,
	}, nil
}

func MapStoreResultToDomain(rec store.AssessmentResult) (domain.QualityResult, error) {
	var details resultDetails
	if len(rec.Details) > 0 {
		if err := json.Unmarshal(rec.Details, &details); err != nil {
			return domain.QualityResult{}, fmt.Errorf("decode result details for run %s: %w", rec.RunID, err)
		}
	}
	return domain.QualityResult{
		Dataset:         rec.Dataset,
		RunID:           rec.RunID,
		GeneratedAt:     rec.GeneratedAt,
		OverallScore:    rec.OverallScore,
		Grade:           domain.Grade(rec.Grade),
		Status:          domain.StageStatus(rec.Status),
		Dimensions:      details.Dimensions,
		Issues:          details.Issues,
		Recommendations: details.Recommendations,
		Warnings:        details.Warnings,
	}, nil
}

func MapHistoryToTrendPoints(points []store.HistoryPoint) []domain.TrendPoint {
	out := make([]domain.TrendPoint, 0, len(points))
	for _, p := range points {
		out = append(out, domain.TrendPoint{
			RunID:       p.RunID,
			GeneratedAt: p.GeneratedAt,
			Score:       p.OverallScore,
		})
	}
	return out
}
