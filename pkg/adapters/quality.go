package adapters

import (
	"math"

	"github.com/de-tools/vision-audit/pkg/models/api"
	"github.com/de-tools/vision-audit/pkg/models/domain"
)

func MapSeverityDomainToApi(s domain.Severity) api.Severity {
	switch s {
	case domain.SeverityCritical:
		return api.SeverityCritical
	case domain.SeverityHigh:
		return api.SeverityHigh
	case domain.SeverityMedium:
		return api.SeverityMedium
	default:
		return api.SeverityLow
	}
}

func MapDimensionScoreDomainToApi(ds domain.DimensionScore) api.DimensionScore {
	out := api.DimensionScore{
		Dimension: string(ds.Dimension),
		Score:     int(math.Round(100 * ds.Value)),
		Value:     ds.Value,
	}
	for _, b := range ds.Breakdown {
		out.Breakdown = append(out.Breakdown, api.MetricBreakdown{
			Metric:   b.Metric,
			Raw:      b.Raw,
			SubScore: b.SubScore,
			Weight:   b.Weight,
		})
	}
	for _, p := range ds.Penalties {
		out.Penalties = append(out.Penalties, api.PenaltyApplication{
			Name:     p.Name,
			Observed: p.Observed,
			Amount:   p.Amount,
		})
	}
	return out
}

func MapIssueDomainToApi(is domain.Issue) api.Issue {
	return api.Issue{
		Id:          is.ID,
		Dimension:   string(is.Dimension),
		Severity:    MapSeverityDomainToApi(is.Severity),
		Description: is.Description,
		Metric:      is.Metric,
		Observed:    is.Observed,
		Threshold:   is.Threshold,
		RootCause:   is.RootCause,
	}
}

func MapRecommendationDomainToApi(rec domain.Recommendation) api.Recommendation {
	return api.Recommendation{
		Id:              rec.ID,
		IssueIds:        append([]string(nil), rec.IssueIDs...),
		Priority:        rec.Priority,
		Action:          rec.Action,
		EstimatedImpact: rec.EstimatedImpact,
	}
}

func MapQualityResultDomainToApi(r domain.QualityResult) api.QualityReport {
	report := api.QualityReport{
		Dataset:         r.Dataset,
		RunId:           r.RunID,
		GeneratedAt:     r.GeneratedAt,
		OverallScore:    r.OverallScore,
		Grade:           string(r.Grade),
		Status:          string(r.Status),
		Dimensions:      make([]api.DimensionScore, 0, len(r.Dimensions)),
		Issues:          make([]api.Issue, 0, len(r.Issues)),
		Recommendations: make([]api.Recommendation, 0, len(r.Recommendations)),
		Warnings:        append([]string(nil), r.Warnings...),
	}
	for _, ds := range r.Dimensions {
		report.Dimensions = append(report.Dimensions, MapDimensionScoreDomainToApi(ds))
	}
	for _, is := range r.Issues {
		report.Issues = append(report.Issues, MapIssueDomainToApi(is))
	}
	for _, rec := range r.Recommendations {
		report.Recommendations = append(report.Recommendations, MapRecommendationDomainToApi(rec))
	}
	return report
}

func MapSeverityApiToDomain(s api.Severity) domain.Severity {
	switch s {
	case api.SeverityCritical:
		return domain.SeverityCritical
	case api.SeverityHigh:
		return domain.SeverityHigh
	case api.SeverityMedium:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// MapQualityReportApiToDomain rebuilds a result from its exported form,
// so a report written with the json formatter can come back in as a
// comparison baseline.
func MapQualityReportApiToDomain(report api.QualityReport) domain.QualityResult {
	result := domain.QualityResult{
		Dataset:      report.Dataset,
		RunID:        report.RunId,
		GeneratedAt:  report.GeneratedAt,
		OverallScore: report.OverallScore,
		Grade:        domain.Grade(report.Grade),
		Status:       domain.StageStatus(report.Status),
		Warnings:     append([]string(nil), report.Warnings...),
	}
	for _, ds := range report.Dimensions {
		mapped := domain.DimensionScore{
			Dimension: domain.Dimension(ds.Dimension),
			Value:     ds.Value,
		}
		for _, b := range ds.Breakdown {
			mapped.Breakdown = append(mapped.Breakdown, domain.MetricBreakdown{
				Metric:   b.Metric,
				Raw:      b.Raw,
				SubScore: b.SubScore,
				Weight:   b.Weight,
			})
		}
		for _, p := range ds.Penalties {
			mapped.Penalties = append(mapped.Penalties, domain.PenaltyApplication{
				Name:     p.Name,
				Observed: p.Observed,
				Amount:   p.Amount,
			})
		}
		result.Dimensions = append(result.Dimensions, mapped)
	}
	for _, is := range report.Issues {
		result.Issues = append(result.Issues, domain.Issue{
			ID:          is.Id,
			Dimension:   domain.Dimension(is.Dimension),
			Severity:    MapSeverityApiToDomain(is.Severity),
			Description: is.Description,
			Metric:      is.Metric,
			Observed:    is.Observed,
			Threshold:   is.Threshold,
			RootCause:   is.RootCause,
		})
	}
	for _, rec := range report.Recommendations {
		result.Recommendations = append(result.Recommendations, domain.Recommendation{
			ID:              rec.Id,
			IssueIDs:        append([]string(nil), rec.IssueIds...),
			Priority:        rec.Priority,
			Action:          rec.Action,
			EstimatedImpact: rec.EstimatedImpact,
		})
	}
	return result
}

func MapPipelineRunDomainToApi(run domain.PipelineRun) api.PipelineRun {
	out := api.PipelineRun{
		Id:         run.ID,
		Dataset:    run.Dataset,
		Mode:       string(run.Mode),
		Status:     string(run.Status),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Stages:     make([]api.StageResult, 0, len(run.Stages)),
		Warnings:   append([]string(nil), run.Warnings...),
	}
	for _, s := range run.Stages {
		out.Stages = append(out.Stages, api.StageResult{
			Name:       string(s.Name),
			Status:     string(s.Status),
			StartedAt:  s.StartedAt,
			DurationMs: s.Duration.Milliseconds(),
			Error:      s.Error,
		})
	}
	return out
}

func MapComparisonDomainToApi(c domain.ComparisonResult) api.ComparisonReport {
	out := api.ComparisonReport{
		Dataset:           c.Dataset,
		BaselineRunId:     c.BaselineRunID,
		CurrentRunId:      c.CurrentRunID,
		BaselineScore:     c.BaselineScore,
		CurrentScore:      c.CurrentScore,
		OverallDelta:      c.OverallDelta,
		OverallRegression: c.OverallRegression,
		Threshold:         c.Threshold,
		Dimensions:        make([]api.DimensionDelta, 0, len(c.Dimensions)),
	}
	for _, d := range c.Dimensions {
		out.Dimensions = append(out.Dimensions, api.DimensionDelta{
			Dimension:  string(d.Dimension),
			Baseline:   d.Baseline,
			Current:    d.Current,
			Delta:      d.Delta,
			Regression: d.Regression,
		})
	}
	return out
}

func MapTrendDomainToApi(tr domain.TrendReport) api.TrendReport {
	out := api.TrendReport{
		Dataset:   tr.Dataset,
		Slope:     tr.Slope,
		Direction: string(tr.Direction),
		Points:    make([]api.TrendPoint, 0, len(tr.Points)),
	}
	for _, p := range tr.Points {
		out.Points = append(out.Points, api.TrendPoint{
			RunId:       p.RunID,
			GeneratedAt: p.GeneratedAt,
			Score:       p.Score,
		})
	}
	return out
}

func MapDatasetDomainToApi(ds domain.Dataset) api.DatasetProfile {
	return api.DatasetProfile{
		Name:   ds.Name,
		Path:   ds.Path,
		Format: string(ds.Format),
	}
}
