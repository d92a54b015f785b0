package compare

import (
	"github.com/de-tools/vision-audit/pkg/models/domain"
)

type Settings struct {
	// RegressionThreshold is in overall score points. A delta of
	// -threshold or worse flags a regression.
	RegressionThreshold float64
	// StableSlope bounds the per-run trend slope considered flat.
	StableSlope float64
}

func DefaultSettings() Settings {
	return Settings{
		RegressionThreshold: 1.0,
		StableSlope:         1.0,
	}
}

type Comparator struct {
	settings Settings
}

func NewComparator(settings Settings) *Comparator {
	if settings.RegressionThreshold <= 0 {
		settings.RegressionThreshold = DefaultSettings().RegressionThreshold
	}
	if settings.StableSlope <= 0 {
		settings.StableSlope = DefaultSettings().StableSlope
	}
	return &Comparator{settings: settings}
}

// Compare reports current minus baseline, overall and per dimension.
// Dimension values are expressed in score points so both levels of the
// report share one unit. A dimension absent from either run counts as
// zero on that side, matching how aggregation treats missing dimensions.
func (c *Comparator) Compare(baseline, current domain.QualityResult) domain.ComparisonResult {
	res := domain.ComparisonResult{
		Dataset:       current.Dataset,
		BaselineRunID: baseline.RunID,
		CurrentRunID:  current.RunID,
		BaselineScore: baseline.OverallScore,
		CurrentScore:  current.OverallScore,
		OverallDelta:  current.OverallScore - baseline.OverallScore,
		Threshold:     c.settings.RegressionThreshold,
	}
	res.OverallRegression = float64(res.OverallDelta) <= -c.settings.RegressionThreshold

	for _, dim := range domain.AllDimensions() {
		b := dimensionPoints(baseline, dim)
		cur := dimensionPoints(current, dim)
		delta := cur - b
		res.Dimensions = append(res.Dimensions, domain.DimensionDelta{
			Dimension:  dim,
			Baseline:   b,
			Current:    cur,
			Delta:      delta,
			Regression: delta <= -c.settings.RegressionThreshold,
		})
	}
	return res
}

// Trend fits a least squares line through the run scores in order and
// classifies the slope. Fewer than two points cannot move in any
// direction and report as stable with a zero slope.
func (c *Comparator) Trend(dataset string, points []domain.TrendPoint) domain.TrendReport {
	report := domain.TrendReport{
		Dataset:   dataset,
		Points:    points,
		Direction: domain.TrendStable,
	}
	if len(points) < 2 {
		return report
	}

	n := float64(len(points))
	var sumX, sumY, sumXY, sumXX float64
	for i, p := range points {
		x, y := float64(i), float64(p.Score)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return report
	}
	report.Slope = (n*sumXY - sumX*sumY) / denom

	switch {
	case report.Slope > c.settings.StableSlope:
		report.Direction = domain.TrendImproving
	case report.Slope < -c.settings.StableSlope:
		report.Direction = domain.TrendDeclining
	}
	return report
}

func dimensionPoints(r domain.QualityResult, dim domain.Dimension) float64 {
	ds, ok := r.DimensionScore(dim)
	if !ok {
		return 0
	}
	return ds.Value * 100
}
