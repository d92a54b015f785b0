package scoring

import (
	"fmt"
	"math"

	"github.com/de-tools/vision-audit/pkg/models/domain"
)

const weightTolerance = 1e-6

// Aggregator combines dimension scores into the overall score and grade.
type Aggregator struct {
	weights map[domain.Dimension]float64
}

func NewAggregator(cfg domain.ScoringConfig) (*Aggregator, error) {
	weights := map[domain.Dimension]float64{}
	for _, dim := range domain.AllDimensions() {
		w, ok := cfg.Weights[dim]
		if !ok {
			return nil, &domain.ConfigurationError{
				Key:    "scoring.weights",
				Reason: fmt.Sprintf("missing weight for %s", dim),
			}
		}
		if w < 0 {
			return nil, &domain.ConfigurationError{
				Key:    "scoring.weights",
				Reason: fmt.Sprintf("negative weight for %s", dim),
			}
		}
		weights[dim] = w
	}
	return &Aggregator{weights: weights}, nil
}

// Aggregate computes round(100 × Σ wᵢ·sᵢ) over the canonical dimension
// order. Weights off unit sum are renormalized proportionally with a
// recorded warning. A dimension absent from scores contributes 0 at its
// full weight. The computation is pure; calling it twice on the same input
// yields the same outputs.
func (a *Aggregator) Aggregate(scores []domain.DimensionScore) (int, domain.Grade, []string) {
	var warnings []string

	sum := 0.0
	for _, dim := range domain.AllDimensions() {
		sum += a.weights[dim]
	}
	norm := 1.0
	if math.Abs(sum-1) > weightTolerance {
		norm = sum
		warnings = append(warnings, fmt.Sprintf("dimension weights sum to %.6f; renormalized proportionally", sum))
	}

	byDim := map[domain.Dimension]float64{}
	for _, ds := range scores {
		byDim[ds.Dimension] = ds.Value
	}

	total := 0.0
	for _, dim := range domain.AllDimensions() {
		s, ok := byDim[dim]
		if !ok {
			s = 0
		}
		if math.IsNaN(s) || math.IsInf(s, 0) {
			warnings = append(warnings, fmt.Sprintf("dimension %s produced a non-finite score; treated as 0", dim))
			s = 0
		}
		total += (a.weights[dim] / norm) * s
	}

	overall := int(math.Round(100 * total))
	if overall < 0 {
		overall = 0
	}
	if overall > 100 {
		overall = 100
	}
	return overall, domain.GradeForScore(overall), warnings
}
