package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/de-tools/vision-audit/pkg/models/domain"
)

// Scorer normalizes per-dimension raw metrics into bounded dimension scores.
// Configuration is validated once at construction.
type Scorer struct {
	cfg domain.ScoringConfig
}

func NewScorer(cfg domain.ScoringConfig) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// ScoreDimension produces the DimensionScore for one RawMetricSet. Malformed
// values (NaN, infinity, negative counts or ratios) are dropped with a
// recorded issue; if nothing scoreable remains the dimension scores 0 with a
// critical no_data issue. Structural penalties are subtracted here, before
// the dimension enters the overall aggregate.
func (s *Scorer) ScoreDimension(set domain.RawMetricSet) domain.DimensionScore {
	dim := set.Dimension
	ds := domain.DimensionScore{Dimension: dim}

	usable := map[string]float64{}
	for _, name := range sortedNames(set.Values) {
		v := set.Values[name]
		if malformed(name, v) {
			ds.Issues = append(ds.Issues, domain.Issue{
				ID:          fmt.Sprintf("%s_invalid_%s", dim, name),
				Dimension:   dim,
				Severity:    domain.SeverityLow,
				Description: fmt.Sprintf("metric %s carried an unusable value (%v) and was excluded", name, v),
				Metric:      name,
				Observed:    v,
				RootCause:   domain.RootCauseInvalidMetric,
			})
			continue
		}
		usable[name] = v
	}

	specs := s.cfg.Metrics[dim]
	dimBands := s.cfg.Thresholds[dim]

	var weighted, weightSum float64
	for _, name := range sortedNames(specs) {
		spec := specs[name]
		raw, ok := usable[name]
		if !ok {
			continue
		}
		bands := dimBands
		if spec.Bands != nil {
			bands = *spec.Bands
		}
		sub := subScore(raw, bands, spec.Direction)
		weighted += sub * spec.Weight
		weightSum += spec.Weight
		ds.Breakdown = append(ds.Breakdown, domain.MetricBreakdown{
			Metric:   name,
			Raw:      raw,
			SubScore: sub,
			Weight:   spec.Weight,
		})
	}

	value := 0.0
	if weightSum > 0 {
		value = weighted / weightSum
	} else {
		ds.Issues = append(ds.Issues, noDataIssue(dim))
	}

	for _, name := range sortedNames(s.cfg.Penalties) {
		p := s.cfg.Penalties[name]
		if p.Dimension != dim {
			continue
		}
		observed, ok := usable[p.Metric]
		if !ok || observed <= p.Trigger {
			continue
		}
		amount := p.Weight * clamp01(observed)
		value -= amount
		ds.Penalties = append(ds.Penalties, domain.PenaltyApplication{
			Name:     name,
			Observed: observed,
			Amount:   amount,
		})
	}

	ds.Value = clamp01(value)
	return ds
}

// ScoreMissing is the degraded score for a dimension whose collector
// produced nothing at all.
func (s *Scorer) ScoreMissing(dim domain.Dimension) domain.DimensionScore {
	return domain.DimensionScore{
		Dimension: dim,
		Value:     0,
		Issues:    []domain.Issue{noDataIssue(dim)},
	}
}

func noDataIssue(dim domain.Dimension) domain.Issue {
	return domain.Issue{
		ID:          fmt.Sprintf("%s_no_data", dim),
		Dimension:   dim,
		Severity:    domain.SeverityCritical,
		Description: fmt.Sprintf("no usable metrics were collected for %s", dim),
		Observed:    0,
		Threshold:   1,
		RootCause:   domain.RootCauseNoData,
	}
}

func malformed(name string, v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return true
	}
	if v < 0 && (strings.HasSuffix(name, "_count") || strings.HasSuffix(name, "_ratio")) {
		return true
	}
	return false
}

func sortedNames[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
