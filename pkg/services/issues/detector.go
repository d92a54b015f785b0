package issues

import (
	"fmt"

	"github.com/de-tools/vision-audit/pkg/models/domain"
)

// Detector derives the issue list for a completed scoring pass. It is
// pure: the same scores always produce the same issues in the same order.
type Detector struct {
	cfg domain.ScoringConfig
}

func NewDetector(cfg domain.ScoringConfig) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg}, nil
}

// Detect walks the dimension scores and emits three kinds of issues:
// data-shape issues carried over from scoring (missing or malformed
// metrics), score-derived issues for dimensions and sub-metrics that
// fall below the medium priority cutoff, and structural issues for
// every penalty whose trigger condition held. The result is sorted by
// severity, then dimension, then id.
func (d *Detector) Detect(scores []domain.DimensionScore) []domain.Issue {
	var out []domain.Issue

	for _, ds := range scores {
		noData := false
		for _, is := range ds.Issues {
			out = append(out, is)
			if is.RootCause == domain.RootCauseNoData {
				noData = true
			}
		}

		// A no-data dimension already carries a critical issue; a
		// second one derived from its zero score would be noise.
		if !noData && ds.Value < d.cfg.Priority.Medium {
			out = append(out, domain.Issue{
				ID:          fmt.Sprintf("%s_low_score", ds.Dimension),
				Dimension:   ds.Dimension,
				Severity:    d.severityFor(ds.Value),
				Description: fmt.Sprintf("%s scored %.2f, below the acceptable level of %.2f", ds.Dimension, ds.Value, d.cfg.Priority.Medium),
				Observed:    ds.Value,
				Threshold:   d.cfg.Priority.Medium,
				RootCause:   domain.RootCauseLowScore,
			})
		}

		if !noData {
			for _, mb := range ds.Breakdown {
				if mb.SubScore >= d.cfg.Priority.Medium {
					continue
				}
				out = append(out, domain.Issue{
					ID:          fmt.Sprintf("%s_low_%s", ds.Dimension, mb.Metric),
					Dimension:   ds.Dimension,
					Severity:    d.severityFor(mb.SubScore),
					Description: fmt.Sprintf("%s in %s is underperforming (sub-score %.2f)", mb.Metric, ds.Dimension, mb.SubScore),
					Metric:      mb.Metric,
					Observed:    mb.Raw,
					Threshold:   d.goodBoundaryFor(ds.Dimension, mb.Metric),
					RootCause:   mb.Metric,
				})
			}
		}

		for _, pa := range ds.Penalties {
			spec, ok := d.cfg.Penalties[pa.Name]
			if !ok {
				continue
			}
			out = append(out, domain.Issue{
				ID:          fmt.Sprintf("%s_%s", ds.Dimension, pa.Name),
				Dimension:   ds.Dimension,
				Severity:    structuralSeverity(spec.Weight),
				Description: structuralDescription(pa.Name, pa.Observed),
				Metric:      spec.Metric,
				Observed:    pa.Observed,
				Threshold:   spec.Trigger,
				RootCause:   pa.Name,
			})
		}
	}

	domain.SortIssues(out)
	return out
}

func (d *Detector) severityFor(score float64) domain.Severity {
	switch {
	case score < d.cfg.Priority.Critical:
		return domain.SeverityCritical
	case score < d.cfg.Priority.High:
		return domain.SeverityHigh
	case score < d.cfg.Priority.Medium:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// goodBoundaryFor reports the raw value a metric needed to reach to be
// considered good, so issue records can show the violated threshold in
// the metric's own units.
func (d *Detector) goodBoundaryFor(dim domain.Dimension, metric string) float64 {
	specs, ok := d.cfg.Metrics[dim]
	if !ok {
		return 0
	}
	ms, ok := specs[metric]
	if !ok {
		return 0
	}
	if ms.Bands != nil {
		return ms.Bands.Good
	}
	if t, ok := d.cfg.Thresholds[dim]; ok {
		return t.Good
	}
	return 0
}

// Structural issue severity tracks how much of the dimension score the
// penalty can take away, not the current score.
func structuralSeverity(weight float64) domain.Severity {
	switch {
	case weight >= 0.25:
		return domain.SeverityHigh
	case weight >= 0.15:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func structuralDescription(name string, observed float64) string {
	switch name {
	case domain.PenaltyMissingImages:
		return fmt.Sprintf("%.1f%% of referenced images are missing from the dataset", observed*100)
	case domain.PenaltyMissingAnnotations:
		return fmt.Sprintf("%.1f%% of images have no annotation file", observed*100)
	case domain.PenaltyCorruptFiles:
		return fmt.Sprintf("%.1f%% of image files could not be decoded", observed*100)
	case domain.PenaltyClassImbalance:
		return fmt.Sprintf("class distribution is heavily skewed, imbalance ratio %.2f", observed)
	case domain.PenaltyLowQualityImages:
		return fmt.Sprintf("%.1f%% of images fall below the quality floor", observed*100)
	default:
		return fmt.Sprintf("structural check %s triggered at %.2f", name, observed)
	}
}
