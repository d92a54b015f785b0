package recommend

import (
	"fmt"
	"math"
	"sort"

	"github.com/de-tools/vision-audit/pkg/models/domain"
)

const impactEpsilon = 1e-9

// Engine turns detected issues into a ranked, capped list of
// recommendations. Issues sharing a dimension and root cause collapse
// into one recommendation so the report never repeats the same fix.
type Engine struct {
	cfg domain.ScoringConfig
}

func NewEngine(cfg domain.ScoringConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

type group struct {
	dimension domain.Dimension
	rootCause string
	issueIDs  []string
	priority  float64
	impact    float64
}

// Recommend ranks by priority, which is the issue's severity weight
// scaled by its estimated impact. The list is sorted by priority
// descending, ties broken by the smallest referenced issue id, and
// capped at the configured maximum.
func (e *Engine) Recommend(issues []domain.Issue) []domain.Recommendation {
	groups := map[string]*group{}
	var order []string

	for _, is := range issues {
		key := string(is.Dimension) + "/" + is.RootCause
		g, ok := groups[key]
		if !ok {
			g = &group{dimension: is.Dimension, rootCause: is.RootCause}
			groups[key] = g
			order = append(order, key)
		}
		impact := estimatedImpact(is)
		priority := severityWeight(is.Severity) * impact
		g.issueIDs = append(g.issueIDs, is.ID)
		if priority > g.priority {
			g.priority = priority
		}
		if impact > g.impact {
			g.impact = impact
		}
	}

	recs := make([]domain.Recommendation, 0, len(order))
	for _, key := range order {
		g := groups[key]
		sort.Strings(g.issueIDs)
		recs = append(recs, domain.Recommendation{
			ID:              fmt.Sprintf("rec_%s_%s", g.dimension, g.rootCause),
			IssueIDs:        g.issueIDs,
			Priority:        g.priority,
			Action:          actionFor(g.dimension, g.rootCause),
			EstimatedImpact: g.impact,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority != recs[j].Priority {
			return recs[i].Priority > recs[j].Priority
		}
		return recs[i].IssueIDs[0] < recs[j].IssueIDs[0]
	})

	if len(recs) > e.cfg.MaxRecommendations {
		recs = recs[:e.cfg.MaxRecommendations]
	}
	return recs
}

func severityWeight(s domain.Severity) float64 {
	switch s {
	case domain.SeverityCritical:
		return 1.0
	case domain.SeverityHigh:
		return 0.75
	case domain.SeverityMedium:
		return 0.5
	default:
		return 0.25
	}
}

// estimatedImpact measures how far the observed value sits from the
// violated threshold, relative to the threshold itself, clamped to [0, 1].
// A zero threshold means any violation is already maximal.
func estimatedImpact(is domain.Issue) float64 {
	gap := math.Abs(is.Observed - is.Threshold)
	denom := math.Abs(is.Threshold)
	if denom < impactEpsilon {
		denom = impactEpsilon
	}
	impact := gap / denom
	if impact > 1 {
		return 1
	}
	return impact
}

func actionFor(dim domain.Dimension, rootCause string) string {
	switch rootCause {
	case domain.RootCauseNoData:
		return fmt.Sprintf("re-run collection for %s: the stage produced no usable metrics", dim)
	case domain.RootCauseInvalidMetric:
		return fmt.Sprintf("inspect the %s collector: it emitted values outside the expected range", dim)
	case domain.RootCauseLowScore:
		return fmt.Sprintf("review the %s metrics breakdown and address the weakest sub-scores first", dim)
	case domain.PenaltyMissingImages:
		return "restore the missing image files or drop the annotations that reference them"
	case domain.PenaltyMissingAnnotations:
		return "annotate the images that have no label file, or move them out of the dataset"
	case domain.PenaltyCorruptFiles:
		return "re-export or remove the image files that fail to decode"
	case domain.PenaltyClassImbalance:
		return "add samples for the underrepresented classes or downsample the dominant ones"
	case domain.PenaltyLowQualityImages:
		return "recapture or filter out the images below the quality floor"
	case domain.MetricSharpnessVar:
		return "check the capture pipeline for focus problems: sharpness variance is low across the dataset"
	case domain.MetricResolutionScore:
		return "source higher resolution imagery or reconsider the target input size"
	case domain.MetricBboxValidityScore:
		return "fix bounding boxes with zero area or coordinates outside the image"
	case domain.MetricClassBalanceScore:
		return "balance the class distribution before training"
	default:
		return fmt.Sprintf("improve %s in %s", rootCause, dim)
	}
}
