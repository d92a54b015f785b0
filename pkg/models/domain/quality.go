package domain

import (
	"sort"
	"time"
)

type Dimension string

const (
	DimImageQuality      Dimension = "image_quality"
	DimAnnotationQuality Dimension = "annotation_quality"
	DimCompleteness      Dimension = "completeness"
	DimDiversity         Dimension = "diversity"
	DimConsistency       Dimension = "consistency"
)

// AllDimensions returns the scored dimensions in their canonical order.
func AllDimensions() []Dimension {
	return []Dimension{
		DimImageQuality,
		DimAnnotationQuality,
		DimCompleteness,
		DimDiversity,
		DimConsistency,
	}
}

// RawMetricSet holds the unprocessed measurements collected for one dimension.
// Values may be partially populated or empty.
type RawMetricSet struct {
	Dimension Dimension
	Values    map[string]float64
}

func NewRawMetricSet(dim Dimension) RawMetricSet {
	return RawMetricSet{Dimension: dim, Values: map[string]float64{}}
}

func (s RawMetricSet) Get(name string) (float64, bool) {
	v, ok := s.Values[name]
	return v, ok
}

func (s RawMetricSet) Empty() bool {
	return len(s.Values) == 0
}

func (s RawMetricSet) Clone() RawMetricSet {
	out := NewRawMetricSet(s.Dimension)
	for k, v := range s.Values {
		out.Values[k] = v
	}
	return out
}

type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	default:
		return "low"
	}
}

type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// GradeForScore maps an overall score to its letter grade.
func GradeForScore(score int) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 75:
		return GradeB
	case score >= 60:
		return GradeC
	default:
		return GradeD
	}
}

// MetricBreakdown records how one raw metric contributed to a dimension score.
type MetricBreakdown struct {
	Metric   string
	Raw      float64
	SubScore float64
	Weight   float64
}

// PenaltyApplication records a structural penalty subtracted from a dimension score.
type PenaltyApplication struct {
	Name     string
	Observed float64
	Amount   float64
}

type DimensionScore struct {
	Dimension Dimension
	Value     float64 // always within [0, 1]
	Breakdown []MetricBreakdown
	Penalties []PenaltyApplication
	Issues    []Issue
}

// Root causes shared by scoring and detection. Structural issues use
// their penalty name as the root cause, sub-metric issues the metric name.
const (
	RootCauseNoData        = "no_data"
	RootCauseInvalidMetric = "invalid_metric"
	RootCauseLowScore      = "low_score"
)

type Issue struct {
	ID          string
	Dimension   Dimension
	Severity    Severity
	Description string
	Metric      string
	Observed    float64
	Threshold   float64
	RootCause   string
}

type Recommendation struct {
	ID              string
	IssueIDs        []string
	Priority        float64
	Action          string
	EstimatedImpact float64
}

// QualityResult is the immutable outcome of a single assessment run.
type QualityResult struct {
	Dataset         string
	RunID           string
	GeneratedAt     time.Time
	OverallScore    int
	Grade           Grade
	Dimensions      []DimensionScore
	Issues          []Issue
	Recommendations []Recommendation
	Status          StageStatus
	Warnings        []string
}

func (r QualityResult) DimensionScore(dim Dimension) (DimensionScore, bool) {
	for _, ds := range r.Dimensions {
		if ds.Dimension == dim {
			return ds, true
		}
	}
	return DimensionScore{}, false
}

// SortIssues orders issues severity-descending, then by dimension name,
// then by id, so repeated runs produce identical listings.
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Severity != issues[j].Severity {
			return issues[i].Severity > issues[j].Severity
		}
		if issues[i].Dimension != issues[j].Dimension {
			return issues[i].Dimension < issues[j].Dimension
		}
		return issues[i].ID < issues[j].ID
	})
}
