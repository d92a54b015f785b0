package domain

import "time"

type DimensionDelta struct {
	Dimension  Dimension
	Baseline   float64
	Current    float64
	Delta      float64
	Regression bool
}

// ComparisonResult captures current-minus-baseline deltas. Neither input
// result is modified when producing one.
type ComparisonResult struct {
	Dataset           string
	BaselineRunID     string
	CurrentRunID      string
	BaselineScore     int
	CurrentScore      int
	OverallDelta      int
	OverallRegression bool
	Threshold         float64
	Dimensions        []DimensionDelta
}

type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
)

type TrendPoint struct {
	RunID       string
	GeneratedAt time.Time
	Score       int
}

type TrendReport struct {
	Dataset   string
	Points    []TrendPoint
	Slope     float64
	Direction TrendDirection
}
