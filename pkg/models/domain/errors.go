package domain

import (
	"fmt"
	"time"
)

// ConfigurationError reports an invalid or missing configuration value.
// It is fatal at startup, before any stage runs.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %q: %s", e.Key, e.Reason)
}

// DataUnavailableError signals that a collector produced no usable metrics
// for a dimension. The dimension degrades to score 0; the run continues.
type DataUnavailableError struct {
	Dimension Dimension
	Reason    string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("no usable metrics for %s: %s", e.Dimension, e.Reason)
}

// StageTimeoutError signals that a stage exceeded its time budget.
type StageTimeoutError struct {
	Stage  StageName
	Budget time.Duration
}

func (e *StageTimeoutError) Error() string {
	return fmt.Sprintf("stage %s exceeded its %s budget", e.Stage, e.Budget)
}

// AggregationError reports a malformed raw metric (NaN, infinity, or a
// negative value where a count or ratio is expected). The metric is dropped.
type AggregationError struct {
	Dimension Dimension
	Metric    string
	Value     float64
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("malformed metric %s/%s: %v", e.Dimension, e.Metric, e.Value)
}

// FatalDatasetError aborts a run entirely; no score is produced.
type FatalDatasetError struct {
	Reason string
}

func (e *FatalDatasetError) Error() string {
	return fmt.Sprintf("dataset unusable: %s", e.Reason)
}
