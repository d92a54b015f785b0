package quality

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	assessmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vision_audit",
		Name:      "assessments_total",
		Help:      "Assessments executed through the API by dataset and final status.",
	}, []string{"dataset", "status"})

	assessmentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vision_audit",
		Name:      "assessment_duration_seconds",
		Help:      "Wall time of one assessment run.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"dataset"})
)
