package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soldiom_turns_total",
		Help: "Assistant turns by outcome",
	}, []string{"outcome"})

	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "soldiom_turn_duration_seconds",
		Help:    "Wall time from opening a reply stream to its end",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
	})

	streamDeltasTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soldiom_stream_deltas_total",
		Help: "Stream deltas applied across all turns",
	})

	citationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soldiom_citations_total",
		Help: "Distinct citations attached to finished replies",
	})

	inferenceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soldiom_inference_requests_total",
		Help: "Inference backend requests by tool and outcome",
	}, []string{"tool", "outcome"})

	inferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "soldiom_inference_duration_seconds",
		Help:    "Inference backend request latency",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"tool"})
)

// ObserveTurn records a finished turn.
func ObserveTurn(outcome string, elapsed time.Duration, citations int) {
	turnsTotal.WithLabelValues(outcome).Inc()
	turnDuration.Observe(elapsed.Seconds())
	citationsTotal.Add(float64(citations))
}

func ObserveDelta() {
	streamDeltasTotal.Inc()
}

// ObserveInference records one call to the inference backend.
func ObserveInference(tool string, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	inferenceRequestsTotal.WithLabelValues(tool, outcome).Inc()
	inferenceDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}
