// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ForecastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatcast_forecasts_total",
			Help: "Total number of forecast requests by entry point and outcome",
		},
		[]string{"source", "outcome"},
	)

	ForecastDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seatcast_forecast_duration_seconds",
			Help:    "End-to-end forecast duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"source"},
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seatcast_training_duration_seconds",
			Help:    "Duration of funnel ensemble training in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	ModelCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatcast_model_cache_lookups_total",
			Help: "Model cache lookups by result (hit or miss)",
		},
		[]string{"result"},
	)

	DroppedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatcast_dataset_dropped_rows_total",
			Help: "Dataset rows excluded during cleaning, by reason",
		},
		[]string{"reason"},
	)

	ForecastDays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatcast_forecast_days_total",
			Help: "Business days forecast",
		},
	)

	FallbackDecisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatcast_fallback_decisions_total",
			Help: "Days where no invitation count satisfied the capacity ceiling",
		},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatcast_rate_limited_total",
			Help: "Forecast requests rejected by the rate limiter",
		},
	)
)
