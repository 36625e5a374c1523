package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BundleFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ember_build_bundle_failed_total",
			Help: "Number of times a bundle has failed to assemble",
		},
		[]string{"bundle", "error_type"},
	)

	BundleCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ember_build_bundle_count_total",
			Help: "Total number of bundle assemblies",
		},
	)

	BundleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ember_build_bundle_duration_seconds",
			Help:    "Bundle assembly duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 1.5, 2, 5, 10, 30, 60},
		},
		[]string{"bundle"},
	)

	BundleSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ember_build_bundle_size_bytes",
			Help: "Size of the last assembled artifact of a bundle",
		},
		[]string{"bundle"},
	)
)
