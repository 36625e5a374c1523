package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PackageBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ember_build_package_builds_total",
			Help: "Number of times a package has been built",
		},
		[]string{"package"},
	)

	PackageCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ember_build_package_cache_hits_total",
			Help: "Number of times a package build was served from the build session",
		},
		[]string{"package"},
	)

	PackageBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ember_build_package_build_duration_seconds",
			Help:    "Package build duration in seconds, excluding its requirements",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
		},
		[]string{"package"},
	)
)
