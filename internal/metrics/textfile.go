package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile writes the current values of the default registry to path in
// the Prometheus text format, for collection by a node exporter.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
