package commands

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/systmms/dbcreds/internal/credentials"
	"github.com/systmms/dbcreds/internal/logging"
)

// metricsSink collects resolution counters for one command run and writes
// them to a Prometheus text file afterwards. A nil sink collects nothing.
type metricsSink struct {
	path     string
	registry *prometheus.Registry
	metrics  *credentials.Metrics
}

func newMetricsSink(path string) (*metricsSink, error) {
	if path == "" {
		return nil, nil
	}
	registry := prometheus.NewRegistry()
	metrics, err := credentials.NewMetrics(registry)
	if err != nil {
		return nil, err
	}
	return &metricsSink{path: path, registry: registry, metrics: metrics}, nil
}

func (s *metricsSink) option() credentials.Option {
	if s == nil {
		return credentials.WithMetrics(nil)
	}
	return credentials.WithMetrics(s.metrics)
}

// flush writes the registry atomically. A failed write is logged and does
// not fail the command.
func (s *metricsSink) flush(logger *logging.Logger) {
	if s == nil {
		return
	}
	if err := prometheus.WriteToTextfile(s.path, s.registry); err != nil {
		logger.Warn("Could not write metrics to %s: %v", s.path, err)
		return
	}
	logger.Debug("Wrote metrics to %s", s.path)
}
