package credentials

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolution sources, used as the source label
const (
	SourceManagedSecret = "managed_secret"
	SourceLocalFile     = "local_file"
)

// Metrics counts resolutions by source and outcome. A nil *Metrics records
// nothing.
type Metrics struct {
	resolutions *prometheus.CounterVec
}

// NewMetrics registers the resolution counter on reg. Registering twice on
// the same registry reuses the existing counter.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dbcreds_resolutions_total",
		Help: "Total number of credential resolutions by source and outcome",
	}, []string{"source", "outcome"})

	if err := reg.Register(counter); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		counter = existing
	}

	return &Metrics{resolutions: counter}, nil
}

// Resolutions returns the underlying counter for inspection in tests
func (m *Metrics) Resolutions() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.resolutions
}

func (m *Metrics) observe(source string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.resolutions.WithLabelValues(source, outcome).Inc()
}
