package health

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/modboot/internal/observability"
)

// Metrics holds Prometheus metrics for health checks.
type Metrics struct {
	probesTotal *prometheus.CounterVec
	checkStatus *prometheus.GaugeVec
}

// NewMetrics creates the health metrics and registers them with the
// registry behind m.
func NewMetrics(namespace string, m *observability.Metrics) (*Metrics, error) {
	if namespace == "" {
		namespace = observability.DefaultNamespace
	}

	hm := &Metrics{
		probesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "probes_total",
				Help:      "Total number of health probes served",
			},
			[]string{"type"},
		),
		checkStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "check_status",
				Help: "Current health check " +
					"status (1=healthy, 0=unhealthy)",
			},
			[]string{"check"},
		),
	}

	if m != nil {
		for _, c := range []prometheus.Collector{hm.probesTotal, hm.checkStatus} {
			if err := m.RegisterCollector(c); err != nil {
				return nil, err
			}
		}
	}

	for _, probe := range []string{"liveness", "readiness"} {
		hm.probesTotal.WithLabelValues(probe)
	}

	return hm, nil
}

func (m *Metrics) recordProbe(probe string) {
	m.probesTotal.WithLabelValues(probe).Inc()
}

func (m *Metrics) setCheckStatus(check string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.checkStatus.WithLabelValues(check).Set(v)
}
