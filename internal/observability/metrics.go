package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace is used when NewMetrics receives an empty namespace.
const DefaultNamespace = "modboot"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
	ResultAdded   = "added"
)

// Metrics holds all Prometheus metrics for the bootstrap pipeline.
type Metrics struct {
	hooksTotal         *prometheus.CounterVec
	hookDuration       *prometheus.HistogramVec
	registrationsTotal *prometheus.CounterVec
	codeUnitsScanned   prometheus.Counter
	runsTotal          *prometheus.CounterVec
	runDuration        prometheus.Histogram
	pipelineState      prometheus.Gauge
	modules            prometheus.Gauge
	buildInfo          *prometheus.GaugeVec
	startTime          prometheus.Gauge
	registry           *prometheus.Registry
}

// NewMetrics creates a new Metrics instance backed by its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.hooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hooks_total",
			Help:      "Total number of module hook invocations",
		},
		[]string{"phase", "result"},
	)

	m.hookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "hook_duration_seconds",
			Help:      "Module hook duration in seconds",
			Buckets: []float64{
				.0001, .0005, .001, .005, .01,
				.05, .1, .5, 1, 5,
			},
		},
		[]string{"phase"},
	)

	m.registrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help: "Total number of registrations offered " +
				"to the sink during auto-registration",
		},
		[]string{"result"},
	)

	m.codeUnitsScanned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "code_units_scanned_total",
			Help:      "Total number of code units scanned",
		},
	)

	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Total number of pipeline runs",
		},
		[]string{"result"},
	)

	m.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "Pipeline run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	m.pipelineState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_state",
			Help: "Pipeline state " +
				"(0=not started, 1=running, 2=completed, 3=failed)",
		},
	)

	m.modules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "modules",
			Help:      "Number of modules in the last pipeline run",
		},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)

	m.startTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help:      "Start time of the process in unix seconds",
		},
	)

	m.registerCollectors()

	m.startTime.SetToCurrentTime()

	return m
}

// registerCollectors registers all metric collectors with the
// Prometheus registry.
func (m *Metrics) registerCollectors() {
	m.registry.MustRegister(
		m.hooksTotal,
		m.hookDuration,
		m.registrationsTotal,
		m.codeUnitsScanned,
		m.runsTotal,
		m.runDuration,
		m.pipelineState,
		m.modules,
		m.buildInfo,
		m.startTime,
	)

	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(
		collectors.NewProcessCollector(
			collectors.ProcessCollectorOpts{},
		),
	)
}

// RecordHook records a completed module hook.
func (m *Metrics) RecordHook(phase string, success bool, duration time.Duration) {
	result := ResultSuccess
	if !success {
		result = ResultFailure
	}
	m.hooksTotal.WithLabelValues(phase, result).Inc()
	m.hookDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordRegistration records one offer to the registration sink.
func (m *Metrics) RecordRegistration(added bool) {
	result := ResultAdded
	if !added {
		result = ResultSkipped
	}
	m.registrationsTotal.WithLabelValues(result).Inc()
}

// RecordCodeUnitScanned counts a scanned code unit.
func (m *Metrics) RecordCodeUnitScanned() {
	m.codeUnitsScanned.Inc()
}

// RecordRun records a finished pipeline run.
func (m *Metrics) RecordRun(success bool, duration time.Duration) {
	result := ResultSuccess
	if !success {
		result = ResultFailure
	}
	m.runsTotal.WithLabelValues(result).Inc()
	m.runDuration.Observe(duration.Seconds())
}

// SetPipelineState sets the pipeline state gauge.
func (m *Metrics) SetPipelineState(state int) {
	m.pipelineState.Set(float64(state))
}

// SetModules sets the number of modules in the current run.
func (m *Metrics) SetModules(n int) {
	m.modules.Set(float64(n))
}

// SetBuildInfo sets the build information metric.
func (m *Metrics) SetBuildInfo(
	version, commit, buildTime string,
) {
	m.buildInfo.WithLabelValues(
		version, commit, buildTime,
	).Set(1)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterCollector registers an additional collector with the custom
// registry.
func (m *Metrics) RegisterCollector(c prometheus.Collector) error {
	return m.registry.Register(c)
}
