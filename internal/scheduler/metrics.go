package scheduler

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the scheduler's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	jobRuns     *prometheus.CounterVec
	jobErrors   *prometheus.CounterVec
	jobTimeouts *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	violations  prometheus.Gauge
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetrics     *Metrics
)

// SchedulerMetrics returns the process-wide collectors registered on the default registry.
func SchedulerMetrics(serviceName, environment string) *Metrics {
	schedulerMetricsOnce.Do(func() {
		schedulerMetrics = NewMetrics(prometheus.DefaultRegisterer, serviceName, environment)
	})
	return schedulerMetrics
}

func NewMetrics(registerer prometheus.Registerer, serviceName, environment string) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	serviceName = strings.TrimSpace(serviceName)
	if serviceName == "" {
		serviceName = "pizzaledger"
	}
	environment = strings.TrimSpace(environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &Metrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pizzaledger_scheduler_job_runs_total",
			Help:        "Scheduler job runs by name.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pizzaledger_scheduler_job_errors_total",
			Help:        "Scheduler job failures by name.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pizzaledger_scheduler_job_timeouts_total",
			Help:        "Scheduler jobs stopped by their deadline.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "pizzaledger_scheduler_job_duration_seconds",
			Help:        "Scheduler job latency.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			ConstLabels: constLabels,
		}, []string{"job"}),
		violations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "pizzaledger_ledger_integrity_violations",
			Help:        "Violations found by the last integrity check.",
			ConstLabels: constLabels,
		}),
	}
	m.jobRuns = register(registerer, m.jobRuns)
	m.jobErrors = register(registerer, m.jobErrors)
	m.jobTimeouts = register(registerer, m.jobTimeouts)
	m.jobDuration = register(registerer, m.jobDuration)
	m.violations = register(registerer, m.violations)
	return m
}

func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) T {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return collector
}

func (m *Metrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *Metrics) IncJobError(job string) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(job).Inc()
}

func (m *Metrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

func (m *Metrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *Metrics) SetViolations(n int) {
	if m == nil {
		return
	}
	m.violations.Set(float64(n))
}
