package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics defines counters for the deposit phases.
type Metrics interface {
	IncObjectsPrepared(source string)
	IncObjectsIngested(model string)
	IncIngestFailed(step string)
	IncObjectsPostProcessed(model string)
	IncObjectsValidated(outcome string)
	IncCheckResult(check, outcome string)
	ObservePhaseDuration(phase string, durationSeconds float64)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncObjectsPrepared(string)            {}
func (Noop) IncObjectsIngested(string)            {}
func (Noop) IncIngestFailed(string)               {}
func (Noop) IncObjectsPostProcessed(string)       {}
func (Noop) IncObjectsValidated(string)           {}
func (Noop) IncCheckResult(string, string)        {}
func (Noop) ObservePhaseDuration(string, float64) {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	prepared      *prometheus.CounterVec
	ingested      *prometheus.CounterVec
	ingestFailed  *prometheus.CounterVec
	postProcessed *prometheus.CounterVec
	validated     *prometheus.CounterVec
	checks        *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	once          sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		prepared: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_prepared_total",
			Help:      "Manifest objects prepared by descriptive metadata source",
		}, []string{"source"}),
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_ingested_total",
			Help:      "Objects created in the repository by model",
		}, []string{"model"}),
		ingestFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_failures_total",
			Help:      "Ingestion runs aborted by failing step",
		}, []string{"step"}),
		postProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_post_processed_total",
			Help:      "Objects given generated structural metadata by model",
		}, []string{"model"}),
		validated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_validated_total",
			Help:      "Objects validated by outcome",
		}, []string{"outcome"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_checks_total",
			Help:      "Validation check results by check and outcome",
		}, []string{"check", "outcome"}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Phase duration seconds by phase",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.prepared, p.ingested, p.ingestFailed, p.postProcessed, p.validated, p.checks, p.phaseDuration)
	})
}

func (p *Prom) IncObjectsPrepared(source string) {
	p.prepared.WithLabelValues(source).Inc()
}

func (p *Prom) IncObjectsIngested(model string) {
	p.ingested.WithLabelValues(model).Inc()
}

func (p *Prom) IncIngestFailed(step string) {
	p.ingestFailed.WithLabelValues(step).Inc()
}

func (p *Prom) IncObjectsPostProcessed(model string) {
	p.postProcessed.WithLabelValues(model).Inc()
}

func (p *Prom) IncObjectsValidated(outcome string) {
	p.validated.WithLabelValues(outcome).Inc()
}

func (p *Prom) IncCheckResult(check, outcome string) {
	p.checks.WithLabelValues(check, outcome).Inc()
}

func (p *Prom) ObservePhaseDuration(phase string, durationSeconds float64) {
	p.phaseDuration.WithLabelValues(phase).Observe(durationSeconds)
}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
