package chat

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
)

var chatTracer = otel.Tracer("askweb/internal/chat")

// Metrics are the orchestrator's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	queries            *prometheus.CounterVec
	gateVerdicts       *prometheus.CounterVec
	retrievalFailures  *prometheus.CounterVec
	generationFailures prometheus.Counter
	duration           *prometheus.HistogramVec
	evictions          *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg. liveSessions, when set, backs the sessions gauge.
func NewMetrics(reg prometheus.Registerer, liveSessions func() int) *Metrics {
	m := &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "askweb", Name: "queries_total",
			Help: "Queries handled, by path (reuse or search).",
		}, []string{"path"}),
		gateVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "askweb", Name: "gate_verdicts_total",
			Help: "Topic gate verdicts by outcome and source.",
		}, []string{"verdict", "source"}),
		retrievalFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "askweb", Name: "retrieval_failures_total",
			Help: "Aborted turns by failure kind.",
		}, []string{"kind"}),
		generationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "askweb", Name: "generation_failures_total",
			Help: "Completion calls for answers that failed.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "askweb", Name: "query_duration_seconds",
			Help:    "End-to-end query latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"path"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "askweb", Name: "sessions_evicted_total",
			Help: "Sessions removed from the store, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.queries, m.gateVerdicts, m.retrievalFailures, m.generationFailures, m.duration, m.evictions)
	if liveSessions != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "askweb", Name: "sessions_live",
			Help: "Sessions currently held in memory.",
		}, func() float64 { return float64(liveSessions()) }))
	}
	return m
}

func (m *Metrics) observeQuery(path string, d time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(path).Inc()
	m.duration.WithLabelValues(path).Observe(d.Seconds())
}

func (m *Metrics) observeVerdict(v Verdict) {
	if m == nil {
		return
	}
	verdict := "irrelevant"
	if v.Relevant {
		verdict = "relevant"
	}
	m.gateVerdicts.WithLabelValues(verdict, v.Source).Inc()
}

func (m *Metrics) observeFailure(kind string) {
	if m == nil {
		return
	}
	m.retrievalFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) observeGenerationFailure() {
	if m == nil {
		return
	}
	m.generationFailures.Inc()
}

// ObserveEviction counts a session leaving the store.
func (m *Metrics) ObserveEviction(reason string) {
	if m == nil {
		return
	}
	m.evictions.WithLabelValues(reason).Inc()
}
