package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riskibarqy/livescore/internal/platform/resilience"
	"github.com/riskibarqy/livescore/internal/usecase"
)

const metricsNamespace = "livescore"

// PollMetrics exports poll outcomes and session counts. Match ids are kept out
// of label values to bound series cardinality.
type PollMetrics struct {
	registry      *prometheus.Registry
	polls         *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	sessions      prometheus.Gauge
	sessionStarts prometheus.Counter
	circuitState  *prometheus.GaugeVec
}

var _ usecase.PollObserver = (*PollMetrics)(nil)

func NewPollMetrics() (*PollMetrics, error) {
	m := &PollMetrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "polls_total",
			Help:      "Completed poll cycles by result.",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "poll_fetch_duration_seconds",
			Help:      "Provider fetch latency per poll cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"result"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_sessions",
			Help:      "Watch sessions currently polling or paused.",
		}),
		sessionStarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "session_starts_total",
			Help:      "Watch sessions started.",
		}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "feed_circuit_state",
			Help:      "1 for the current provider circuit breaker state.",
		}, []string{"state"}),
	}

	for _, c := range []prometheus.Collector{
		m.polls,
		m.fetchDuration,
		m.sessions,
		m.sessionStarts,
		m.circuitState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metric collector: %w", err)
		}
	}
	m.ObserveCircuitState(resilience.CircuitStateClosed, resilience.CircuitStateClosed)

	return m, nil
}

func (m *PollMetrics) ObservePoll(_ string, result usecase.PollResult, elapsed time.Duration) {
	m.polls.WithLabelValues(string(result)).Inc()
	m.fetchDuration.WithLabelValues(string(result)).Observe(elapsed.Seconds())
}

func (m *PollMetrics) SessionStarted(string) {
	m.sessions.Inc()
	m.sessionStarts.Inc()
}

func (m *PollMetrics) SessionStopped(string) {
	m.sessions.Dec()
}

// ObserveCircuitState matches resilience.CircuitBreakerConfig.OnStateChange.
func (m *PollMetrics) ObserveCircuitState(_, to resilience.CircuitState) {
	for _, state := range []resilience.CircuitState{
		resilience.CircuitStateClosed,
		resilience.CircuitStateOpen,
		resilience.CircuitStateHalfOpen,
	} {
		value := 0.0
		if state == to {
			value = 1
		}
		m.circuitState.WithLabelValues(string(state)).Set(value)
	}
}

// RegisterGaugeFunc exports a value sampled at scrape time.
func (m *PollMetrics) RegisterGaugeFunc(name, help string, fn func() float64) error {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      name,
		Help:      help,
	}, fn)
	if err := m.registry.Register(gauge); err != nil {
		return fmt.Errorf("register gauge %s: %w", name, err)
	}
	return nil
}

func (m *PollMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
