package internal

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records agent calls, rounds and verdicts on a private Prometheus registry
type Metrics struct {
	registry      *prometheus.Registry
	agentCalls    *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	rounds        prometheus.Counter
	roundDuration prometheus.Histogram
	verdicts      *prometheus.CounterVec
}

// NewMetrics creates a recorder with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		agentCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "council_agent_calls_total",
				Help: "Agent invocations by agent, status and failure reason",
			},
			[]string{"agent", "status", "reason"},
		),
		callDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "council_agent_call_duration_seconds",
				Help:    "Wall-clock duration of agent invocations",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 180, 300},
			},
			[]string{"agent"},
		),
		rounds: factory.NewCounter(prometheus.CounterOpts{
			Name: "council_rounds_total",
			Help: "Deliberation rounds completed",
		}),
		roundDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "council_round_duration_seconds",
			Help:    "Wall-clock duration of a full round",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 180, 300},
		}),
		verdicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "council_verdicts_total",
				Help: "Sessions concluded by verdict kind",
			},
			[]string{"kind"},
		),
	}
}

// ObserveCall records one agent response
func (m *Metrics) ObserveCall(resp AgentResponse) {
	status, reason := "success", ""
	if !resp.Success {
		status, reason = "failure", failureReason(resp.Error)
	}
	m.agentCalls.WithLabelValues(resp.AgentID, status, reason).Inc()
	m.callDuration.WithLabelValues(resp.AgentID).Observe(resp.Elapsed.Seconds())
}

// ObserveRound records a completed round
func (m *Metrics) ObserveRound(d time.Duration) {
	m.rounds.Inc()
	m.roundDuration.Observe(d.Seconds())
}

// ObserveVerdict records a concluded session
func (m *Metrics) ObserveVerdict(kind VerdictKind) {
	m.verdicts.WithLabelValues(string(kind)).Inc()
}

// Registry exposes the underlying registry, e.g. for gathering in tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format, for node_exporter's
// textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return &StorageError{Path: path, Op: "write metrics", Err: err}
	}
	return nil
}

// failureReason keeps label cardinality bounded by reducing an error to its class
func failureReason(errText string) string {
	reason := strings.TrimSpace(errText)
	if i := strings.Index(reason, ":"); i >= 0 {
		reason = reason[:i]
	}
	switch {
	case reason == "timeout", reason == "cancelled", reason == "start", reason == "empty response":
		return reason
	case strings.HasPrefix(reason, "exit status"):
		return "exit"
	default:
		return "error"
	}
}
