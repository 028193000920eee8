package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "ethlogs"

// Labels are constant labels applied to every metric.
type Labels struct {
	ChainID uint64
	Pool    string
}

// Only non-empty labels are included.
func (l Labels) toPrometheusLabels() prometheus.Labels {
	labels := prometheus.Labels{}
	if l.ChainID != 0 {
		labels["evm_chain_id"] = strconv.FormatUint(l.ChainID, 10)
	}
	if l.Pool != "" {
		labels["pool"] = l.Pool
	}
	return labels
}

// Metrics instruments the log pipeline. A nil *Metrics is valid and records nothing.
type Metrics struct {
	logsReceived    prometheus.Counter
	eventsPersisted *prometheus.CounterVec
	eventsSkipped   *prometheus.CounterVec
	failures        *prometheus.CounterVec
	persistDuration prometheus.Histogram
}

// New creates a Metrics instance and registers it with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	return NewWithLabels(reg, Labels{})
}

// NewWithLabels is New with constant labels.
func NewWithLabels(reg prometheus.Registerer, labels Labels) (*Metrics, error) {
	promLabels := labels.toPrometheusLabels()
	if len(promLabels) > 0 {
		reg = prometheus.WrapRegistererWith(promLabels, reg)
	}

	m := &Metrics{
		logsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "logs_received_total",
			Help:      "Total pool logs received from the stream",
		}),
		eventsPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_persisted_total",
			Help:      "Total logs committed to the store by event kind",
		}, []string{"event"}),
		eventsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_skipped_total",
			Help:      "Total logs whose event has no payload table, by event name",
		}, []string{"event"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "failures_total",
			Help:      "Total pipeline failures by stage",
		}, []string{"stage"}),
		persistDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "persist_duration_seconds",
			Help:      "Time to persist one log (envelope, payload and commit)",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}

	err := errors.Join(
		reg.Register(m.logsReceived),
		reg.Register(m.eventsPersisted),
		reg.Register(m.eventsSkipped),
		reg.Register(m.failures),
		reg.Register(m.persistDuration),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) IncLogsReceived() {
	if m == nil {
		return
	}
	m.logsReceived.Inc()
}

// RecordPersisted counts a committed log and its persist latency.
func (m *Metrics) RecordPersisted(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.eventsPersisted.WithLabelValues(kind).Inc()
	m.persistDuration.Observe(seconds)
}

// IncSkipped counts an event that was recorded as an envelope only.
// An empty name means topic0 was not part of the pool ABI.
func (m *Metrics) IncSkipped(name string) {
	if m == nil {
		return
	}
	if name == "" {
		name = "unknown"
	}
	m.eventsSkipped.WithLabelValues(name).Inc()
}

func (m *Metrics) IncFailure(stage string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(stage).Inc()
}
