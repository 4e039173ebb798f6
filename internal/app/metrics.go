package app

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"farebridge/internal/domain"
	"farebridge/internal/service"
)

// Metrics exports settlement counters to Prometheus. It implements
// service.Observer.
type Metrics struct {
	gatherer prometheus.Gatherer

	Events    *prometheus.CounterVec
	Records   *prometheus.CounterVec
	Amount    *prometheus.CounterVec
	Anomalies *prometheus.CounterVec
}

var _ service.Observer = (*Metrics)(nil)

// NewMetrics registers the settlement metrics against reg, defaulting to the
// global registry when nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	events, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farebridge_events_total",
		Help: "Transport events handled, labeled by kind and outcome.",
	}, []string{"kind", "outcome"}), "farebridge_events_total")
	if err != nil {
		return nil, err
	}

	records, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farebridge_records_total",
		Help: "Money records emitted, labeled by tag.",
	}, []string{"tag"}), "farebridge_records_total")
	if err != nil {
		return nil, err
	}

	amount, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farebridge_amount_total",
		Help: "Absolute currency amount emitted, labeled by tag.",
	}, []string{"tag"}), "farebridge_amount_total")
	if err != nil {
		return nil, err
	}

	anomalies, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farebridge_anomalies_total",
		Help: "Recoverable anomalies counted by the settlement core, labeled by kind.",
	}, []string{"kind"}), "farebridge_anomalies_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:  gatherer,
		Events:    events,
		Records:   records,
		Amount:    amount,
		Anomalies: anomalies,
	}, nil
}

func (m *Metrics) EventHandled(kind domain.EventKind, outcome domain.Outcome) {
	m.Events.WithLabelValues(string(kind), string(outcome)).Inc()
}

func (m *Metrics) RecordEmitted(rec domain.MoneyRecord) {
	m.Records.WithLabelValues(string(rec.Tag)).Inc()
	amount := rec.Amount
	if amount < 0 {
		amount = -amount
	}
	m.Amount.WithLabelValues(string(rec.Tag)).Add(amount)
}

func (m *Metrics) Anomaly(kind service.AnomalyKind, _ domain.RiderID) {
	m.Anomalies.WithLabelValues(string(kind)).Inc()
}

// Handler exposes the /metrics handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
