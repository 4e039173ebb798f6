package app

import (
	"github.com/newrelic/go-agent/v3/newrelic"

	"farebridge/internal/config"
	"farebridge/internal/domain"
	"farebridge/internal/service"
)

// NewNewRelicApp starts the New Relic agent when enabled and licensed.
// It returns nil otherwise.
func NewNewRelicApp(cfg config.NewRelicConfig) (*newrelic.Application, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		return nil, nil
	}
	return newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
}

// NewRelicObserver reports settlement activity to New Relic as custom
// metrics and anomaly custom events.
type NewRelicObserver struct {
	app *newrelic.Application
}

var _ service.Observer = (*NewRelicObserver)(nil)

// NewNewRelicObserver creates an observer. A nil app makes it a no-op.
func NewNewRelicObserver(app *newrelic.Application) *NewRelicObserver {
	return &NewRelicObserver{app: app}
}

func (o *NewRelicObserver) EventHandled(kind domain.EventKind, outcome domain.Outcome) {
	if o.app == nil {
		return
	}
	o.app.RecordCustomMetric("Custom/Settlement/Events/"+string(kind)+"/"+string(outcome), 1)
}

func (o *NewRelicObserver) RecordEmitted(rec domain.MoneyRecord) {
	if o.app == nil {
		return
	}
	o.app.RecordCustomMetric("Custom/Settlement/Amount/"+string(rec.Tag), rec.Amount)
}

func (o *NewRelicObserver) Anomaly(kind service.AnomalyKind, riderID domain.RiderID) {
	if o.app == nil {
		return
	}
	o.app.RecordCustomEvent("SettlementAnomaly", map[string]any{
		"kind":    string(kind),
		"riderId":  string(riderID),
	})
}
