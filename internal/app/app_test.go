package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"farebridge/internal/config"
	"farebridge/internal/domain"
	"farebridge/internal/handler"
	"farebridge/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMetrics_Observer(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.EventHandled(domain.EventVehicleEnter, domain.OutcomeApplied)
	m.EventHandled(domain.EventVehicleEnter, domain.OutcomeApplied)
	m.RecordEmitted(domain.MoneyRecord{Tag: domain.TagFare, Amount: -2.5})
	m.Anomaly(service.AnomalyStrayLeave, "p1")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()

	for _, want := range []string{
		`farebridge_events_total{kind="vehicle_enter",outcome="applied"} 2`,
		`farebridge_records_total{tag="fare"} 1`,
		`farebridge_amount_total{tag="fare"} 2.5`,
		`farebridge_anomalies_total{kind="stray_leave"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetrics_RegisterTwiceReusesCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("second NewMetrics: %v", err)
	}
	if first.Events != second.Events {
		t.Error("expected the existing collector to be reused")
	}
}

func TestNewRelicObserver_NilAppIsNoop(t *testing.T) {
	t.Parallel()

	o := NewNewRelicObserver(nil)
	o.EventHandled(domain.EventTransitEnter, domain.OutcomeIgnored)
	o.RecordEmitted(domain.MoneyRecord{})
	o.Anomaly(service.AnomalyFleetMismatch, "p1")
}

func TestNewNewRelicApp_DisabledReturnsNil(t *testing.T) {
	t.Parallel()

	app, err := NewNewRelicApp(config.NewRelicConfig{Enabled: false})
	if err != nil || app != nil {
		t.Errorf("NewNewRelicApp = %v, %v, want nil, nil", app, err)
	}
}

func TestPipeline_EndToEnd(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "compass_card_log.csv")
	p, err := NewPipeline(config.SinkConfig{
		BatchSize:      100,
		FlushInterval:  time.Hour,
		CompassLogPath: path,
	}, PipelineDeps{})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	settlement := service.NewSettlement(service.SettlementDeps{
		Fleet:   Fleet(config.FleetConfig{Transit: []string{"bus_1"}, Shared: []string{"bike_1"}}),
		Policy:  FarePolicy(config.FareConfig{TransferWindowSec: 1800, FreeBikeSeconds: 900, OveragePerMinute: 0.29, UnlockFee: 1, WaiveUnlockWhenEligible: true, FirstMileEnabled: true, SourceLabel: "shared-mobility"}),
		Audit:   p.Audit,
		Emitter: p.Head,
		Sinks:   p,
	})

	ctx := context.Background()
	for _, ev := range []domain.Event{
		{RiderID: "p1", Time: 0, VehicleID: "bus_1", Kind: domain.EventTransitLeave},
		{RiderID: "p1", Time: 100, VehicleID: "bike_1", Kind: domain.EventVehicleEnter},
		{RiderID: "p1", Time: 500, VehicleID: "bike_1", Kind: domain.EventVehicleLeave},
		{RiderID: "p2", Time: 0, VehicleID: "bike_1", Kind: domain.EventVehicleEnter},
		{RiderID: "p2", Time: 1000, VehicleID: "bike_1", Kind: domain.EventVehicleLeave},
		{RiderID: "p2", Time: 1500, VehicleID: "bus_1", Kind: domain.EventTransitEnter},
	} {
		settlement.Handle(ctx, ev)
	}

	if err := settlement.OnShutdown(ctx); err != nil {
		t.Fatalf("OnShutdown: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"iteration,person_id,trip_end_time,trip_type,fare_paid",
		"0,p1,500.00,Transit_Transfer,0.00",
		"0,p2,1000.00,Standard,5.83",
		"0,p2,1500.00,FirstMile_Refund,-5.35",
		"",
	}, "\n")
	if string(data) != want {
		t.Errorf("compass log =\n%s\nwant\n%s", data, want)
	}
	if p.Memory.Len() != 3 {
		t.Errorf("memory records = %d, want 3", p.Memory.Len())
	}
	if dropped := p.Dropped()["compass-log"]; dropped != 0 {
		t.Errorf("dropped = %d", dropped)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	m.EventHandled(domain.EventTransitLeave, domain.OutcomeApplied)

	p, err := NewPipeline(config.SinkConfig{}, PipelineDeps{})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	settlement := service.NewSettlement(service.SettlementDeps{
		Fleet:   domain.NewFleet([]string{"bus_1"}, nil),
		Policy:  service.DefaultFarePolicy(),
		Audit:   p.Audit,
		Emitter: p.Head,
	})
	router := NewRouter(RouterDeps{
		SettlementHandler: handler.NewSettlementHandler(settlement, p.Memory, 2),
		RiderHandler:      handler.NewRiderHandler(settlement, p.Memory),
		Metrics:           m.Handler(),
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("/health status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "farebridge_events_total") {
		t.Errorf("/metrics status = %d body = %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/anomalies", nil))
	if w.Code != http.StatusOK {
		t.Errorf("/v1/anomalies status = %d", w.Code)
	}
}
