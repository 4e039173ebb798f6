package tests

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"farebridge/internal/domain"
	"farebridge/internal/service"
)

// ──────────────────────────────────────────────
// 1. TRANSFER SCENARIOS
// ──────────────────────────────────────────────

func TestFlow_TransitThenBikeIsTransfer(t *testing.T) {
	t.Parallel()

	h := newHarness(service.DefaultFarePolicy())
	defer h.buffered.Close()
	ctx := context.Background()

	h.settlement.Handle(ctx, event("p1", 0, "bus_1", domain.EventTransitLeave))
	h.settlement.Handle(ctx, event("p1", 100, "bike_1", domain.EventVehicleEnter))
	h.settlement.Handle(ctx, event("p1", 500, "bike_1", domain.EventVehicleLeave))
	h.settlement.Handle(ctx, event("p1", 600, "bus_1", domain.EventTransitEnter))

	if err := h.settlement.OnShutdown(ctx); err != nil {
		t.Fatalf("OnShutdown: %v", err)
	}

	recs := h.repo.All()
	if len(recs) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(recs))
	}
	if recs[0].TripType != domain.TripTypeTransfer {
		t.Errorf("expected %s, got %s", domain.TripTypeTransfer, recs[0].TripType)
	}
	if recs[0].Amount != 0 || !math.Signbit(recs[0].Amount) {
		t.Errorf("expected -0 fare, got %v", recs[0].Amount)
	}
}

func TestFlow_BikeThenTransitIsFirstMileRefund(t *testing.T) {
	t.Parallel()

	h := newHarness(service.DefaultFarePolicy())
	defer h.buffered.Close()
	ctx := context.Background()

	h.settlement.Handle(ctx, event("p1", 0, "bike_1", domain.EventVehicleEnter))
	h.settlement.Handle(ctx, event("p1", 1000, "bike_1", domain.EventVehicleLeave))
	h.settlement.Handle(ctx, event("p1", 1500, "train_1", domain.EventTransitEnter))
	h.settlement.Handle(ctx, event("p1", 1600, "bus_2", domain.EventTransitEnter))
	h.settlement.OnShutdown(ctx)

	recs := h.repo.All()
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	fare := 1 + 0.29*1000/60
	if recs[0].TripType != domain.TripTypeStandard || math.Abs(recs[0].Amount+fare) > 1e-9 {
		t.Errorf("unexpected fare record %+v", recs[0])
	}
	refund := math.Min(0.29*15+1, fare)
	if recs[1].TripType != domain.TripTypeFirstMile || math.Abs(recs[1].Amount-refund) > 1e-9 {
		t.Errorf("unexpected refund record %+v", recs[1])
	}

	// Net cost is the fare less the refund.
	net := 0.0
	for _, rec := range h.memory.List() {
		net += rec.Amount
	}
	if math.Abs(net-(refund-fare)) > 1e-9 {
		t.Errorf("expected net %v, got %v", refund-fare, net)
	}
}

func TestFlow_AuditFlagPairsWithOwnTrip(t *testing.T) {
	t.Parallel()

	h := newHarness(service.DefaultFarePolicy())
	defer h.buffered.Close()
	ctx := context.Background()

	// First ride uses the credit, second does not.
	h.settlement.Handle(ctx, event("p1", 0, "bus_1", domain.EventTransitLeave))
	h.settlement.Handle(ctx, event("p1", 10, "bike_1", domain.EventVehicleEnter))
	h.settlement.Handle(ctx, event("p1", 20, "bike_1", domain.EventVehicleLeave))
	h.settlement.Handle(ctx, event("p1", 30, "bike_2", domain.EventVehicleEnter))
	h.settlement.Handle(ctx, event("p1", 40, "bike_2", domain.EventVehicleLeave))

	recs := h.memory.List()
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].TripType != domain.TripTypeTransfer || recs[1].TripType != domain.TripTypeStandard {
		t.Errorf("unexpected trip types %s, %s", recs[0].TripType, recs[1].TripType)
	}
}

func TestFlow_ExpiredCreditChargesFullFare(t *testing.T) {
	t.Parallel()

	h := newHarness(service.DefaultFarePolicy())
	defer h.buffered.Close()
	ctx := context.Background()

	h.settlement.Handle(ctx, event("p1", 0, "bus_1", domain.EventTransitLeave))
	h.settlement.Handle(ctx, event("p1", 1801, "bike_1", domain.EventVehicleEnter))
	h.settlement.Handle(ctx, event("p1", 2401, "bike_1", domain.EventVehicleLeave))

	recs := h.memory.List()
	if len(recs) != 1 || math.Abs(recs[0].Amount+(1+0.29*10)) > 1e-9 {
		t.Errorf("unexpected records %+v", recs)
	}
}

// ──────────────────────────────────────────────
// 2. ITERATIONS
// ──────────────────────────────────────────────

func TestFlow_IterationResetsStateAndStampsRecords(t *testing.T) {
	t.Parallel()

	h := newHarness(service.DefaultFarePolicy())
	defer h.buffered.Close()
	ctx := context.Background()

	h.settlement.Handle(ctx, event("p1", 0, "bus_1", domain.EventTransitLeave))
	if err := h.settlement.OnIterationStart(1); err != nil {
		t.Fatal(err)
	}
	h.settlement.Handle(ctx, event("p1", 100, "bike_1", domain.EventVehicleEnter))
	h.settlement.Handle(ctx, event("p1", 700, "bike_1", domain.EventVehicleLeave))
	h.settlement.OnShutdown(ctx)

	recs, err := h.repo.ListByRider(ctx, "p1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Iteration != 1 {
		t.Errorf("expected iteration 1, got %d", recs[0].Iteration)
	}
	if recs[0].TripType != domain.TripTypeStandard {
		t.Errorf("credit from previous iteration leaked: %+v", recs[0])
	}
}

// ──────────────────────────────────────────────
// 3. FAILURE ISOLATION
// ──────────────────────────────────────────────

func TestFlow_RepositoryFailureDoesNotReachCore(t *testing.T) {
	t.Parallel()

	h := newHarness(service.DefaultFarePolicy())
	h.repo.CreateBatchError = errors.New("connection reset")
	ctx := context.Background()

	h.settlement.Handle(ctx, event("p1", 0, "bike_1", domain.EventVehicleEnter))
	outcome := h.settlement.Handle(ctx, event("p1", 60, "bike_1", domain.EventVehicleLeave))
	if outcome != domain.OutcomeApplied {
		t.Errorf("expected applied, got %s", outcome)
	}
	if err := h.settlement.OnShutdown(ctx); err != nil {
		t.Errorf("flush should not surface writer errors, got %v", err)
	}
	h.buffered.Close()

	if h.memory.Len() != 1 {
		t.Errorf("in-memory record missing")
	}
	if h.buffered.Failed() != 1 {
		t.Errorf("expected 1 failed record, got %d", h.buffered.Failed())
	}
}

// ──────────────────────────────────────────────
// 4. CONCURRENCY
// ──────────────────────────────────────────────

func TestFlow_ConcurrentRidersSettleIndependently(t *testing.T) {
	t.Parallel()

	h := newHarness(service.DefaultFarePolicy())
	defer h.buffered.Close()
	ctx := context.Background()

	const riders = 200
	var wg sync.WaitGroup
	for i := 0; i < riders; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			h.settlement.Handle(ctx, event(id, 0, "bus_1", domain.EventTransitLeave))
			h.settlement.Handle(ctx, event(id, 60, "scooter_1", domain.EventVehicleEnter))
			h.settlement.Handle(ctx, event(id, 1260, "scooter_1", domain.EventVehicleLeave))
		}(fmt.Sprintf("p%d", i))
	}
	wg.Wait()
	h.settlement.OnShutdown(ctx)

	if h.repo.Count() != riders {
		t.Fatalf("expected %d records, got %d", riders, h.repo.Count())
	}
	want := -0.29 * 5
	for _, rec := range h.repo.All() {
		if math.Abs(rec.Amount-want) > 1e-9 || rec.TripType != domain.TripTypeTransfer {
			t.Errorf("rider %s: unexpected record %+v", rec.RiderID, rec)
		}
	}
	if got := h.observer.Outcomes(domain.OutcomeApplied); got != riders*3 {
		t.Errorf("expected %d applied events, got %d", riders*3, got)
	}
}

func TestFlow_ConcurrentPickupsSpendOneCredit(t *testing.T) {
	t.Parallel()

	h := newHarness(service.DefaultFarePolicy())
	defer h.buffered.Close()
	ctx := context.Background()

	h.settlement.Handle(ctx, event("p1", 0, "bus_1", domain.EventTransitLeave))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.settlement.Handle(ctx, event("p1", 10, "bike_1", domain.EventVehicleEnter))
		}()
	}
	wg.Wait()

	credits := h.settlement.Ledger().Credits("p1")
	if len(credits) != 1 || !credits[0].Consumed {
		t.Errorf("unexpected credits %+v", credits)
	}
	if got := h.settlement.Anomalies().SessionOverwrites; got != 15 {
		t.Errorf("expected 15 overwrites, got %d", got)
	}
	if got := h.observer.Anomalies(service.AnomalySessionOverwrite); got != 15 {
		t.Errorf("expected 15 observed overwrites, got %d", got)
	}
}

func TestFlow_BatchMatchesSequential(t *testing.T) {
	t.Parallel()

	var events []domain.Event
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("p%d", i)
		events = append(events,
			event(id, 0, "bike_1", domain.EventPersonEntersVehicle),
			event(id, float64(300+i*30), "bike_1", domain.EventPersonLeavesVehicle),
			event(id, float64(400+i*30), "bus_1", domain.EventPersonEntersVehicle),
		)
	}

	seq := newHarness(service.DefaultFarePolicy())
	defer seq.buffered.Close()
	for _, ev := range events {
		seq.settlement.Handle(context.Background(), ev)
	}

	par := newHarness(service.DefaultFarePolicy())
	defer par.buffered.Close()
	if _, err := par.settlement.HandleBatch(context.Background(), events, 8); err != nil {
		t.Fatal(err)
	}

	sum := func(h *harness) map[domain.RiderID]float64 {
		out := make(map[domain.RiderID]float64)
		for _, rec := range h.memory.List() {
			out[rec.RiderID] += rec.Amount
		}
		return out
	}
	want, got := sum(seq), sum(par)
	if len(got) != len(want) {
		t.Fatalf("expected %d riders, got %d", len(want), len(got))
	}
	for id, v := range want {
		if math.Abs(got[id]-v) > 1e-9 {
			t.Errorf("rider %s: expected net %v, got %v", id, v, got[id])
		}
	}
}
