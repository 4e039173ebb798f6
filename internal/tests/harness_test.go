package tests

import (
	"time"

	"farebridge/internal/domain"
	"farebridge/internal/service"
	"farebridge/internal/sink"
)

// harness wires a settlement core to an in-memory pipeline backed by a mock
// repository, the same shape the server uses.
type harness struct {
	settlement *service.Settlement
	memory     *sink.Memory
	buffered   *sink.Buffered
	repo       *MockMoneyRecordRepository
	observer   *MockObserver
}

func newHarness(policy service.FarePolicy) *harness {
	repo := NewMockMoneyRecordRepository()
	observer := NewMockObserver()
	audit := service.NewTransferAudit()
	memory := sink.NewMemory(0)
	buffered := sink.NewBuffered(sink.BufferedConfig{
		Name:          "postgres",
		BatchSize:     64,
		FlushInterval: 50 * time.Millisecond,
	}, sink.BatchWriterFunc(repo.CreateBatch), nil)
	fanout := sink.Multi{memory, buffered}

	settlement := service.NewSettlement(service.SettlementDeps{
		Fleet:    domain.NewFleet([]string{"bus_1", "bus_2", "train_1"}, []string{"bike_1", "bike_2", "scooter_1"}),
		Policy:   policy,
		Audit:    audit,
		Emitter:  sink.NewClassifier(audit, fanout),
		Sinks:    fanout,
		Observer: observer,
	})

	return &harness{
		settlement: settlement,
		memory:     memory,
		buffered:   buffered,
		repo:       repo,
		observer:   observer,
	}
}

func event(rider string, t float64, vehicle string, kind domain.EventKind) domain.Event {
	return domain.Event{RiderID: domain.RiderID(rider), Time: t, VehicleID: vehicle, Kind: kind}
}
