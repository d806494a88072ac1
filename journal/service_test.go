package journal_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/deltacrown/herald/id"
	"github.com/deltacrown/herald/internal/entity"
	"github.com/deltacrown/herald/journal"
	"github.com/deltacrown/herald/store/memory"
)

func ctx() context.Context { return context.Background() }

func newService() (*journal.Service, *memory.Store) {
	s := memory.New()
	return journal.NewService(s, nil), s
}

func record(svc *journal.Service, epID id.ID, state journal.State, latencies ...int) uuid.UUID {
	deliveryID := uuid.New()
	for i, ms := range latencies {
		outcome := journal.OutcomeRetryable
		if i == len(latencies)-1 && state == journal.StateDelivered {
			outcome = journal.OutcomeSuccess
		}
		svc.RecordAttempt(ctx(), &journal.Attempt{
			Entity:     entity.New(),
			ID:         id.NewAttemptID(),
			DeliveryID: deliveryID,
			EventType:  "payment_verified",
			EndpointID: epID,
			Number:     i + 1,
			Outcome:    outcome,
			LatencyMs:  ms,
		})
	}
	svc.RecordSummary(ctx(), &journal.Summary{
		Entity:      entity.New(),
		DeliveryID:  deliveryID,
		EventType:   "payment_verified",
		EndpointID:  epID,
		State:       state,
		Attempts:    len(latencies),
		CompletedAt: time.Now().UTC(),
	})
	return deliveryID
}

func TestStats(t *testing.T) {
	svc, _ := newService()
	epID := id.NewEndpointID()

	record(svc, epID, journal.StateDelivered, 10)
	record(svc, epID, journal.StateDelivered, 20)
	record(svc, epID, journal.StateFailedExhausted, 30, 40)

	// Circuit rejections carry no latency and must not skew percentiles.
	rejectedID := uuid.New()
	svc.RecordAttempt(ctx(), &journal.Attempt{
		Entity:     entity.New(),
		ID:         id.NewAttemptID(),
		DeliveryID: rejectedID,
		EventType:  "payment_verified",
		EndpointID: epID,
		Number:     1,
		Outcome:    journal.OutcomeCircuitRejected,
	})
	svc.RecordSummary(ctx(), &journal.Summary{
		Entity:      entity.New(),
		DeliveryID:  rejectedID,
		EventType:   "payment_verified",
		EndpointID:  epID,
		State:       journal.StateFailedCircuitOpen,
		Attempts:    1,
		CompletedAt: time.Now().UTC(),
	})

	st, err := svc.Stats(ctx(), time.Time{})
	if err != nil {
		t.Fatal(err)
	}

	if st.Deliveries != 4 {
		t.Errorf("deliveries = %d, want 4", st.Deliveries)
	}
	if st.Delivered != 2 {
		t.Errorf("delivered = %d, want 2", st.Delivered)
	}
	if st.FailedExhausted != 1 {
		t.Errorf("failed_exhausted = %d, want 1", st.FailedExhausted)
	}
	if st.CircuitRejected != 1 {
		t.Errorf("circuit_rejected = %d, want 1", st.CircuitRejected)
	}
	if st.SuccessRate != 0.5 {
		t.Errorf("success rate = %v, want 0.5", st.SuccessRate)
	}
	if st.AttemptsRecorded != 5 {
		t.Errorf("attempts recorded = %d, want 5", st.AttemptsRecorded)
	}

	// Latencies 10, 20, 30, 40 (nearest-rank percentiles).
	if st.P50LatencyMs != 20 {
		t.Errorf("p50 = %d, want 20", st.P50LatencyMs)
	}
	if st.P95LatencyMs != 40 {
		t.Errorf("p95 = %d, want 40", st.P95LatencyMs)
	}
}

func TestStatsEmpty(t *testing.T) {
	svc, _ := newService()

	st, err := svc.Stats(ctx(), time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if st.Deliveries != 0 || st.SuccessRate != 0 || st.P50LatencyMs != 0 {
		t.Fatalf("expected zero stats, got %+v", st)
	}
}

func TestAttemptsOrderedByNumber(t *testing.T) {
	svc, _ := newService()
	epID := id.NewEndpointID()
	deliveryID := uuid.New()

	// Append out of order; the store returns attempt-number order.
	for _, n := range []int{2, 1, 3} {
		svc.RecordAttempt(ctx(), &journal.Attempt{
			Entity:     entity.New(),
			ID:         id.NewAttemptID(),
			DeliveryID: deliveryID,
			EventType:  "match_started",
			EndpointID: epID,
			Number:     n,
			Outcome:    journal.OutcomeRetryable,
		})
	}

	attempts, err := svc.Attempts(ctx(), deliveryID)
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 3 {
		t.Fatalf("got %d attempts, want 3", len(attempts))
	}
	for i, a := range attempts {
		if a.Number != i+1 {
			t.Errorf("position %d has attempt number %d", i, a.Number)
		}
	}
}

func TestStatsWindowFilter(t *testing.T) {
	svc, _ := newService()
	epID := id.NewEndpointID()

	record(svc, epID, journal.StateDelivered, 5)

	// A cutoff in the future excludes everything just recorded.
	st, err := svc.Stats(ctx(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if st.Deliveries != 0 || st.AttemptsRecorded != 0 {
		t.Fatalf("expected empty window, got %+v", st)
	}
}
