package delivery_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deltacrown/herald/circuit"
	"github.com/deltacrown/herald/delivery"
	"github.com/deltacrown/herald/dlq"
	"github.com/deltacrown/herald/envelope"
	"github.com/deltacrown/herald/journal"
	"github.com/deltacrown/herald/ratelimit"
	"github.com/deltacrown/herald/signature"
	"github.com/deltacrown/herald/store/memory"
)

type schedulerEnv struct {
	store    *memory.Store
	breakers *circuit.Registry
	sleeps   *[]time.Duration
}

func newTestScheduler(t *testing.T) (*delivery.Scheduler, *schedulerEnv) {
	t.Helper()

	st := memory.New()
	breakers := circuit.NewRegistry(circuit.DefaultConfig())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sleeps := new([]time.Duration)
	s := delivery.NewScheduler(
		delivery.SchedulerConfig{
			MaxAttempts:    3,
			Backoff:        []time.Duration{0, 2 * time.Second, 4 * time.Second},
			RequestTimeout: 5 * time.Second,
		},
		breakers,
		ratelimit.New(),
		journal.NewService(st, logger),
		dlq.NewService(st, logger),
		nil,
		logger,
		delivery.WithSleep(func(_ context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return nil
		}),
	)

	return s, &schedulerEnv{store: st, breakers: breakers, sleeps: sleeps}
}

func TestDeliverFirstAttemptSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, env := newTestScheduler(t)
	ep := newTestEndpoint(srv.URL)
	evt := newTestEvent(t, ep)

	state := s.Deliver(context.Background(), evt, ep)

	if state != journal.StateDelivered {
		t.Fatalf("state = %v, want delivered", state)
	}
	if hits.Load() != 1 {
		t.Fatalf("server hit %d times, want 1", hits.Load())
	}
	if len(*env.sleeps) != 0 {
		t.Fatalf("unexpected backoff sleeps: %v", *env.sleeps)
	}

	attempts, err := env.store.ListAttemptsByDelivery(context.Background(), evt.DeliveryID)
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 1 {
		t.Fatalf("got %d attempt rows, want 1", len(attempts))
	}
	if attempts[0].Number != 1 || attempts[0].Outcome != journal.OutcomeSuccess || attempts[0].StatusCode != 200 {
		t.Fatalf("unexpected attempt row: %+v", attempts[0])
	}

	summaries, err := env.store.ListSummariesSince(context.Background(), time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 || summaries[0].State != journal.StateDelivered || summaries[0].Attempts != 1 {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
}

func TestDeliverRetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	var webhookIDs []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		webhookIDs = append(webhookIDs, r.Header.Get("X-Webhook-Id"))
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, env := newTestScheduler(t)
	ep := newTestEndpoint(srv.URL)
	evt := newTestEvent(t, ep)

	state := s.Deliver(context.Background(), evt, ep)

	if state != journal.StateDelivered {
		t.Fatalf("state = %v, want delivered", state)
	}
	if hits.Load() != 3 {
		t.Fatalf("server hit %d times, want 3", hits.Load())
	}

	// Backoff before attempts 2 and 3; the first attempt is immediate.
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(*env.sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", *env.sleeps, want)
	}
	for i, d := range want {
		if (*env.sleeps)[i] != d {
			t.Errorf("sleep %d = %v, want %v", i, (*env.sleeps)[i], d)
		}
	}

	// The delivery ID is stable across retries.
	for i, got := range webhookIDs {
		if got != evt.DeliveryID.String() {
			t.Errorf("attempt %d X-Webhook-Id = %q, want %q", i+1, got, evt.DeliveryID)
		}
	}

	attempts, err := env.store.ListAttemptsByDelivery(context.Background(), evt.DeliveryID)
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 3 {
		t.Fatalf("got %d attempt rows, want 3", len(attempts))
	}
	wantOutcomes := []journal.Outcome{journal.OutcomeRetryable, journal.OutcomeRetryable, journal.OutcomeSuccess}
	for i, a := range attempts {
		if a.Number != i+1 {
			t.Errorf("attempt %d has number %d", i, a.Number)
		}
		if a.Outcome != wantOutcomes[i] {
			t.Errorf("attempt %d outcome = %v, want %v", i+1, a.Outcome, wantOutcomes[i])
		}
	}
}

func TestDeliverSignsEachAttemptFreshly(t *testing.T) {
	var hits atomic.Int32
	type attemptCapture struct {
		sig  string
		ts   int64
		body []byte
	}
	var captures []attemptCapture

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		ts, _ := strconv.ParseInt(r.Header.Get("X-Webhook-Timestamp"), 10, 64)
		captures = append(captures, attemptCapture{
			sig:  r.Header.Get("X-Webhook-Signature"),
			ts:   ts,
			body: body,
		})
		if n < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, _ := newTestScheduler(t)
	ep := newTestEndpoint(srv.URL)
	evt := newTestEvent(t, ep)

	if state := s.Deliver(context.Background(), evt, ep); state != journal.StateDelivered {
		t.Fatalf("state = %v, want delivered", state)
	}

	if len(captures) != 2 {
		t.Fatalf("captured %d attempts, want 2", len(captures))
	}
	for i, c := range captures {
		// Every attempt signs the identical frozen body under its own timestamp.
		if string(c.body) != string(evt.Body) {
			t.Errorf("attempt %d body differs from frozen envelope", i+1)
		}
		if !signature.Verify(ep.Secret, c.ts, c.body, c.sig) {
			t.Errorf("attempt %d signature does not verify", i+1)
		}
	}
}

func TestDeliverPermanentFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s, env := newTestScheduler(t)
	ep := newTestEndpoint(srv.URL)
	evt := newTestEvent(t, ep)

	state := s.Deliver(context.Background(), evt, ep)

	if state != journal.StateFailedPermanent {
		t.Fatalf("state = %v, want failed_permanent", state)
	}
	if hits.Load() != 1 {
		t.Fatalf("server hit %d times, want 1 (4xx is never retried)", hits.Load())
	}

	// A 4xx does not count toward circuit health.
	snap := env.breakers.Snapshot()
	if snap[ep.ID.String()].FailureCount != 0 {
		t.Errorf("4xx counted toward breaker failures: %+v", snap[ep.ID.String()])
	}
	if snap[ep.ID.String()].State != circuit.StateClosed {
		t.Errorf("breaker state = %v, want closed", snap[ep.ID.String()].State)
	}

	entries, err := env.store.ListDLQ(context.Background(), dlq.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d DLQ entries, want 1", len(entries))
	}
	e := entries[0]
	if e.State != string(journal.StateFailedPermanent) || e.LastStatusCode != 404 || e.Attempts != 1 {
		t.Fatalf("unexpected DLQ entry: %+v", e)
	}
	if string(e.Body) != string(evt.Body) {
		t.Error("DLQ entry must preserve the frozen body for replay")
	}
}

func TestDeliverExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s, env := newTestScheduler(t)
	ep := newTestEndpoint(srv.URL)
	evt := newTestEvent(t, ep)

	state := s.Deliver(context.Background(), evt, ep)

	if state != journal.StateFailedExhausted {
		t.Fatalf("state = %v, want failed_exhausted", state)
	}
	if hits.Load() != 3 {
		t.Fatalf("server hit %d times, want exactly 3", hits.Load())
	}

	snap := env.breakers.Snapshot()
	if snap[ep.ID.String()].FailureCount != 3 {
		t.Errorf("breaker failure count = %d, want 3", snap[ep.ID.String()].FailureCount)
	}

	entries, err := env.store.ListDLQ(context.Background(), dlq.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d DLQ entries, want 1", len(entries))
	}
	if entries[0].Attempts != 3 || entries[0].State != string(journal.StateFailedExhausted) {
		t.Fatalf("unexpected DLQ entry: %+v", entries[0])
	}
}

func TestDeliverCircuitRejected(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, env := newTestScheduler(t)
	ep := newTestEndpoint(srv.URL)
	evt := newTestEvent(t, ep)

	// Trip the breaker before delivering.
	for i := 0; i < 5; i++ {
		env.breakers.RecordFailure(ep.ID.String())
	}

	state := s.Deliver(context.Background(), evt, ep)

	if state != journal.StateFailedCircuitOpen {
		t.Fatalf("state = %v, want failed_circuit_open", state)
	}
	if hits.Load() != 0 {
		t.Fatal("circuit-rejected delivery must not hit the network")
	}

	attempts, err := env.store.ListAttemptsByDelivery(context.Background(), evt.DeliveryID)
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 1 {
		t.Fatalf("got %d attempt rows, want 1", len(attempts))
	}
	if attempts[0].Outcome != journal.OutcomeCircuitRejected {
		t.Fatalf("outcome = %v, want circuit_rejected", attempts[0].Outcome)
	}
	if attempts[0].SignedTimestamp != 0 {
		t.Error("circuit-rejected attempt should have no signed timestamp")
	}

	// Circuit rejections are not dead-lettered; they surface via the journal.
	count, err := env.store.CountDLQ(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("DLQ count = %d, want 0", count)
	}
}

func TestDeliverProbeFailureReopensCircuit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	st := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	breakers := circuit.NewRegistry(circuit.DefaultConfig(), circuit.WithClock(func() time.Time { return now() }))

	s := delivery.NewScheduler(
		delivery.SchedulerConfig{
			MaxAttempts:    3,
			Backoff:        []time.Duration{0, 2 * time.Second, 4 * time.Second},
			RequestTimeout: 5 * time.Second,
		},
		breakers,
		ratelimit.New(),
		journal.NewService(st, logger),
		dlq.NewService(st, logger),
		nil,
		logger,
		delivery.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)

	ep := newTestEndpoint(srv.URL)
	for i := 0; i < 5; i++ {
		breakers.RecordFailure(ep.ID.String())
	}

	// Past the open period, the delivery is admitted as the half-open probe.
	// The 404 is a permanent failure, which must still reopen the circuit.
	clock = clock.Add(61 * time.Second)
	evt := newTestEvent(t, ep)
	state := s.Deliver(context.Background(), evt, ep)

	if state != journal.StateFailedPermanent {
		t.Fatalf("state = %v, want failed_permanent", state)
	}
	snap := breakers.Snapshot()
	if snap[ep.ID.String()].State != circuit.StateOpen {
		t.Fatalf("breaker state = %v after failed probe, want open", snap[ep.ID.String()].State)
	}
}

func TestDeliverAbandonedOnShutdown(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	st := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	breakers := circuit.NewRegistry(circuit.DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	s := delivery.NewScheduler(
		delivery.SchedulerConfig{
			MaxAttempts:    3,
			Backoff:        []time.Duration{0, 2 * time.Second, 4 * time.Second},
			RequestTimeout: 5 * time.Second,
		},
		breakers,
		ratelimit.New(),
		journal.NewService(st, logger),
		dlq.NewService(st, logger),
		nil,
		logger,
		delivery.WithSleep(func(sleepCtx context.Context, _ time.Duration) error {
			// Simulate shutdown arriving during the backoff wait.
			cancel()
			return sleepCtx.Err()
		}),
	)

	ep := newTestEndpoint(srv.URL)
	evt := newTestEvent(t, ep)

	state := s.Deliver(ctx, evt, ep)

	if state != "" {
		t.Fatalf("state = %v, want empty (abandoned)", state)
	}
	if hits.Load() != 1 {
		t.Fatalf("server hit %d times, want 1 (no retry after shutdown)", hits.Load())
	}
}

func TestJournalRowsCarryNoPayloadOrErrorText(t *testing.T) {
	s, env := newTestScheduler(t)

	// No server listening: the transport error will mention the target address.
	ep := newTestEndpoint("http://127.0.0.1:1")
	env2, err := envelope.Build("payment_verified", map[string]any{
		"player_email": "player@example.com",
		"amount":       500,
	}, "deltacrown")
	if err != nil {
		t.Fatal(err)
	}
	evt := env2.Bind(ep.ID, ep.URL)

	if state := s.Deliver(context.Background(), evt, ep); state != journal.StateFailedExhausted {
		t.Fatalf("state = %v, want failed_exhausted", state)
	}

	attempts, err := env.store.ListAttemptsByDelivery(context.Background(), evt.DeliveryID)
	if err != nil {
		t.Fatal(err)
	}
	summaries, err := env.store.ListSummariesSince(context.Background(), time.Time{})
	if err != nil {
		t.Fatal(err)
	}

	var rows []any
	for _, a := range attempts {
		rows = append(rows, a)
	}
	for _, sum := range summaries {
		rows = append(rows, sum)
	}

	for _, row := range rows {
		raw, err := json.Marshal(row)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(string(raw), "player@example.com") {
			t.Fatalf("journal row leaks payload data: %s", raw)
		}
		if strings.Contains(string(raw), "127.0.0.1") {
			t.Fatalf("journal row leaks transport error text: %s", raw)
		}
	}
}
