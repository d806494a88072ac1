package journal

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/deltacrown/herald/id"
)

// Service records delivery history and computes operator statistics.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new journal service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
	}
}

// RecordAttempt appends an attempt row. Journal write failures are logged,
// not propagated: losing a log row must never fail a delivery.
func (svc *Service) RecordAttempt(ctx context.Context, a *Attempt) {
	if err := svc.store.AppendAttempt(ctx, a); err != nil {
		svc.logger.ErrorContext(ctx, "journal append attempt failed",
			"delivery_id", a.DeliveryID, "attempt", a.Number, "error", err)
	}
}

// RecordSummary appends the terminal summary row for a delivery.
func (svc *Service) RecordSummary(ctx context.Context, s *Summary) {
	if err := svc.store.AppendSummary(ctx, s); err != nil {
		svc.logger.ErrorContext(ctx, "journal append summary failed",
			"delivery_id", s.DeliveryID, "state", s.State, "error", err)
	}
}

// Attempts returns all attempts for a delivery ID, ordered by attempt number.
func (svc *Service) Attempts(ctx context.Context, deliveryID uuid.UUID) ([]*Attempt, error) {
	return svc.store.ListAttemptsByDelivery(ctx, deliveryID)
}

// AttemptsByEndpoint returns attempt history for an endpoint, newest first.
func (svc *Service) AttemptsByEndpoint(ctx context.Context, epID id.ID, opts ListOpts) ([]*Attempt, error) {
	return svc.store.ListAttemptsByEndpoint(ctx, epID, opts)
}

// Stats holds the operator-facing health numbers for a time window.
type Stats struct {
	Deliveries       int64   `json:"deliveries"`
	Delivered        int64   `json:"delivered"`
	FailedPermanent  int64   `json:"failed_permanent"`
	FailedExhausted  int64   `json:"failed_exhausted"`
	CircuitRejected  int64   `json:"circuit_rejected"`
	SuccessRate      float64 `json:"success_rate"`
	P50LatencyMs     int     `json:"p50_latency_ms"`
	P95LatencyMs     int     `json:"p95_latency_ms"`
	AttemptsRecorded int64   `json:"attempts_recorded"`
}

// Stats computes success rate and latency percentiles over everything
// recorded since the given instant. Success rate counts delivered summaries
// over all terminal summaries; percentiles come from the latency of
// attempts that actually hit the network.
func (svc *Service) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	summaries, err := svc.store.ListSummariesSince(ctx, since)
	if err != nil {
		return nil, err
	}
	attempts, err := svc.store.ListAttemptsSince(ctx, since)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		Deliveries:       int64(len(summaries)),
		AttemptsRecorded: int64(len(attempts)),
	}

	for _, s := range summaries {
		switch s.State {
		case StateDelivered:
			st.Delivered++
		case StateFailedPermanent:
			st.FailedPermanent++
		case StateFailedExhausted:
			st.FailedExhausted++
		case StateFailedCircuitOpen:
			st.CircuitRejected++
		}
	}

	if st.Deliveries > 0 {
		st.SuccessRate = float64(st.Delivered) / float64(st.Deliveries)
	}

	latencies := make([]int, 0, len(attempts))
	for _, a := range attempts {
		if a.Outcome == OutcomeCircuitRejected {
			continue // no network call, no latency
		}
		latencies = append(latencies, a.LatencyMs)
	}
	sort.Ints(latencies)
	st.P50LatencyMs = percentile(latencies, 50)
	st.P95LatencyMs = percentile(latencies, 95)

	return st, nil
}

// percentile returns the pth percentile of sorted values (nearest-rank).
func percentile(sorted []int, p int) int {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
