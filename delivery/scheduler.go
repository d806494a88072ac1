package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/deltacrown/herald/circuit"
	"github.com/deltacrown/herald/dlq"
	"github.com/deltacrown/herald/endpoint"
	"github.com/deltacrown/herald/envelope"
	"github.com/deltacrown/herald/id"
	"github.com/deltacrown/herald/internal/entity"
	"github.com/deltacrown/herald/journal"
	"github.com/deltacrown/herald/observability"
	"github.com/deltacrown/herald/ratelimit"
)

// SleepFunc waits out a backoff delay. Injectable so tests can run the retry
// schedule without real time passing.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SchedulerConfig holds the retry policy for one delivery.
type SchedulerConfig struct {
	// MaxAttempts bounds attempts per delivery, first try included.
	MaxAttempts int

	// Backoff is the delay before each attempt, indexed by attempt number
	// minus one. The first entry should be zero.
	Backoff []time.Duration

	// RequestTimeout bounds each individual HTTP attempt.
	RequestTimeout time.Duration
}

// Scheduler runs one delivery to its terminal state: attempts are strictly
// sequential, gated by the endpoint's circuit breaker and rate limit, and
// every attempt plus the terminal summary is journaled.
type Scheduler struct {
	cfg      SchedulerConfig
	sender   *Sender
	breakers *circuit.Registry
	limiter  *ratelimit.Limiter
	journal  *journal.Service
	dlq      *dlq.Service
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	logger   *slog.Logger
	sleep    SleepFunc
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSleep injects the backoff wait. Used by tests.
func WithSleep(fn SleepFunc) SchedulerOption {
	return func(s *Scheduler) { s.sleep = fn }
}

// NewScheduler creates a delivery scheduler.
func NewScheduler(
	cfg SchedulerConfig,
	breakers *circuit.Registry,
	limiter *ratelimit.Limiter,
	jrnl *journal.Service,
	deadLetters *dlq.Service,
	metrics *observability.Metrics,
	logger *slog.Logger,
	opts ...SchedulerOption,
) *Scheduler {
	if metrics == nil {
		metrics = observability.NewDefaultMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		cfg:      cfg,
		sender:   NewSender(cfg.RequestTimeout),
		breakers: breakers,
		limiter:  limiter,
		journal:  jrnl,
		dlq:      deadLetters,
		metrics:  metrics,
		tracer:   observability.NewTracer(),
		logger:   logger,
		sleep:    sleepWithContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deliver drives one bound event to a terminal state and returns it. The
// returned state is empty only when the context is cancelled mid-retry
// (engine shutdown); an attempt already on the wire always completes.
func (s *Scheduler) Deliver(ctx context.Context, evt *envelope.Event, ep *endpoint.Endpoint) journal.State {
	key := ep.ID.String()

	// Shutdown must not abort an attempt that is already in flight, nor lose
	// its journal rows. Only the waits (backoff, rate limit) honor ctx.
	opCtx := context.WithoutCancel(ctx)

	for n := 1; n <= s.cfg.MaxAttempts; n++ {
		if delay := s.backoffFor(n); delay > 0 {
			if err := s.sleep(ctx, delay); err != nil {
				s.logger.WarnContext(opCtx, "delivery abandoned during backoff",
					"delivery_id", evt.DeliveryID, "endpoint_id", key, "attempt", n)
				return ""
			}
		}

		allowed, probe := s.breakers.Allow(key)
		if !allowed {
			// Terminal immediately: the delivery must not serve a second
			// wait on top of the breaker's own open period.
			s.recordAttempt(opCtx, evt, ep, n, journal.OutcomeCircuitRejected, Result{})
			s.metrics.CircuitRejections.Inc()
			return s.finish(opCtx, evt, ep, n, journal.StateFailedCircuitOpen)
		}

		if err := s.limiter.Wait(ctx, key, ep.RateLimit); err != nil {
			s.logger.WarnContext(opCtx, "delivery abandoned waiting for rate limit",
				"delivery_id", evt.DeliveryID, "endpoint_id", key, "attempt", n)
			return ""
		}

		spanCtx, span := s.tracer.StartAttemptSpan(opCtx, evt.DeliveryID.String(), evt.Type, key, n)
		res := s.sender.Send(spanCtx, evt, ep.Secret)
		outcome := Classify(res)
		s.tracer.EndAttemptSpan(span, string(outcome), res.StatusCode, res.LatencyMs)

		s.recordAttempt(opCtx, evt, ep, n, outcome, res)
		s.metrics.RecordAttempt(string(outcome), float64(res.LatencyMs)/1000)

		switch outcome {
		case journal.OutcomeSuccess:
			s.breakers.RecordSuccess(key)
			return s.finish(opCtx, evt, ep, n, journal.StateDelivered)

		case journal.OutcomePermanent:
			if probe {
				// Any non-success probe outcome reopens the circuit.
				s.breakers.RecordFailure(key)
			}
			s.metrics.PermanentFailures.Inc()
			s.deadLetter(opCtx, evt, ep, n, journal.StateFailedPermanent, res)
			return s.finish(opCtx, evt, ep, n, journal.StateFailedPermanent)

		case journal.OutcomeRetryable:
			s.breakers.RecordFailure(key)
			if n == s.cfg.MaxAttempts {
				s.deadLetter(opCtx, evt, ep, n, journal.StateFailedExhausted, res)
				return s.finish(opCtx, evt, ep, n, journal.StateFailedExhausted)
			}
			s.logger.DebugContext(opCtx, "delivery attempt failed, retrying",
				"delivery_id", evt.DeliveryID, "endpoint_id", key,
				"attempt", n, "status", res.StatusCode)
		}
	}

	// Unreachable: the retryable arm terminates on the final attempt.
	return journal.StateFailedExhausted
}

// backoffFor returns the delay before attempt n (1-based). Attempts beyond
// the schedule reuse its last entry.
func (s *Scheduler) backoffFor(n int) time.Duration {
	if len(s.cfg.Backoff) == 0 {
		return 0
	}
	idx := n - 1
	if idx >= len(s.cfg.Backoff) {
		idx = len(s.cfg.Backoff) - 1
	}
	return s.cfg.Backoff[idx]
}

func (s *Scheduler) recordAttempt(ctx context.Context, evt *envelope.Event, ep *endpoint.Endpoint, n int, outcome journal.Outcome, res Result) {
	s.journal.RecordAttempt(ctx, &journal.Attempt{
		Entity:          entity.New(),
		ID:              id.NewAttemptID(),
		DeliveryID:      evt.DeliveryID,
		EventType:       evt.Type,
		EndpointID:      ep.ID,
		Number:          n,
		SignedTimestamp: res.SignedTimestamp,
		Outcome:         outcome,
		StatusCode:      res.StatusCode,
		LatencyMs:       res.LatencyMs,
	})
}

func (s *Scheduler) finish(ctx context.Context, evt *envelope.Event, ep *endpoint.Endpoint, attempts int, state journal.State) journal.State {
	s.journal.RecordSummary(ctx, &journal.Summary{
		Entity:      entity.New(),
		DeliveryID:  evt.DeliveryID,
		EventType:   evt.Type,
		EndpointID:  ep.ID,
		State:       state,
		Attempts:    attempts,
		CompletedAt: time.Now().UTC(),
	})

	if state == journal.StateDelivered {
		s.logger.InfoContext(ctx, "delivered",
			"delivery_id", evt.DeliveryID, "event", evt.Type,
			"endpoint_id", ep.ID, "attempts", attempts)
	} else {
		s.logger.WarnContext(ctx, "delivery failed",
			"delivery_id", evt.DeliveryID, "event", evt.Type,
			"endpoint_id", ep.ID, "state", state, "attempts", attempts)
	}
	return state
}

// deadLetter preserves a terminally failed delivery for replay.
func (s *Scheduler) deadLetter(ctx context.Context, evt *envelope.Event, ep *endpoint.Endpoint, attempts int, state journal.State, res Result) {
	errText := ""
	if res.Err != nil {
		errText = res.Err.Error()
	}

	entry := &dlq.Entry{
		Entity:         entity.New(),
		ID:             id.NewDLQID(),
		DeliveryID:     evt.DeliveryID,
		EventType:      evt.Type,
		EndpointID:     ep.ID,
		TargetURL:      evt.TargetURL,
		Body:           evt.Body,
		State:          string(state),
		LastStatusCode: res.StatusCode,
		Error:          errText,
		Attempts:       attempts,
		FailedAt:       time.Now().UTC(),
	}

	if err := s.dlq.Push(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "dead letter push failed",
			"delivery_id", evt.DeliveryID, "error", err)
		return
	}
	s.metrics.DLQSize.Inc()
}
