package herald

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deltacrown/herald/catalog"
	"github.com/deltacrown/herald/circuit"
	"github.com/deltacrown/herald/delivery"
	"github.com/deltacrown/herald/dlq"
	"github.com/deltacrown/herald/endpoint"
	"github.com/deltacrown/herald/envelope"
	"github.com/deltacrown/herald/id"
	"github.com/deltacrown/herald/journal"
	"github.com/deltacrown/herald/observability"
	"github.com/deltacrown/herald/ratelimit"
	"github.com/deltacrown/herald/store"
)

// wireServices initializes the internal services after options have been applied.
func (h *Herald) wireServices() {
	if h.metrics == nil {
		h.metrics = observability.NewDefaultMetrics()
	}

	h.catalog = catalog.NewCatalog(h.store, catalog.Config{
		CacheTTL: h.config.CacheTTL,
	}, h.logger)

	h.validator = catalog.NewValidator()

	h.endpointSvc = endpoint.NewService(h.store, h.logger)
	h.journalSvc = journal.NewService(h.store, h.logger)
	h.dlqSvc = dlq.NewService(h.store, h.logger)
	h.limiter = ratelimit.New()

	h.breakers = circuit.NewRegistry(h.config.Breaker,
		circuit.WithTransitionHook(func(endpointKey string, from, to circuit.State) {
			h.metrics.RecordTransition(string(from), string(to))
			h.logger.Warn("circuit state changed",
				"endpoint_id", endpointKey, "from", from, "to", to)
		}),
	)

	h.scheduler = delivery.NewScheduler(delivery.SchedulerConfig{
		MaxAttempts:    h.config.MaxAttempts,
		Backoff:        h.config.BackoffSchedule,
		RequestTimeout: h.config.RequestTimeout,
	}, h.breakers, h.limiter, h.journalSvc, h.dlqSvc, h.metrics, h.logger)

	h.engine = delivery.NewEngine(delivery.EngineConfig{
		Workers:      h.config.Workers,
		QueueSize:    h.config.QueueSize,
		Backpressure: h.config.Backpressure,
	}, h.scheduler, h.metrics, h.logger)

	h.enabled.Store(h.config.Enabled)
}

// Start launches the delivery worker pool and warms the catalog cache.
func (h *Herald) Start(ctx context.Context) error {
	if err := h.catalog.WarmCache(ctx); err != nil {
		// Cache warming is best effort; lookups fall through to the store.
		h.logger.WarnContext(ctx, "catalog cache warm failed", "error", err)
	}
	return h.engine.Start(ctx)
}

// Stop gracefully shuts down the delivery engine. In-flight attempts
// complete naturally; queued deliveries that never started are dropped.
func (h *Herald) Stop(ctx context.Context) error {
	return h.engine.Stop(ctx)
}

// SetEnabled flips the delivery kill switch at runtime. Disabling only
// stops new events at the Publish boundary: queued and in-flight
// deliveries, including their retries, still run to completion.
func (h *Herald) SetEnabled(enabled bool) {
	if h.enabled.Swap(enabled) != enabled {
		h.logger.Warn("webhook delivery toggled", "enabled", enabled)
	}
}

// Enabled reports the kill switch state.
func (h *Herald) Enabled() bool {
	return h.enabled.Load()
}

// RegisterEventType registers a webhook event type definition in the catalog.
func (h *Herald) RegisterEventType(ctx context.Context, def catalog.Definition, opts ...catalog.RegisterOption) (*catalog.EventType, error) {
	return h.catalog.RegisterType(ctx, def, opts...)
}

// Publish validates an event, freezes its wire envelope, and enqueues one
// delivery per subscribed endpoint. It returns as soon as the deliveries are
// queued; a Publish error never means a receiver failure, and a nil return
// never guarantees receipt.
//
// The critical path:
//  1. Kill switch check (the only place it is consulted).
//  2. Look up the event type in the catalog (reject unknown and deprecated).
//  3. Validate the payload against the JSON Schema, when one is configured.
//  4. Serialize the envelope exactly once; the bytes are frozen from here on.
//  5. Resolve subscribed endpoints and bind one delivery per endpoint, each
//     with its own stable UUIDv4 delivery ID.
//  6. Enqueue. A full queue drops (ErrQueueFull) or blocks per policy.
func (h *Herald) Publish(ctx context.Context, eventType string, payload map[string]any) error {
	if !h.enabled.Load() {
		return ErrDisabled
	}

	et, err := h.catalog.GetType(ctx, eventType)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrEventTypeNotFound, eventType)
	}
	if et.IsDeprecated {
		return fmt.Errorf("%w: %s", ErrEventTypeDeprecated, eventType)
	}

	if len(et.Definition.Schema) > 0 {
		if validateErr := h.validator.Validate(et.Definition.Schema, anyMap(payload)); validateErr != nil {
			return fmt.Errorf("%w: %s", ErrPayloadValidationFailed, validateErr.Error())
		}
	}

	env, err := envelope.Build(eventType, payload, h.config.ServiceName)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPayloadNotSerializable, eventType)
	}

	endpoints, err := h.store.Resolve(ctx, eventType)
	if err != nil {
		return fmt.Errorf("herald: resolve endpoints: %w", err)
	}

	h.metrics.EventsPublishedTotal.Inc()

	if len(endpoints) == 0 {
		h.logger.DebugContext(ctx, "no subscribers", "event", eventType)
		return nil
	}

	var dropped int
	for _, ep := range endpoints {
		evt := env.Bind(ep.ID, ep.URL)
		if enqueueErr := h.engine.Enqueue(ctx, &delivery.Task{Event: evt, Endpoint: ep}); enqueueErr != nil {
			if h.config.Backpressure == BackpressureDrop {
				dropped++
				continue
			}
			return enqueueErr
		}
	}

	h.logger.DebugContext(ctx, "event published",
		"event", eventType, "endpoints", len(endpoints), "dropped", dropped)

	if dropped > 0 {
		return fmt.Errorf("%w: dropped %d of %d deliveries", ErrQueueFull, dropped, len(endpoints))
	}
	return nil
}

// ReplayDLQ re-enqueues a dead-lettered delivery. The frozen body and the
// original delivery ID are reused verbatim, so the receiver's dedup contract
// holds across the replay; the URL and secret are read fresh from the
// endpoint so rotations apply.
func (h *Herald) ReplayDLQ(ctx context.Context, dlqID id.ID) error {
	entry, err := h.dlqSvc.Get(ctx, dlqID)
	if err != nil {
		return err
	}

	ep, err := h.endpointSvc.Get(ctx, entry.EndpointID)
	if err != nil {
		return fmt.Errorf("herald: replay %s: %w", dlqID, err)
	}

	evt := &envelope.Event{
		DeliveryID: entry.DeliveryID,
		Type:       entry.EventType,
		Body:       entry.Body,
		CreatedAt:  entry.CreatedAt,
		EndpointID: ep.ID,
		TargetURL:  ep.URL,
	}

	if err := h.engine.Enqueue(ctx, &delivery.Task{Event: evt, Endpoint: ep}); err != nil {
		return err
	}

	return h.dlqSvc.MarkReplayed(ctx, dlqID)
}

// ReplayDLQBulk replays every DLQ entry whose failure falls in [from, to]
// and returns how many were re-enqueued. The first error stops the sweep.
func (h *Herald) ReplayDLQBulk(ctx context.Context, from, to time.Time) (int64, error) {
	entries, err := h.dlqSvc.List(ctx, dlq.ListOpts{From: &from, To: &to})
	if err != nil {
		return 0, err
	}

	var count int64
	for _, entry := range entries {
		if entry.ReplayedAt != nil {
			continue
		}
		if err := h.ReplayDLQ(ctx, entry.ID); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Stats computes delivery health numbers for everything recorded since the
// given instant.
func (h *Herald) Stats(ctx context.Context, since time.Time) (*journal.Stats, error) {
	return h.journalSvc.Stats(ctx, since)
}

// Attempts returns the recorded attempt history for one delivery ID.
func (h *Herald) Attempts(ctx context.Context, deliveryID uuid.UUID) ([]*journal.Attempt, error) {
	return h.journalSvc.Attempts(ctx, deliveryID)
}

// Endpoints returns the endpoint management service.
func (h *Herald) Endpoints() *endpoint.Service {
	return h.endpointSvc
}

// Catalog returns the event type catalog.
func (h *Herald) Catalog() *catalog.Catalog {
	return h.catalog
}

// Journal returns the delivery log service.
func (h *Herald) Journal() *journal.Service {
	return h.journalSvc
}

// DLQ returns the dead letter queue service.
func (h *Herald) DLQ() *dlq.Service {
	return h.dlqSvc
}

// Circuits returns the circuit breaker registry.
func (h *Herald) Circuits() *circuit.Registry {
	return h.breakers
}

// Store returns the underlying store.
func (h *Herald) Store() store.Store {
	return h.store
}

// QueueDepth returns the number of deliveries currently queued.
func (h *Herald) QueueDepth() int {
	return h.engine.Depth()
}

// anyMap widens a payload for the schema validator, which walks plain
// JSON-shaped values.
func anyMap(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
