// Package herald is DeltaCrown's outbound webhook delivery engine.
//
// Herald is a library, not a service. Import it into your application to
// turn internal domain events (payment verified, match started, registration
// opened) into authenticated, replay-safe HTTP deliveries with bounded
// retries and automatic circuit isolation of unhealthy receiver endpoints.
//
// Key properties:
//   - HMAC-SHA256 signing of every delivery over "{timestamp}.{body}"
//   - Stable UUIDv4 delivery IDs across retries (receiver-side dedup key)
//   - Bounded retries with an explicit terminal-state machine
//   - Per-endpoint circuit breaker (CLOSED/OPEN/HALF_OPEN) that rejects
//     attempts to dead receivers without a network call
//   - Fire-and-forget publishing: producers never wait on third-party I/O
//   - PII-free delivery journal feeding operator SLOs
//
// Quick start:
//
//	h, err := herald.New(
//	    herald.WithStore(memoryStore),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	h.Start(ctx)
//	defer h.Stop(ctx)
//
//	h.RegisterEventType(ctx, catalog.Definition{
//	    Name:    "payment_verified",
//	    Version: "2025-01-01",
//	})
//
//	h.Publish(ctx, "payment_verified", map[string]any{
//	    "payment_id": "pay_7f3b...",
//	})
package herald
