// Package delivery performs webhook delivery: one HTTP sender, a sequential
// per-event retry scheduler, and a bounded worker-pool engine.
package delivery

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/deltacrown/herald/envelope"
	"github.com/deltacrown/herald/journal"
	"github.com/deltacrown/herald/signature"
)

// userAgent identifies DeltaCrown on every outbound delivery.
const userAgent = "DeltaCrown-Webhook/1.0"

// maxDrainBytes bounds how much of a response body is read (and discarded)
// to let the connection be reused. Response bodies are never stored.
const maxDrainBytes = 4096

// Result holds the raw outcome of a single HTTP delivery attempt.
type Result struct {
	// StatusCode is the HTTP status, or 0 for network errors and timeouts.
	StatusCode int

	// Err is the transport error, if any.
	Err error

	// LatencyMs is the measured round-trip time.
	LatencyMs int

	// SignedTimestamp is the unix-millisecond timestamp signed for this
	// attempt. Fresh per attempt: retries get a new timestamp and signature
	// over the same frozen body.
	SignedTimestamp int64
}

// Classify maps a raw result to its attempt outcome.
//
//   - 2xx → success
//   - 400-499 → permanent failure (rejected by a healthy endpoint; no retry,
//     and excluded from circuit health)
//   - 5xx, network error, timeout → retryable failure
func Classify(res Result) journal.Outcome {
	code := res.StatusCode

	if code >= 200 && code < 300 {
		return journal.OutcomeSuccess
	}

	if code >= 400 && code < 500 {
		return journal.OutcomePermanent
	}

	return journal.OutcomeRetryable
}

// Sender performs one HTTP webhook delivery attempt.
type Sender struct {
	client *http.Client
}

// NewSender creates a sender with the given per-attempt HTTP timeout.
func NewSender(timeout time.Duration) *Sender {
	return &Sender{
		client: &http.Client{Timeout: timeout},
	}
}

// Send performs one POST of the event's frozen body to its target endpoint.
// The signature is computed fresh over "{timestamp}.{body}" because the
// timestamp changes per attempt; the body bytes never do.
func (s *Sender) Send(ctx context.Context, evt *envelope.Event, secret string) Result {
	ts := time.Now().UnixMilli()
	sig := signature.Sign(secret, ts, evt.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, evt.TargetURL, bytes.NewReader(evt.Body))
	if err != nil {
		return Result{Err: err, SignedTimestamp: ts}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Webhook-Signature", sig)
	req.Header.Set("X-Webhook-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Webhook-Id", evt.DeliveryID.String())
	req.Header.Set("X-Webhook-Event", evt.Type)

	start := time.Now()
	resp, err := s.client.Do(req) //nolint:gosec // G704: URL is an operator-registered webhook destination.
	latency := int(time.Since(start).Milliseconds())

	if err != nil {
		return Result{
			Err:             err,
			LatencyMs:       latency,
			SignedTimestamp: ts,
		}
	}
	defer resp.Body.Close()

	// Drain a bounded amount so the connection can be reused. The body is
	// discarded: receiver responses are never recorded.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	return Result{
		StatusCode:      resp.StatusCode,
		LatencyMs:       latency,
		SignedTimestamp: ts,
	}
}
