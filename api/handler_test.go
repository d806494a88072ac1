package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deltacrown/herald"
	"github.com/deltacrown/herald/api"
	"github.com/deltacrown/herald/store/memory"
)

// testServer creates a Handler backed by an unstarted Herald on a memory
// store. Management routes do not need the worker pool running.
func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h, err := herald.New(
		herald.WithStore(memory.New()),
		herald.WithLogger(logger),
	)
	if err != nil {
		t.Fatal(err)
	}

	return httptest.NewServer(api.NewHandler(h, logger))
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

// --- Event Types ---

func TestEventTypes_CRUD(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	// Create
	resp := doJSON(t, "POST", srv.URL+"/event-types", map[string]any{
		"name":        "payment_verified",
		"description": "Payment verified by an admin",
		"version":     "1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	var et map[string]any
	decodeBody(t, resp, &et)
	def, _ := et["definition"].(map[string]any)
	if def == nil || def["name"] != "payment_verified" {
		t.Fatalf("expected definition.name payment_verified, got %v", et)
	}

	// Get by name
	resp = doJSON(t, "GET", srv.URL+"/event-types/payment_verified", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// List
	resp = doJSON(t, "GET", srv.URL+"/event-types", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var list []map[string]any
	decodeBody(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 event type, got %d", len(list))
	}

	// Delete soft-deprecates
	resp = doJSON(t, "DELETE", srv.URL+"/event-types/payment_verified", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Get after delete still resolves, flagged deprecated
	resp = doJSON(t, "GET", srv.URL+"/event-types/payment_verified", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get after delete: expected 200, got %d", resp.StatusCode)
	}
	var deprecated map[string]any
	decodeBody(t, resp, &deprecated)
	if deprecated["deprecated"] != true {
		t.Fatalf("expected deprecated=true, got %v", deprecated["deprecated"])
	}
}

func TestEventTypes_CreateMissingName(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "POST", srv.URL+"/event-types", map[string]any{
		"description": "no name",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestEventTypes_GetUnknown(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "GET", srv.URL+"/event-types/never_registered", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// --- Endpoints ---

func TestEndpoints_CRUD(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	// Create
	resp := doJSON(t, "POST", srv.URL+"/endpoints", map[string]any{
		"url":         "https://example.com/webhook",
		"event_types": []string{"payment_verified", "tournament.*"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	var ep map[string]any
	decodeBody(t, resp, &ep)
	epID, ok := ep["id"].(string)
	if !ok || epID == "" {
		t.Fatal("expected non-empty endpoint ID")
	}
	// The signing secret never appears in API responses.
	if _, leaked := ep["secret"]; leaked {
		t.Fatal("secret must not be serialized in endpoint responses")
	}

	// Get
	resp = doJSON(t, "GET", srv.URL+"/endpoints/"+epID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// List
	resp = doJSON(t, "GET", srv.URL+"/endpoints", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var eps []map[string]any
	decodeBody(t, resp, &eps)
	if len(eps) != 1 {
		t.Fatalf("expected 1 endpoint, got %d", len(eps))
	}

	// Update
	resp = doJSON(t, "PUT", srv.URL+"/endpoints/"+epID, map[string]any{
		"url":         "https://example.com/updated",
		"event_types": []string{"*"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	var updated map[string]any
	decodeBody(t, resp, &updated)
	if updated["url"] != "https://example.com/updated" {
		t.Fatalf("expected updated URL, got %v", updated["url"])
	}

	// Disable
	resp = doJSON(t, "PATCH", srv.URL+"/endpoints/"+epID+"/disable", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("disable: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// List only disabled
	resp = doJSON(t, "GET", srv.URL+"/endpoints?enabled=false", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list disabled: expected 200, got %d", resp.StatusCode)
	}
	var disabled []map[string]any
	decodeBody(t, resp, &disabled)
	if len(disabled) != 1 {
		t.Fatalf("expected 1 disabled endpoint, got %d", len(disabled))
	}

	// Enable
	resp = doJSON(t, "PATCH", srv.URL+"/endpoints/"+epID+"/enable", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("enable: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Rotate secret
	resp = doJSON(t, "POST", srv.URL+"/endpoints/"+epID+"/rotate-secret", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rotate: expected 200, got %d", resp.StatusCode)
	}
	var secretResp map[string]string
	decodeBody(t, resp, &secretResp)
	if secretResp["secret"] == "" {
		t.Fatal("expected non-empty secret")
	}

	// Delete
	resp = doJSON(t, "DELETE", srv.URL+"/endpoints/"+epID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Get deleted
	resp = doJSON(t, "GET", srv.URL+"/endpoints/"+epID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestEndpoints_CreateMissingURL(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "POST", srv.URL+"/endpoints", map[string]any{
		"event_types": []string{"*"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestEndpoint_InvalidID(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "GET", srv.URL+"/endpoints/not-a-valid-id", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// --- Journal ---

func TestAttempts_ListEmpty(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "POST", srv.URL+"/endpoints", map[string]any{
		"url":         "https://example.com/webhook",
		"event_types": []string{"*"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create endpoint: expected 201, got %d", resp.StatusCode)
	}
	var ep map[string]any
	decodeBody(t, resp, &ep)
	epID := ep["id"].(string)

	resp = doJSON(t, "GET", srv.URL+"/endpoints/"+epID+"/attempts", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list attempts: expected 200, got %d", resp.StatusCode)
	}
	var attempts []map[string]any
	decodeBody(t, resp, &attempts)
	if len(attempts) != 0 {
		t.Fatalf("expected 0 attempts, got %d", len(attempts))
	}
}

func TestAttempts_InvalidDeliveryID(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "GET", srv.URL+"/deliveries/not-a-uuid/attempts", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// --- DLQ ---

func TestDLQ_ListEmpty(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "GET", srv.URL+"/dlq", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list dlq: expected 200, got %d", resp.StatusCode)
	}
	var entries []map[string]any
	decodeBody(t, resp, &entries)
	if len(entries) != 0 {
		t.Fatalf("expected 0 entries, got %d", len(entries))
	}
}

func TestDLQ_ReplayBadID(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "POST", srv.URL+"/dlq/not-a-valid-id/replay", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDLQ_BulkReplayBadBody(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "POST", srv.URL+"/dlq/replay", map[string]any{
		"from": "not-a-date",
		"to":   "2026-01-01T00:00:00Z",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDLQ_PurgeRequiresBefore(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "DELETE", srv.URL+"/dlq", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without 'before', got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "DELETE", srv.URL+"/dlq?before=2026-01-01T00:00:00Z", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("purge: expected 200, got %d", resp.StatusCode)
	}
	var purged map[string]int64
	decodeBody(t, resp, &purged)
	if purged["purged"] != 0 {
		t.Fatalf("expected purged=0, got %d", purged["purged"])
	}
}

// --- Circuits ---

func TestCircuits_ListEmpty(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "GET", srv.URL+"/circuits", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list circuits: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCircuits_ResetInvalidID(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "DELETE", srv.URL+"/circuits/not-a-valid-id", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// --- Stats and kill switch ---

func TestStats(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "GET", srv.URL+"/stats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", resp.StatusCode)
	}
	var stats map[string]any
	decodeBody(t, resp, &stats)

	if stats["enabled"] != true {
		t.Fatalf("expected enabled=true, got %v", stats["enabled"])
	}
	if _, ok := stats["queue_depth"]; !ok {
		t.Fatal("expected queue_depth in response")
	}
	if _, ok := stats["dlq_size"]; !ok {
		t.Fatal("expected dlq_size in response")
	}
	if _, ok := stats["window"]; !ok {
		t.Fatal("expected window in response")
	}
}

func TestKillSwitchRoutes(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "PATCH", srv.URL+"/delivery/disable", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("disable: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "GET", srv.URL+"/stats", nil)
	var stats map[string]any
	decodeBody(t, resp, &stats)
	if stats["enabled"] != false {
		t.Fatalf("expected enabled=false after disable, got %v", stats["enabled"])
	}

	resp = doJSON(t, "PATCH", srv.URL+"/delivery/enable", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("enable: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
