package redis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/deltacrown/herald/id"
	"github.com/deltacrown/herald/internal/entity"
	"github.com/deltacrown/herald/journal"
)

// attemptModel is the JSON representation stored in Redis.
type attemptModel struct {
	ID              string    `json:"id"`
	DeliveryID      string    `json:"delivery_id"`
	EventType       string    `json:"event_type"`
	EndpointID      string    `json:"endpoint_id"`
	Number          int       `json:"number"`
	SignedTimestamp int64     `json:"signed_timestamp,omitempty"`
	Outcome         string    `json:"outcome"`
	StatusCode      int       `json:"status_code,omitempty"`
	LatencyMs       int       `json:"latency_ms"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toAttemptModel(a *journal.Attempt) *attemptModel {
	return &attemptModel{
		ID:              a.ID.String(),
		DeliveryID:      a.DeliveryID.String(),
		EventType:       a.EventType,
		EndpointID:      a.EndpointID.String(),
		Number:          a.Number,
		SignedTimestamp: a.SignedTimestamp,
		Outcome:         string(a.Outcome),
		StatusCode:      a.StatusCode,
		LatencyMs:       a.LatencyMs,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func fromAttemptModel(m *attemptModel) (*journal.Attempt, error) {
	attID, err := id.ParseAttemptID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse attempt ID %q: %w", m.ID, err)
	}
	delID, err := uuid.Parse(m.DeliveryID)
	if err != nil {
		return nil, fmt.Errorf("parse delivery ID %q: %w", m.DeliveryID, err)
	}
	epID, err := id.ParseEndpointID(m.EndpointID)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint ID %q: %w", m.EndpointID, err)
	}
	return &journal.Attempt{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:              attID,
		DeliveryID:      delID,
		EventType:       m.EventType,
		EndpointID:      epID,
		Number:          m.Number,
		SignedTimestamp: m.SignedTimestamp,
		Outcome:         journal.Outcome(m.Outcome),
		StatusCode:      m.StatusCode,
		LatencyMs:       m.LatencyMs,
	}, nil
}

// summaryModel is the JSON representation stored in Redis. Summaries have no
// TypeID of their own; the delivery UUID is the primary key.
type summaryModel struct {
	DeliveryID  string    `json:"delivery_id"`
	EventType   string    `json:"event_type"`
	EndpointID  string    `json:"endpoint_id"`
	State       string    `json:"state"`
	Attempts    int       `json:"attempts"`
	CompletedAt time.Time `json:"completed_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toSummaryModel(sum *journal.Summary) *summaryModel {
	return &summaryModel{
		DeliveryID:  sum.DeliveryID.String(),
		EventType:   sum.EventType,
		EndpointID:  sum.EndpointID.String(),
		State:       string(sum.State),
		Attempts:    sum.Attempts,
		CompletedAt: sum.CompletedAt,
		CreatedAt:   sum.CreatedAt,
		UpdatedAt:   sum.UpdatedAt,
	}
}

func fromSummaryModel(m *summaryModel) (*journal.Summary, error) {
	delID, err := uuid.Parse(m.DeliveryID)
	if err != nil {
		return nil, fmt.Errorf("parse delivery ID %q: %w", m.DeliveryID, err)
	}
	epID, err := id.ParseEndpointID(m.EndpointID)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint ID %q: %w", m.EndpointID, err)
	}
	return &journal.Summary{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		DeliveryID:  delID,
		EventType:   m.EventType,
		EndpointID:  epID,
		State:       journal.State(m.State),
		Attempts:    m.Attempts,
		CompletedAt: m.CompletedAt,
	}, nil
}

func (s *Store) AppendAttempt(ctx context.Context, a *journal.Attempt) error {
	m := toAttemptModel(a)
	key := entityKey(prefixAttempt, m.ID)

	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("herald/redis: append attempt: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, zAttemptAll, goredis.Z{Score: scoreFromTime(m.CreatedAt), Member: m.ID})
	pipe.ZAdd(ctx, zAttemptEP+m.EndpointID, goredis.Z{Score: scoreFromTime(m.CreatedAt), Member: m.ID})
	pipe.ZAdd(ctx, zAttemptDel+m.DeliveryID, goredis.Z{Score: float64(m.Number), Member: m.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("herald/redis: append attempt indexes: %w", err)
	}
	return nil
}

func (s *Store) AppendSummary(ctx context.Context, sum *journal.Summary) error {
	m := toSummaryModel(sum)
	key := entityKey(prefixSummary, m.DeliveryID)

	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("herald/redis: append summary: %w", err)
	}

	if err := s.rdb.ZAdd(ctx, zSummaryAll, goredis.Z{
		Score:  scoreFromTime(m.CreatedAt),
		Member: m.DeliveryID,
	}).Err(); err != nil {
		return fmt.Errorf("herald/redis: append summary index: %w", err)
	}
	return nil
}

func (s *Store) ListAttemptsByDelivery(ctx context.Context, deliveryID uuid.UUID) ([]*journal.Attempt, error) {
	// Scored by attempt number, so ascending range is already in order.
	ids, err := s.rdb.ZRange(ctx, zAttemptDel+deliveryID.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("herald/redis: list attempts by delivery: %w", err)
	}

	result := make([]*journal.Attempt, 0, len(ids))
	for _, entryID := range ids {
		var m attemptModel
		if err := s.getEntity(ctx, entityKey(prefixAttempt, entryID), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		a, err := fromAttemptModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

func (s *Store) ListAttemptsByEndpoint(ctx context.Context, epID id.ID, opts journal.ListOpts) ([]*journal.Attempt, error) {
	ids, err := s.rdb.ZRevRange(ctx, zAttemptEP+epID.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("herald/redis: list attempts by endpoint: %w", err)
	}

	result := make([]*journal.Attempt, 0, len(ids))
	for _, entryID := range ids {
		var m attemptModel
		if err := s.getEntity(ctx, entityKey(prefixAttempt, entryID), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		a, err := fromAttemptModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ListAttemptsSince(ctx context.Context, since time.Time) ([]*journal.Attempt, error) {
	ids, err := s.zRangeByScoreIDs(ctx, zAttemptAll, scoreFromTime(since), math.Inf(1))
	if err != nil {
		return nil, fmt.Errorf("herald/redis: list attempts since: %w", err)
	}

	result := make([]*journal.Attempt, 0, len(ids))
	for _, entryID := range ids {
		var m attemptModel
		if err := s.getEntity(ctx, entityKey(prefixAttempt, entryID), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		a, err := fromAttemptModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

func (s *Store) ListSummariesSince(ctx context.Context, since time.Time) ([]*journal.Summary, error) {
	ids, err := s.zRangeByScoreIDs(ctx, zSummaryAll, scoreFromTime(since), math.Inf(1))
	if err != nil {
		return nil, fmt.Errorf("herald/redis: list summaries since: %w", err)
	}

	result := make([]*journal.Summary, 0, len(ids))
	for _, entryID := range ids {
		var m summaryModel
		if err := s.getEntity(ctx, entityKey(prefixSummary, entryID), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		sum, err := fromSummaryModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, sum)
	}
	return result, nil
}
