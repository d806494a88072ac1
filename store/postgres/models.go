package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xraph/grove"

	"github.com/deltacrown/herald/catalog"
	"github.com/deltacrown/herald/dlq"
	"github.com/deltacrown/herald/endpoint"
	"github.com/deltacrown/herald/id"
	"github.com/deltacrown/herald/internal/entity"
	"github.com/deltacrown/herald/journal"
)

// --- Event Type models ---

type eventTypeModel struct {
	grove.BaseModel `grove:"table:herald_event_types"`

	ID            string            `grove:"id,pk"`
	Name          string            `grove:"name,unique"`
	Description   string            `grove:"description"`
	GroupName     string            `grove:"group_name"`
	Schema        json.RawMessage   `grove:"schema,type:jsonb"`
	SchemaVersion string            `grove:"schema_version"`
	Version       string            `grove:"version"`
	Example       json.RawMessage   `grove:"example,type:jsonb"`
	IsDeprecated  bool              `grove:"is_deprecated"`
	DeprecatedAt  *time.Time        `grove:"deprecated_at"`
	Metadata      map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt     time.Time         `grove:"created_at"`
	UpdatedAt     time.Time         `grove:"updated_at"`
}

func toEventTypeModel(et *catalog.EventType) *eventTypeModel {
	return &eventTypeModel{
		ID:            et.ID.String(),
		Name:          et.Definition.Name,
		Description:   et.Definition.Description,
		GroupName:     et.Definition.Group,
		Schema:        et.Definition.Schema,
		SchemaVersion: et.Definition.SchemaVersion,
		Version:       et.Definition.Version,
		Example:       et.Definition.Example,
		IsDeprecated:  et.IsDeprecated,
		DeprecatedAt:  et.DeprecatedAt,
		Metadata:      et.Metadata,
		CreatedAt:     et.CreatedAt,
		UpdatedAt:     et.UpdatedAt,
	}
}

func fromEventTypeModel(m *eventTypeModel) (*catalog.EventType, error) {
	etID, err := id.ParseEventTypeID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse event type ID %q: %w", m.ID, err)
	}
	return &catalog.EventType{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID: etID,
		Definition: catalog.Definition{
			Name:          m.Name,
			Description:   m.Description,
			Group:         m.GroupName,
			Schema:        m.Schema,
			SchemaVersion: m.SchemaVersion,
			Version:       m.Version,
			Example:       m.Example,
		},
		IsDeprecated: m.IsDeprecated,
		DeprecatedAt: m.DeprecatedAt,
		Metadata:     m.Metadata,
	}, nil
}

// --- Endpoint models ---

type endpointModel struct {
	grove.BaseModel `grove:"table:herald_endpoints"`

	ID          string            `grove:"id,pk"`
	URL         string            `grove:"url"`
	Description string            `grove:"description"`
	Secret      string            `grove:"secret"`
	EventTypes  []string          `grove:"event_types,array"`
	Enabled     bool              `grove:"enabled"`
	RateLimit   int               `grove:"rate_limit"`
	Metadata    map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt   time.Time         `grove:"created_at"`
	UpdatedAt   time.Time         `grove:"updated_at"`
}

func toEndpointModel(ep *endpoint.Endpoint) *endpointModel {
	return &endpointModel{
		ID:          ep.ID.String(),
		URL:         ep.URL,
		Description: ep.Description,
		Secret:      ep.Secret,
		EventTypes:  ep.EventTypes,
		Enabled:     ep.Enabled,
		RateLimit:   ep.RateLimit,
		Metadata:    ep.Metadata,
		CreatedAt:   ep.CreatedAt,
		UpdatedAt:   ep.UpdatedAt,
	}
}

func fromEndpointModel(m *endpointModel) (*endpoint.Endpoint, error) {
	epID, err := id.ParseEndpointID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint ID %q: %w", m.ID, err)
	}
	return &endpoint.Endpoint{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          epID,
		URL:         m.URL,
		Description: m.Description,
		Secret:      m.Secret,
		EventTypes:  m.EventTypes,
		Enabled:     m.Enabled,
		RateLimit:   m.RateLimit,
		Metadata:    m.Metadata,
	}, nil
}

// --- Attempt models ---

type attemptModel struct {
	grove.BaseModel `grove:"table:herald_attempts"`

	ID              string    `grove:"id,pk"`
	DeliveryID      string    `grove:"delivery_id"`
	EventType       string    `grove:"event_type"`
	EndpointID      string    `grove:"endpoint_id"`
	Number          int       `grove:"number"`
	SignedTimestamp int64     `grove:"signed_timestamp"`
	Outcome         string    `grove:"outcome"`
	StatusCode      int       `grove:"status_code"`
	LatencyMs       int       `grove:"latency_ms"`
	CreatedAt       time.Time `grove:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"`
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

// --- Summary models ---

type summaryModel struct {
	grove.BaseModel `grove:"table:herald_summaries"`

	DeliveryID  string    `grove:"delivery_id,pk"`
	EventType   string    `grove:"event_type"`
	EndpointID  string    `grove:"endpoint_id"`
	State       string    `grove:"state"`
	Attempts    int       `grove:"attempts"`
	CompletedAt time.Time `grove:"completed_at"`
	CreatedAt   time.Time `grove:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"`
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

// --- DLQ models ---

type dlqEntryModel struct {
	grove.BaseModel `grove:"table:herald_dlq"`

	ID             string     `grove:"id,pk"`
	DeliveryID     string     `grove:"delivery_id"`
	EventType      string     `grove:"event_type"`
	EndpointID     string     `grove:"endpoint_id"`
	TargetURL      string     `grove:"target_url"`
	Body           []byte     `grove:"body"`
	State          string     `grove:"state"`
	LastStatusCode int        `grove:"last_status_code"`
	Error          string     `grove:"error"`
	Attempts       int        `grove:"attempts"`
	FailedAt       time.Time  `grove:"failed_at"`
	ReplayedAt     *time.Time `grove:"replayed_at"`
	CreatedAt      time.Time  `grove:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"`
}

func toDLQEntryModel(e *dlq.Entry) *dlqEntryModel {
	return &dlqEntryModel{
		ID:             e.ID.String(),
		DeliveryID:     e.DeliveryID.String(),
		EventType:      e.EventType,
		EndpointID:     e.EndpointID.String(),
		TargetURL:      e.TargetURL,
		Body:           e.Body,
		State:          e.State,
		LastStatusCode: e.LastStatusCode,
		Error:          e.Error,
		Attempts:       e.Attempts,
		FailedAt:       e.FailedAt,
		ReplayedAt:     e.ReplayedAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func fromDLQEntryModel(m *dlqEntryModel) (*dlq.Entry, error) {
	dlqID, err := id.ParseDLQID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse DLQ ID %q: %w", m.ID, err)
	}
	delID, err := uuid.Parse(m.DeliveryID)
	if err != nil {
		return nil, fmt.Errorf("parse delivery ID %q: %w", m.DeliveryID, err)
	}
	epID, err := id.ParseEndpointID(m.EndpointID)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint ID %q: %w", m.EndpointID, err)
	}
	return &dlq.Entry{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             dlqID,
		DeliveryID:     delID,
		EventType:      m.EventType,
		EndpointID:     epID,
		TargetURL:      m.TargetURL,
		Body:           m.Body,
		State:          m.State,
		LastStatusCode: m.LastStatusCode,
		Error:          m.Error,
		Attempts:       m.Attempts,
		FailedAt:       m.FailedAt,
		ReplayedAt:     m.ReplayedAt,
	}, nil
}
