package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope every storefront message is wrapped in. Data holds
// the type-specific payload.
type Event struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	Version       int               `json:"version"`
	Timestamp     time.Time         `json:"timestamp"`
	Source        string            `json:"source"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Aggregate names the entity an event is about. Its ID doubles as the
// message key, so events for one aggregate stay ordered within a partition.
type Aggregate struct {
	ID   string
	Type string
}

// EventOption adjusts an Event built by NewEvent.
type EventOption func(*Event)

// WithCorrelationID ties the event to the request that caused it. An empty
// id is ignored.
func WithCorrelationID(id string) EventOption {
	return func(e *Event) {
		if id != "" {
			e.CorrelationID = id
		}
	}
}

func WithMetadata(key, value string) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]string)
		}
		e.Metadata[key] = value
	}
}

// NewEvent wraps data in a version 1 envelope. Event IDs are UUIDv7, so
// they sort by creation time.
func NewEvent(eventType string, agg Aggregate, source string, data any, opts ...EventOption) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}

	e := &Event{
		EventID:       id.String(),
		EventType:     eventType,
		AggregateID:   agg.ID,
		AggregateType: agg.Type,
		Version:       1,
		Timestamp:     time.Now().UTC(),
		Source:        source,
		Data:          payload,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent decodes an envelope. The payload is left raw.
func UnmarshalEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &e, nil
}

// UnmarshalData decodes the payload into target.
func (e *Event) UnmarshalData(target any) error {
	return json.Unmarshal(e.Data, target)
}
