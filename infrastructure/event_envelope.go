package infrastructure

import (
	"encoding/json"
	"fmt"

	"socialbets/domain/events"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// SourceService names this service in every envelope it publishes
const SourceService = "socialbets"

// EventEnvelope wraps an event payload with routing metadata
type EventEnvelope struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	Timestamp     *timestamppb.Timestamp `json:"timestamp"`
	SourceService string                 `json:"source_service"`
	Payload       json.RawMessage        `json:"payload"`
}

// NewEventEnvelope serializes the event into a fresh envelope
func NewEventEnvelope(event events.Event) (*EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     timestamppb.Now(),
		SourceService: SourceService,
		Payload:       payload,
	}, nil
}

// DecodeEventEnvelope parses an envelope published by NewEventEnvelope
func DecodeEventEnvelope(data []byte) (*EventEnvelope, error) {
	var envelope EventEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}
	if _, err := uuid.Parse(envelope.EventID); err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", envelope.EventID, err)
	}
	return &envelope, nil
}
