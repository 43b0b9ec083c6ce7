package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"socialbets/domain/events"

	log "github.com/sirupsen/logrus"
)

// messagePublisher is the part of NATSClient the event publisher needs
type messagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NATSEventPublisher implements the EventPublisher interface using NATS
type NATSEventPublisher struct {
	client        messagePublisher
	subjectMapper *EventSubjectMapper
}

// NewNATSEventPublisher creates a new NATS event publisher
func NewNATSEventPublisher(client messagePublisher, subjectMapper *EventSubjectMapper) *NATSEventPublisher {
	return &NATSEventPublisher{
		client:        client,
		subjectMapper: subjectMapper,
	}
}

// Publish publishes an event to NATS using the appropriate subject
func (p *NATSEventPublisher) Publish(event events.Event) error {
	ctx := context.Background()
	subject := p.subjectMapper.MapEventToSubject(event)

	envelope, err := NewEventEnvelope(event)
	if err != nil {
		return err
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := p.client.Publish(ctx, subject, data); err != nil {
		// No stream bound to the subject yet; nobody is listening
		if strings.Contains(err.Error(), "no response from stream") {
			log.WithField("subject", subject).Warn("No JetStream stream for subject, event dropped")
			return nil
		}
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Successfully published event to NATS")

	return nil
}

// EnsureBetEventStream ensures the bet_events stream exists with the correct subjects
func (p *NATSEventPublisher) EnsureBetEventStream(client *NATSClient) error {
	return client.EnsureStream(BetEventsStream, p.subjectMapper.GetAllSubjects())
}
