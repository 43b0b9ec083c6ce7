package infrastructure

import (
	"fmt"

	"socialbets/domain/events"
)

// BetEventsStream is the JetStream stream carrying every bet event subject
const BetEventsStream = "bet_events"

var subjectsByEventType = map[events.EventType]string{
	events.EventTypeBetStatusChanged:            "bets.status_changed",
	events.EventTypeVoteCast:                    "bets.resolution.vote_cast",
	events.EventTypeBetResolved:                 "bets.resolution.resolved",
	events.EventTypeResolutionNeedsIntervention: "bets.resolution.needs_intervention",
	events.EventTypeBetCancelled:                "bets.cancelled",
	events.EventTypeParticipationSettled:        "bets.settlement.participation_settled",
	events.EventTypeFulfillmentClaimed:          "bets.fulfillment.claimed",
}

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := subjectsByEventType[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("bets.unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for eventType, s := range subjectsByEventType {
		if s == subject {
			return eventType
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns the subject filter of the bet event stream
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{"bets.>"}
}
