package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"socialbets/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNATSTransactionalPublisher_HoldsUntilFlush(t *testing.T) {
	recorder := NewRecordingEventPublisher()
	publisher := NewNATSTransactionalPublisher(recorder)

	resolved := events.BetResolvedEvent{BetID: 1, GroupID: 2, OutcomeKind: "single_choice"}
	settled := events.ParticipationSettledEvent{BetID: 1}

	require.NoError(t, publisher.Publish(resolved))
	require.NoError(t, publisher.Publish(settled))
	assert.Empty(t, recorder.Events())

	require.NoError(t, publisher.Flush(context.Background()))

	assert.Equal(t, []events.Event{resolved, settled}, recorder.Events())

	// Flushing again sends nothing new
	require.NoError(t, publisher.Flush(context.Background()))
	assert.Len(t, recorder.Events(), 2)
}

func TestNATSTransactionalPublisher_Discard(t *testing.T) {
	recorder := NewRecordingEventPublisher()
	publisher := NewNATSTransactionalPublisher(recorder)

	require.NoError(t, publisher.Publish(events.BetCancelledEvent{BetID: 1, Reason: "rain"}))
	publisher.Discard()
	require.NoError(t, publisher.Flush(context.Background()))

	assert.Empty(t, recorder.Events())
}

func TestNATSTransactionalPublisher_FlushIgnoresPublishErrors(t *testing.T) {
	recorder := NewRecordingEventPublisher()
	recorder.PublishError = errors.New("nats down")
	publisher := NewNATSTransactionalPublisher(recorder)

	require.NoError(t, publisher.Publish(events.VoteCastEvent{BetID: 1}))

	assert.NoError(t, publisher.Flush(context.Background()))
}

func TestAsyncEventDispatcher_DeliversInBackground(t *testing.T) {
	recorder := NewRecordingEventPublisher()
	dispatcher, err := NewAsyncEventDispatcher(recorder, 2)
	require.NoError(t, err)

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, dispatcher.Publish(events.BetStatusChangedEvent{BetID: i}))
	}

	require.NoError(t, dispatcher.Close(5*time.Second))
	assert.Len(t, recorder.EventsOfType(events.EventTypeBetStatusChanged), 5)
}

type fakeMessagePublisher struct {
	subject string
	data    []byte
	err     error
}

func (f *fakeMessagePublisher) Publish(_ context.Context, subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return f.err
}

func TestNATSEventPublisher_WrapsEventInEnvelope(t *testing.T) {
	client := &fakeMessagePublisher{}
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper())

	err := publisher.Publish(events.FulfillmentClaimedEvent{BetID: 9, LoserID: 4})
	require.NoError(t, err)

	assert.Equal(t, "bets.fulfillment.claimed", client.subject)
	envelope, err := DecodeEventEnvelope(client.data)
	require.NoError(t, err)
	assert.Equal(t, string(events.EventTypeFulfillmentClaimed), envelope.EventType)
	assert.Equal(t, SourceService, envelope.SourceService)
	assert.Contains(t, string(envelope.Payload), `"bet_id":9`)
}

func TestNATSEventPublisher_MissingStreamIsNotAnError(t *testing.T) {
	client := &fakeMessagePublisher{err: errors.New("nats: no response from stream")}
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper())

	assert.NoError(t, publisher.Publish(events.BetCancelledEvent{BetID: 1}))
}
