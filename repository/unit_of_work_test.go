package repository

import (
	"context"
	"testing"

	"socialbets/domain/entities"
	"socialbets/domain/events"
	"socialbets/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bufferedPublisher records what a unit of work flushes or discards
type bufferedPublisher struct {
	pending   []events.Event
	flushed   []events.Event
	discarded int
}

func (p *bufferedPublisher) Publish(event events.Event) error {
	p.pending = append(p.pending, event)
	return nil
}

func (p *bufferedPublisher) Flush(_ context.Context) error {
	p.flushed = append(p.flushed, p.pending...)
	p.pending = nil
	return nil
}

func (p *bufferedPublisher) Discard() {
	p.discarded += len(p.pending)
	p.pending = nil
}

func TestUnitOfWork_CommitPersistsAndFlushes(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	publisher := &bufferedPublisher{}

	uow := CreateTestUnitOfWork(testDB.DB, publisher)
	require.NoError(t, uow.Begin(ctx))

	bet := testutil.CreateTestBet(testGroupID, testCreatorID)
	require.NoError(t, uow.BetRepository().Create(ctx, bet, nil))
	require.NoError(t, uow.EventBus().Publish(events.BetStatusChangedEvent{BetID: bet.ID}))
	assert.Empty(t, publisher.flushed)

	require.NoError(t, uow.Commit())
	require.NoError(t, uow.Rollback())

	saved, err := NewBetRepository(testDB.DB).GetByID(ctx, bet.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Len(t, publisher.flushed, 1)
	assert.Zero(t, publisher.discarded)
}

func TestUnitOfWork_RollbackDiscards(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	publisher := &bufferedPublisher{}

	uow := CreateTestUnitOfWork(testDB.DB, publisher)
	require.NoError(t, uow.Begin(ctx))
	assert.Error(t, uow.Begin(ctx))

	bet := testutil.CreateTestBet(testGroupID, testCreatorID)
	require.NoError(t, uow.BetRepository().Create(ctx, bet, nil))
	require.NoError(t, uow.EventBus().Publish(events.BetStatusChangedEvent{
		BetID:     bet.ID,
		NewStatus: string(entities.BetStatusOpen),
	}))

	require.NoError(t, uow.Rollback())

	saved, err := NewBetRepository(testDB.DB).GetByID(ctx, bet.ID)
	require.NoError(t, err)
	assert.Nil(t, saved)
	assert.Empty(t, publisher.flushed)
	assert.Equal(t, 1, publisher.discarded)
}

func TestUnitOfWork_GettersPanicBeforeBegin(t *testing.T) {
	uow := NewUnitOfWorkFactory(nil).CreateWithPublisher(&bufferedPublisher{})

	assert.Panics(t, func() { uow.BetRepository() })
	assert.Panics(t, func() { uow.VoteRepository() })
	assert.NoError(t, uow.Rollback())
}
