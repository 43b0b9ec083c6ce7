package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"socialbets/application"
	"socialbets/domain/entities"
	"socialbets/domain/events"
	"socialbets/domain/interfaces"
	"socialbets/domain/testhelpers"
	"socialbets/infrastructure"
	"socialbets/repository"
	"socialbets/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	groupID   = int64(77)
	creatorID = int64(1001)
	aliceID   = int64(2002)
	bobID     = int64(3003)
	carolID   = int64(4004)
)

// recordingMetrics counts the metric calls BetCommands makes
type recordingMetrics struct {
	mu        sync.Mutex
	resolved  []string
	cancelled []string
	holds     int
	settled   int
	failed    int
	claims    int
	votes     int
}

func (m *recordingMetrics) RecordVoteCast() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes++
}

func (m *recordingMetrics) RecordBetResolved(kind string, forced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolved = append(m.resolved, kind)
}

func (m *recordingMetrics) RecordBetCancelled(trigger string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, trigger)
}

func (m *recordingMetrics) RecordInterventionNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holds++
}

func (m *recordingMetrics) RecordSettlement(settled, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settled += settled
	m.failed += failed
}

func (m *recordingMetrics) RecordFulfillmentClaim() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims++
}

type commandsFixture struct {
	commands  *application.BetCommands
	factory   application.UnitOfWorkFactory
	ledger    *testhelpers.MockCreditLedger
	publisher *infrastructure.RecordingEventPublisher
	metrics   *recordingMetrics
	bets      interfaces.BetRepository
	parts     interfaces.ParticipationRepository
}

func newCommandsFixture(t *testing.T, policy interfaces.ZeroVotePolicy) *commandsFixture {
	t.Helper()

	testDB := testutil.SetupTestDatabase(t)
	publisher := infrastructure.NewRecordingEventPublisher()
	factory := infrastructure.NewUnitOfWorkFactory(testDB.DB, publisher)
	ledger := &testhelpers.MockCreditLedger{}
	metrics := &recordingMetrics{}

	return &commandsFixture{
		commands:  application.NewBetCommands(factory, ledger, nil, policy, metrics),
		factory:   factory,
		ledger:    ledger,
		publisher: publisher,
		metrics:   metrics,
		bets:      repository.NewBetRepository(testDB.DB),
		parts:     repository.NewParticipationRepository(testDB.DB),
	}
}

func (f *commandsFixture) stake(t *testing.T, betID, userID int64, option int, amount string) {
	t.Helper()
	require.NoError(t, f.parts.Create(context.Background(), testutil.CreateTestParticipation(betID, userID, option, amount)))
}

func TestBetCommands_CreatorVoteResolvesAndSettles(t *testing.T) {
	f := newCommandsFixture(t, interfaces.ZeroVotePolicyCancel)
	ctx := context.Background()

	bet := testutil.CreateTestClosedBet(groupID, creatorID)
	require.NoError(t, f.bets.Create(ctx, bet, nil))
	f.stake(t, bet.ID, aliceID, 1, "10")
	f.stake(t, bet.ID, bobID, 2, "10")

	f.ledger.On("Transfer", mock.Anything, mock.MatchedBy(func(tr entities.LedgerTransfer) bool {
		return tr.UserID == aliceID && tr.BetID == bet.ID
	})).Return(nil).Once()

	option := 1
	result, err := f.commands.SubmitVote(ctx, interfaces.SubmitVoteRequest{
		BetID:      bet.ID,
		ResolverID: creatorID,
		Option:     &option,
	})
	require.NoError(t, err)
	assert.True(t, result.Resolved)
	require.NotNil(t, result.Settlement)
	assert.Equal(t, 2, result.Settlement.Settled)
	assert.Zero(t, result.Settlement.Failed)

	saved, err := f.bets.GetByID(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BetStatusResolved, saved.Status)
	assert.Equal(t, entities.SingleChoice{Option: 1}, saved.Outcome)

	f.ledger.AssertExpectations(t)
	assert.Len(t, f.publisher.EventsOfType(events.EventTypeBetResolved), 1)
	assert.Len(t, f.publisher.EventsOfType(events.EventTypeVoteCast), 1)
	assert.Equal(t, []string{string(entities.OutcomeKindSingleChoice)}, f.metrics.resolved)
	assert.Equal(t, 1, f.metrics.votes)
}

func TestBetCommands_RejectedVoteLeavesNoTrace(t *testing.T) {
	f := newCommandsFixture(t, interfaces.ZeroVotePolicyCancel)
	ctx := context.Background()

	bet := testutil.CreateTestClosedBet(groupID, creatorID)
	require.NoError(t, f.bets.Create(ctx, bet, nil))
	f.stake(t, bet.ID, aliceID, 1, "10")

	option := 1
	_, err := f.commands.SubmitVote(ctx, interfaces.SubmitVoteRequest{
		BetID:      bet.ID,
		ResolverID: aliceID,
		Option:     &option,
	})
	require.ErrorIs(t, err, entities.ErrNotAuthorizedToResolve)

	history, err := f.commands.GetVoteHistory(ctx, bet.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, f.publisher.Events())
	assert.Zero(t, f.metrics.votes)
}

func TestBetCommands_ConcurrentForceResolveSettlesOnce(t *testing.T) {
	f := newCommandsFixture(t, interfaces.ZeroVotePolicyCancel)
	ctx := context.Background()

	bet := testutil.CreateTestClosedBet(groupID, creatorID)
	require.NoError(t, f.bets.Create(ctx, bet, nil))
	f.stake(t, bet.ID, aliceID, 1, "10")
	f.stake(t, bet.ID, bobID, 2, "25")

	f.ledger.On("Transfer", mock.Anything, mock.AnythingOfType("entities.LedgerTransfer")).Return(nil)

	const workers = 5
	results := make([]*interfaces.ResolutionResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.commands.ForceResolveIfDeadlinePassed(ctx, bet.ID)
		}(i)
	}
	wg.Wait()

	cancelled := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].Cancelled {
			cancelled++
		}
	}
	assert.Equal(t, 1, cancelled)

	// One refund per stake, no matter how many callers raced
	f.ledger.AssertNumberOfCalls(t, "Transfer", 2)

	saved, err := f.bets.GetByID(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BetStatusCancelled, saved.Status)
	assert.Len(t, f.publisher.EventsOfType(events.EventTypeBetCancelled), 1)
	assert.Equal(t, []string{"no_votes"}, f.metrics.cancelled)
}

func TestBetCommands_HoldPolicyFlagsIntervention(t *testing.T) {
	f := newCommandsFixture(t, interfaces.ZeroVotePolicyHold)
	ctx := context.Background()

	bet := testutil.CreateTestClosedBet(groupID, creatorID)
	require.NoError(t, f.bets.Create(ctx, bet, nil))
	f.stake(t, bet.ID, aliceID, 1, "10")

	result, err := f.commands.ForceResolveIfDeadlinePassed(ctx, bet.ID)
	require.NoError(t, err)
	assert.True(t, result.NeedsIntervention)
	assert.False(t, result.Cancelled)

	saved, err := f.bets.GetByID(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BetStatusClosed, saved.Status)
	assert.Len(t, f.publisher.EventsOfType(events.EventTypeResolutionNeedsIntervention), 1)
	assert.Equal(t, 1, f.metrics.holds)
	f.ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
}

func TestBetCommands_CancelBetRefunds(t *testing.T) {
	f := newCommandsFixture(t, interfaces.ZeroVotePolicyCancel)
	ctx := context.Background()

	bet := testutil.CreateTestBet(groupID, creatorID)
	require.NoError(t, f.bets.Create(ctx, bet, nil))
	f.stake(t, bet.ID, aliceID, 1, "15")

	f.ledger.On("Transfer", mock.Anything, mock.MatchedBy(func(tr entities.LedgerTransfer) bool {
		return tr.UserID == aliceID && tr.Amount.Equal(decimal.RequireFromString("15"))
	})).Return(nil).Once()

	_, err := f.commands.CancelBet(ctx, bet.ID, aliceID, "")
	require.ErrorIs(t, err, entities.ErrNotBetCreator)

	report, err := f.commands.CancelBet(ctx, bet.ID, creatorID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Settled)

	saved, err := f.bets.GetByID(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BetStatusCancelled, saved.Status)
	require.NotNil(t, saved.CancellationReason)
	assert.Equal(t, "cancelled by creator", *saved.CancellationReason)

	f.ledger.AssertExpectations(t)
	assert.Equal(t, []string{"creator"}, f.metrics.cancelled)
}

func TestBetCommands_SocialBetFulfillment(t *testing.T) {
	f := newCommandsFixture(t, interfaces.ZeroVotePolicyCancel)
	ctx := context.Background()

	bet := testutil.CreateTestSocialBet(groupID, creatorID, "sing karaoke")
	bet.Status = entities.BetStatusClosed
	bet.BettingDeadline = time.Now().UTC().Add(-2 * time.Hour)
	bet.ResolveDate = time.Now().UTC().Add(time.Hour)
	require.NoError(t, f.bets.Create(ctx, bet, nil))

	for _, userID := range []int64{aliceID, bobID, carolID} {
		require.NoError(t, f.parts.Create(ctx, &entities.BetParticipation{
			BetID:  bet.ID,
			UserID: userID,
			Status: entities.ParticipationStatusActive,
		}))
	}

	result, err := f.commands.SubmitVote(ctx, interfaces.SubmitVoteRequest{
		BetID:      bet.ID,
		ResolverID: creatorID,
		WinnerIDs:  []int64{aliceID},
	})
	require.NoError(t, err)
	require.True(t, result.Resolved)

	summary, err := f.commands.GetFulfillmentStatus(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.FulfillmentStatusPending, summary.Status)
	assert.Equal(t, 2, summary.TotalLosers)

	proof := "https://example.com/karaoke.mp4"
	claim, err := f.commands.ClaimFulfilled(ctx, interfaces.ClaimRequest{
		BetID:    bet.ID,
		LoserID:  bobID,
		ProofURL: &proof,
	})
	require.NoError(t, err)
	assert.Equal(t, bobID, claim.LoserID)

	_, err = f.commands.ClaimFulfilled(ctx, interfaces.ClaimRequest{BetID: bet.ID, LoserID: bobID})
	require.ErrorIs(t, err, entities.ErrAlreadyClaimed)

	_, err = f.commands.ClaimFulfilled(ctx, interfaces.ClaimRequest{BetID: bet.ID, LoserID: aliceID})
	require.ErrorIs(t, err, entities.ErrNotALoser)

	summary, err = f.commands.GetFulfillmentStatus(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.FulfillmentStatusPartiallyFulfilled, summary.Status)
	assert.Equal(t, 1, summary.ConfirmationCount)

	f.ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
	assert.Equal(t, 1, f.metrics.claims)
}
