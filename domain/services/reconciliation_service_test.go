package services

import (
	"testing"

	"socialbets/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileBet_FinishesStragglers(t *testing.T) {
	f := NewServiceTestFixture(t)
	scenario := NewBetScenario().
		WithChoice(TestUser1ID, 1, "10").
		WithChoice(TestUser2ID, 1, "10").
		WithChoice(TestUser3ID, 2, "10").
		WithOutcome(entities.SingleChoice{Option: 1})

	// Earlier pass settled everyone except the second winner
	scenario.Participation(TestUser1ID).MarkWon(dec("15"), TestNow)
	scenario.Participation(TestUser3ID).MarkLost(TestNow)

	f.Helper.ExpectBetLock(scenario.Bet)
	f.Helper.ExpectParticipations(TestBetID, scenario.Participations)
	f.Helper.ExpectLedgerTransfer(TestUser2ID, "15", entities.LedgerReasonBetWinnings)
	f.Helper.ExpectSettleAll()
	f.Helper.AllowAnyEvents()

	report, err := f.Reconciliation.ReconcileBet(f.Ctx, TestBetID)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Settled)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, "15.00", scenario.Participation(TestUser2ID).ActualWinnings.StringFixed(2))
	f.AssertAllMocks()
}

func TestReconcileBet_CancelledBetRefundsRemaining(t *testing.T) {
	f := NewServiceTestFixture(t)
	scenario := NewBetScenario().WithChoice(TestUser1ID, 1, "10")
	require.NoError(t, scenario.Bet.Cancel("venue closed", TestNow))

	f.Helper.ExpectBetLock(scenario.Bet)
	f.Helper.ExpectParticipations(TestBetID, scenario.Participations)
	f.Helper.ExpectNoInsurance(TestUser1ID, TestBetID)
	f.Helper.ExpectLedgerTransfer(TestUser1ID, "10", entities.LedgerReasonCancellationRefund)
	f.Helper.ExpectSettleAll()
	f.Helper.AllowAnyEvents()

	report, err := f.Reconciliation.ReconcileBet(f.Ctx, TestBetID)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Settled)
	f.AssertAllMocks()
}

func TestReconcileBet_UnfinishedBet(t *testing.T) {
	f := NewServiceTestFixture(t)
	scenario := NewBetScenario()
	f.Helper.ExpectBetLock(scenario.Bet)

	_, err := f.Reconciliation.ReconcileBet(f.Ctx, TestBetID)

	assert.ErrorIs(t, err, entities.ErrBetNotInResolvablePhase)
}

func TestReconcileBet_NotFound(t *testing.T) {
	f := NewServiceTestFixture(t)
	f.Helper.ExpectBetNotFound(TestBetID)

	_, err := f.Reconciliation.ReconcileBet(f.Ctx, TestBetID)

	assert.ErrorIs(t, err, entities.ErrBetNotFound)
}
