package services

import (
	"errors"
	"testing"

	"socialbets/domain/entities"
	"socialbets/domain/events"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSettle_ProRataCreditPayout(t *testing.T) {
	f := NewServiceTestFixture(t)
	scenario := NewBetScenario().
		WithChoice(TestUser1ID, 1, "10").
		WithChoice(TestUser2ID, 1, "20").
		WithChoice(TestUser3ID, 2, "10").
		WithOutcome(entities.SingleChoice{Option: 1})

	f.Helper.ExpectParticipations(TestBetID, scenario.Participations)
	f.Helper.ExpectNoInsurance(TestUser3ID, TestBetID)
	f.Helper.ExpectLedgerTransfer(TestUser1ID, "13.33", entities.LedgerReasonBetWinnings)
	f.Helper.ExpectLedgerTransfer(TestUser2ID, "26.67", entities.LedgerReasonBetWinnings)
	f.Helper.ExpectSettleAll()
	f.Helper.ExpectEventPublish(events.EventTypeParticipationSettled)

	report, err := f.Settlement.Settle(f.Ctx, scenario.Bet)

	require.NoError(t, err)
	assert.Equal(t, 3, report.Settled)
	assert.Zero(t, report.Failed)

	first := scenario.Participation(TestUser1ID)
	assert.Equal(t, entities.ParticipationStatusWon, first.Status)
	assert.Equal(t, "13.33", first.ActualWinnings.StringFixed(2))
	assert.Equal(t, "26.67", scenario.Participation(TestUser2ID).ActualWinnings.StringFixed(2))

	loser := scenario.Participation(TestUser3ID)
	assert.Equal(t, entities.ParticipationStatusLost, loser.Status)
	assert.True(t, loser.ActualWinnings.IsZero())
	assert.NotNil(t, loser.SettledAt)

	f.AssertAllMocks()
}

func TestSettle_InsuredLoserKeepsRefund(t *testing.T) {
	f := NewServiceTestFixture(t)
	scenario := NewBetScenario().
		WithChoice(TestUser1ID, 1, "100").
		WithChoice(TestUser2ID, 2, "100").
		WithOutcome(entities.SingleChoice{Option: 1})

	f.Helper.ExpectParticipations(TestBetID, scenario.Participations)
	f.Mocks.Insurance.On("GetActiveInsurance", mock.Anything, TestUser2ID, TestBetID).Return(&entities.InsurancePolicy{
		ItemID:           TestItemID,
		UserID:           TestUser2ID,
		BetID:            TestBetID,
		RefundPercentage: 50,
	}, nil)
	f.Helper.ExpectLedgerTransfer(TestUser1ID, "200", entities.LedgerReasonBetWinnings)
	f.Helper.ExpectLedgerTransfer(TestUser2ID, "50", entities.LedgerReasonInsuranceRefund)
	f.Helper.ExpectSettleAll()
	f.Helper.AllowAnyEvents()

	_, err := f.Settlement.Settle(f.Ctx, scenario.Bet)
	require.NoError(t, err)

	loser := scenario.Participation(TestUser2ID)
	assert.Equal(t, entities.ParticipationStatusLost, loser.Status)
	assert.Equal(t, "50.00", loser.ActualWinnings.StringFixed(2))
	assert.True(t, loser.InsuranceApplied)
	require.NotNil(t, loser.InsuranceItemID)
	assert.Equal(t, TestItemID, *loser.InsuranceItemID)

	f.AssertAllMocks()
}

func TestSettle_LoserInsuredAtJoinIsRefunded(t *testing.T) {
	tests := []struct {
		name         string
		storedAmount string
		wantRefund   string
	}{
		{name: "only percentage stored", storedAmount: "0", wantRefund: "50.00"},
		{name: "amount stored", storedAmount: "50", wantRefund: "50.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewServiceTestFixture(t)
			scenario := NewBetScenario().
				WithChoice(TestUser1ID, 1, "100").
				WithChoice(TestUser2ID, 2, "100").
				WithOutcome(entities.SingleChoice{Option: 1})

			pct := 50
			itemID := TestItemID
			loser := scenario.Participation(TestUser2ID)
			loser.InsuranceApplied = true
			loser.InsuranceRefundPercentage = &pct
			loser.InsuranceItemID = &itemID
			loser.InsuranceRefundAmount = decimal.RequireFromString(tt.storedAmount)

			f.Helper.ExpectParticipations(TestBetID, scenario.Participations)
			f.Helper.ExpectLedgerTransfer(TestUser1ID, "200", entities.LedgerReasonBetWinnings)
			f.Helper.ExpectLedgerTransfer(TestUser2ID, "50", entities.LedgerReasonInsuranceRefund)
			f.Helper.ExpectSettleAll()
			f.Helper.AllowAnyEvents()

			report, err := f.Settlement.Settle(f.Ctx, scenario.Bet)
			require.NoError(t, err)
			assert.Equal(t, 2, report.Settled)

			assert.Equal(t, entities.ParticipationStatusLost, loser.Status)
			assert.Equal(t, tt.wantRefund, loser.ActualWinnings.StringFixed(2))
			assert.Equal(t, tt.wantRefund, loser.InsuranceRefundAmount.StringFixed(2))

			f.Mocks.Insurance.AssertNotCalled(t, "GetActiveInsurance", mock.Anything, mock.Anything, mock.Anything)
			f.AssertAllMocks()
		})
	}
}

func TestSettle_DrawRefundsEveryone(t *testing.T) {
	f := NewServiceTestFixture(t)
	scenario := NewBetScenario().
		WithCreatorRow().
		WithChoice(TestUser1ID, 1, "15").
		WithChoice(TestUser2ID, 2, "25").
		WithOutcome(entities.Draw{})

	f.Helper.ExpectParticipations(TestBetID, scenario.Participations)
	f.Helper.ExpectLedgerTransfer(TestUser1ID, "15", entities.LedgerReasonDrawRefund)
	f.Helper.ExpectLedgerTransfer(TestUser2ID, "25", entities.LedgerReasonDrawRefund)
	f.Helper.ExpectSettleAll()
	f.Helper.AllowAnyEvents()

	report, err := f.Settlement.Settle(f.Ctx, scenario.Bet)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Settled)

	for _, userID := range []int64{TestUser1ID, TestUser2ID} {
		p := scenario.Participation(userID)
		assert.Equal(t, entities.ParticipationStatusRefunded, p.Status)
		assert.Equal(t, entities.ResultDraw, p.Result)
		assert.True(t, p.ActualWinnings.Equal(p.BetAmount))
	}
	assert.Nil(t, scenario.Participation(TestCreatorID).SettledAt, "creator marker row is not settled")

	f.AssertAllMocks()
}

func TestSettle_NoWinnerRefundsLosers(t *testing.T) {
	f := NewServiceTestFixture(t)
	scenario := NewBetScenario().
		WithChoice(TestUser1ID, 2, "10").
		WithChoice(TestUser2ID, 2, "30").
		WithOutcome(entities.SingleChoice{Option: 1})

	f.Helper.ExpectParticipations(TestBetID, scenario.Participations)
	f.Helper.ExpectLedgerTransfer(TestUser1ID, "10", entities.LedgerReasonNoWinnerRefund)
	f.Helper.ExpectLedgerTransfer(TestUser2ID, "30", entities.LedgerReasonNoWinnerRefund)
	f.Helper.ExpectSettleAll()
	f.Helper.AllowAnyEvents()

	_, err := f.Settlement.Settle(f.Ctx, scenario.Bet)
	require.NoError(t, err)

	p := scenario.Participation(TestUser2ID)
	assert.Equal(t, entities.ParticipationStatusRefunded, p.Status)
	assert.Equal(t, entities.ResultRefund, p.Result)

	f.AssertAllMocks()
}

func TestSettle_SocialBetMovesNoCredits(t *testing.T) {
	f := NewServiceTestFixture(t)
	scenario := NewBetScenario().
		WithSocialStake("loser buys pizza").
		WithChoice(TestUser1ID, 1, "0").
		WithChoice(TestUser2ID, 2, "0").
		WithChoice(TestUser3ID, 2, "0").
		WithOutcome(entities.SingleChoice{Option: 1})

	f.Helper.ExpectParticipations(TestBetID, scenario.Participations)
	f.Helper.ExpectSettleAll()
	f.Helper.AllowAnyEvents()

	report, err := f.Settlement.Settle(f.Ctx, scenario.Bet)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Settled)

	assert.Equal(t, entities.ParticipationStatusWon, scenario.Participation(TestUser1ID).Status)
	assert.Equal(t, entities.ParticipationStatusLost, scenario.Participation(TestUser2ID).Status)
	assert.Equal(t, entities.ParticipationStatusLost, scenario.Participation(TestUser3ID).Status)
	for _, p := range scenario.Participations {
		assert.True(t, p.ActualWinnings.IsZero())
	}

	f.Mocks.Ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
	f.Mocks.Insurance.AssertNotCalled(t, "GetActiveInsurance", mock.Anything, mock.Anything, mock.Anything)
	f.AssertAllMocks()
}

func TestSettle_SocialBetWithoutWinnerKeepsLosersLost(t *testing.T) {
	f := NewServiceTestFixture(t)
	scenario := NewBetScenario().
		WithSocialStake("loser buys pizza").
		WithChoice(TestUser1ID, 2, "0").
		WithChoice(TestUser2ID, 2, "0").
		WithOutcome(entities.SingleChoice{Option: 1})

	f.Helper.ExpectParticipations(TestBetID, scenario.Participations)
	f.Helper.ExpectSettleAll()
	f.Helper.AllowAnyEvents()

	report, err := f.Settlement.Settle(f.Ctx, scenario.Bet)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Settled)

	for _, p := range scenario.Participations {
		assert.Equal(t, entities.ParticipationStatusLost, p.Status)
		assert.Equal(t, entities.ResultLoss, p.Result)
	}

	f.Mocks.Ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
	f.AssertAllMocks()
}

func TestSettle_LedgerFailureLeavesParticipationForReconciliation(t *testing.T) {
	f := NewServiceTestFixture(t)
	scenario := NewBetScenario().
		WithChoice(TestUser1ID, 1, "10").
		WithChoice(TestUser2ID, 1, "10").
		WithChoice(TestUser3ID, 2, "10").
		WithOutcome(entities.SingleChoice{Option: 1})

	f.Helper.ExpectParticipations(TestBetID, scenario.Participations)
	f.Helper.ExpectNoInsurance(TestUser3ID, TestBetID)
	f.Mocks.Ledger.On("Transfer", mock.Anything, mock.MatchedBy(func(t entities.LedgerTransfer) bool {
		return t.UserID == TestUser1ID
	})).Return(errors.New("ledger unavailable")).Once()
	f.Helper.ExpectLedgerTransfer(TestUser2ID, "15", entities.LedgerReasonBetWinnings)
	f.Mocks.ParticipationRepo.On("Settle", mock.Anything, mock.MatchedBy(func(p *entities.BetParticipation) bool {
		return p.UserID != TestUser1ID
	})).Return(true, nil).Twice()
	f.Helper.AllowAnyEvents()

	report, err := f.Settlement.Settle(f.Ctx, scenario.Bet)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Settled)
	assert.Equal(t, 1, report.Failed)
	f.AssertAllMocks()
}

func TestSettle_AlreadySettledIsSkipped(t *testing.T) {
	f := NewServiceTestFixture(t)
	scenario := NewBetScenario().
		WithChoice(TestUser1ID, 1, "10").
		WithChoice(TestUser2ID, 2, "10").
		WithOutcome(entities.SingleChoice{Option: 1})

	// A previous pass already paid the winner their share of the full pool
	scenario.Participation(TestUser1ID).MarkWon(dec("20"), TestNow)

	f.Helper.ExpectParticipations(TestBetID, scenario.Participations)
	f.Helper.ExpectNoInsurance(TestUser2ID, TestBetID)
	f.Helper.ExpectSettleAll()
	f.Helper.AllowAnyEvents()

	report, err := f.Settlement.Settle(f.Ctx, scenario.Bet)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Settled)
	assert.Equal(t, 1, report.Skipped)
	f.Mocks.Ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
	f.AssertAllMocks()
}

func TestSettle_RejectsUnresolvedBet(t *testing.T) {
	f := NewServiceTestFixture(t)
	scenario := NewBetScenario()

	_, err := f.Settlement.Settle(f.Ctx, scenario.Bet)

	assert.ErrorIs(t, err, entities.ErrInvalidOutcome)
}

func TestCancel_RefundsAndReturnsInsurance(t *testing.T) {
	f := NewServiceTestFixture(t)
	scenario := NewBetScenario().
		WithCreatorRow().
		WithChoice(TestUser1ID, 1, "10").
		WithChoice(TestUser2ID, 2, "40")
	itemID := TestItemID
	scenario.Participation(TestUser1ID).InsuranceItemID = &itemID
	require.NoError(t, scenario.Bet.Cancel("rain delay", TestNow))

	f.Helper.ExpectParticipations(TestBetID, scenario.Participations)
	f.Mocks.Insurance.On("ReturnItem", mock.Anything, TestUser1ID, TestItemID).Return(nil).Once()
	f.Mocks.Insurance.On("GetActiveInsurance", mock.Anything, TestUser2ID, TestBetID).Return(&entities.InsurancePolicy{
		ItemID:           TestItemID + 1,
		UserID:           TestUser2ID,
		BetID:            TestBetID,
		RefundPercentage: 25,
	}, nil)
	f.Mocks.Insurance.On("ReturnItem", mock.Anything, TestUser2ID, TestItemID+1).Return(nil).Once()
	f.Helper.ExpectNoInsurance(TestCreatorID, TestBetID)
	f.Helper.ExpectLedgerTransfer(TestUser1ID, "10", entities.LedgerReasonCancellationRefund)
	f.Helper.ExpectLedgerTransfer(TestUser2ID, "40", entities.LedgerReasonCancellationRefund)
	f.Helper.ExpectSettleAll()
	f.Helper.AllowAnyEvents()

	report, err := f.Settlement.Cancel(f.Ctx, scenario.Bet)

	require.NoError(t, err)
	assert.Equal(t, 3, report.Settled)
	for _, p := range scenario.Participations {
		assert.Equal(t, entities.ParticipationStatusRefunded, p.Status)
		assert.True(t, p.ActualWinnings.Equal(p.BetAmount))
		assert.NotNil(t, p.SettledAt)
	}
	f.AssertAllMocks()
}

func TestCancel_SkipsWithdrawnAndSettledParticipations(t *testing.T) {
	f := NewServiceTestFixture(t)
	scenario := NewBetScenario().
		WithChoice(TestUser1ID, 1, "10").
		WithChoice(TestUser2ID, 2, "20").
		WithChoice(TestUser3ID, 1, "30")
	require.NoError(t, scenario.Bet.Cancel("rain delay", TestNow))

	// User2 withdrew before the cancellation and already got the stake back
	scenario.Participation(TestUser2ID).Status = entities.ParticipationStatusCancelled
	// User3 was refunded by an earlier pass
	scenario.Participation(TestUser3ID).MarkRefunded(entities.ResultRefund, TestNow)

	f.Helper.ExpectParticipations(TestBetID, scenario.Participations)
	f.Helper.ExpectNoInsurance(TestUser1ID, TestBetID)
	f.Helper.ExpectLedgerTransfer(TestUser1ID, "10", entities.LedgerReasonCancellationRefund)
	f.Helper.ExpectSettleAll()
	f.Helper.AllowAnyEvents()

	report, err := f.Settlement.Cancel(f.Ctx, scenario.Bet)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Settled)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, entities.ParticipationStatusCancelled, scenario.Participation(TestUser2ID).Status)
	assert.Nil(t, scenario.Participation(TestUser2ID).SettledAt)
	f.Mocks.Insurance.AssertNotCalled(t, "GetActiveInsurance", mock.Anything, TestUser2ID, TestBetID)
	f.Mocks.Ledger.AssertNumberOfCalls(t, "Transfer", 1)
	f.AssertAllMocks()
}

func TestCancel_InsuranceReturnFailureIsRetriedLater(t *testing.T) {
	f := NewServiceTestFixture(t)
	scenario := NewBetScenario().WithChoice(TestUser1ID, 1, "10")
	itemID := TestItemID
	scenario.Participation(TestUser1ID).InsuranceItemID = &itemID
	require.NoError(t, scenario.Bet.Cancel("rain delay", TestNow))

	f.Helper.ExpectParticipations(TestBetID, scenario.Participations)
	f.Mocks.Insurance.On("ReturnItem", mock.Anything, TestUser1ID, TestItemID).Return(errors.New("inventory down"))

	report, err := f.Settlement.Cancel(f.Ctx, scenario.Bet)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, entities.ParticipationStatusActive, scenario.Participation(TestUser1ID).Status)
	f.Mocks.ParticipationRepo.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)
	f.AssertAllMocks()
}
