package repository

import (
	"context"
	"testing"
	"time"

	"socialbets/domain/entities"
	"socialbets/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipationRepository_SettleOnce(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	bets := NewBetRepository(testDB.DB)
	repo := NewParticipationRepository(testDB.DB)

	bet := testutil.CreateTestClosedBet(testGroupID, testCreatorID)
	require.NoError(t, bets.Create(ctx, bet, nil))

	winner := testutil.CreateTestParticipation(bet.ID, 2002, 1, "10.00")
	loser := testutil.CreateTestParticipation(bet.ID, 3003, 2, "20.00")
	require.NoError(t, repo.Create(ctx, winner))
	require.NoError(t, repo.Create(ctx, loser))

	now := time.Now().UTC()
	winner.MarkWon(decimal.RequireFromString("30.00"), now)
	loser.ApplyInsurance(&entities.InsurancePolicy{ItemID: 7, UserID: 3003, BetID: bet.ID, RefundPercentage: 50})
	loser.MarkLost(now)

	ok, err := repo.Settle(ctx, winner)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Settle(ctx, loser)
	require.NoError(t, err)
	assert.True(t, ok)

	// The settled_at guard turns a replay into a no-op
	ok, err = repo.Settle(ctx, winner)
	require.NoError(t, err)
	assert.False(t, ok)

	saved, err := repo.GetByBetAndUser(ctx, bet.ID, 3003)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, entities.ParticipationStatusLost, saved.Status)
	assert.Equal(t, entities.ResultLoss, saved.Result)
	assert.True(t, saved.InsuranceApplied)
	assert.Equal(t, "10.00", saved.ActualWinnings.StringFixed(2))
	require.NotNil(t, saved.InsuranceItemID)
	assert.Equal(t, int64(7), *saved.InsuranceItemID)

	losers, err := repo.ListLoserIDs(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{3003}, losers)

	all, err := repo.ListByBet(ctx, bet.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestParticipationRepository_GetMissing(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewParticipationRepository(testDB.DB)

	p, err := repo.GetByBetAndUser(context.Background(), 1, 2)

	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestParticipationRepository_CreateKeepsInsuranceTerms(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	bets := NewBetRepository(testDB.DB)
	repo := NewParticipationRepository(testDB.DB)

	bet := testutil.CreateTestBet(testGroupID, testCreatorID)
	require.NoError(t, bets.Create(ctx, bet, nil))

	insured := testutil.CreateTestParticipation(bet.ID, 3003, 2, "100.00")
	insured.ApplyInsurance(&entities.InsurancePolicy{ItemID: 9, UserID: 3003, BetID: bet.ID, RefundPercentage: 50})
	require.NoError(t, repo.Create(ctx, insured))

	saved, err := repo.GetByBetAndUser(ctx, bet.ID, 3003)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, saved.InsuranceApplied)
	require.NotNil(t, saved.InsuranceRefundPercentage)
	assert.Equal(t, 50, *saved.InsuranceRefundPercentage)
	assert.Equal(t, "50.00", saved.InsuranceRefundAmount.StringFixed(2))
	require.NotNil(t, saved.InsuranceItemID)
	assert.Equal(t, int64(9), *saved.InsuranceItemID)

	saved.MarkLost(time.Now().UTC())
	assert.Equal(t, "50.00", saved.ActualWinnings.StringFixed(2))
}
