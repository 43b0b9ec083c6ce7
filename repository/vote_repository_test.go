package repository

import (
	"context"
	"testing"
	"time"

	"socialbets/domain/entities"
	"socialbets/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteRepository_RevoteKeepsHistory(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	bets := NewBetRepository(testDB.DB)
	repo := NewVoteRepository(testDB.DB)

	bet := testutil.CreateTestClosedBet(testGroupID, testCreatorID)
	require.NoError(t, bets.Create(ctx, bet, nil))

	first, second := 1, 2
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, &entities.ResolutionVote{BetID: bet.ID, ResolverID: testCreatorID, ChosenOption: &first, CastAt: now}))

	revoked, err := repo.RevokeActive(ctx, bet.ID, testCreatorID, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, repo.Create(ctx, &entities.ResolutionVote{BetID: bet.ID, ResolverID: testCreatorID, ChosenOption: &second, CastAt: now.Add(time.Minute)}))

	active, err := repo.GetActiveByBet(ctx, bet.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second, *active[0].ChosenOption)

	history, err := repo.ListByBet(ctx, bet.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[0].IsActive)
	assert.NotNil(t, history[0].RevokedAt)
	assert.True(t, history[1].IsActive)

	revoked, err = repo.RevokeActive(ctx, bet.ID, 9999, now)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestVoteRepository_SecondActiveVoteRejected(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	bets := NewBetRepository(testDB.DB)
	repo := NewVoteRepository(testDB.DB)

	bet := testutil.CreateTestClosedBet(testGroupID, testCreatorID)
	require.NoError(t, bets.Create(ctx, bet, nil))

	option := 1
	require.NoError(t, repo.Create(ctx, &entities.ResolutionVote{BetID: bet.ID, ResolverID: testCreatorID, ChosenOption: &option}))

	err := repo.Create(ctx, &entities.ResolutionVote{BetID: bet.ID, ResolverID: testCreatorID, ChosenOption: &option})
	assert.Error(t, err)

	active, err := repo.GetActiveByBet(ctx, bet.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestVoteRepository_WinnerSelections(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	bets := NewBetRepository(testDB.DB)
	repo := NewVoteRepository(testDB.DB)

	bet := testutil.CreateTestSocialBet(testGroupID, testCreatorID, "buys the next round")
	bet.Status = entities.BetStatusClosed
	bet.BettingDeadline = time.Now().Add(-time.Hour)
	require.NoError(t, bets.Create(ctx, bet, nil))

	require.NoError(t, repo.Create(ctx, &entities.ResolutionVote{BetID: bet.ID, ResolverID: 2002, WinnerIDs: []int64{3003, 4004}}))
	require.NoError(t, repo.Create(ctx, &entities.ResolutionVote{BetID: bet.ID, ResolverID: 3003, WinnerIDs: []int64{4004}}))
	require.NoError(t, repo.Create(ctx, &entities.ResolutionVote{BetID: bet.ID, ResolverID: 4004}))

	active, err := repo.GetActiveByBet(ctx, bet.ID)
	require.NoError(t, err)
	require.Len(t, active, 3)

	byResolver := make(map[int64][]int64)
	for _, v := range active {
		byResolver[v.ResolverID] = v.WinnerIDs
	}
	assert.Equal(t, []int64{3003, 4004}, byResolver[2002])
	assert.Equal(t, []int64{4004}, byResolver[3003])
	assert.Empty(t, byResolver[4004])
}
