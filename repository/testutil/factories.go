package testutil

import (
	"context"
	"testing"
	"time"

	"socialbets/database"
	"socialbets/domain/entities"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// CreateTestBet returns an open credit bet with two options whose betting window is still open
func CreateTestBet(groupID, creatorID int64) *entities.Bet {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &entities.Bet{
		GroupID:          groupID,
		CreatorID:        creatorID,
		Title:            "Who wins the derby?",
		Category:         "sports",
		BetType:          entities.BetTypeMultipleChoice,
		StakeType:        entities.StakeTypeCredit,
		ResolutionMethod: entities.ResolutionMethodCreatorOnly,
		BettingDeadline:  now.Add(time.Hour),
		ResolveDate:      now.Add(24 * time.Hour),
		Options:          []string{"Home", "Away"},
		Status:           entities.BetStatusOpen,
	}
}

// CreateTestClosedBet returns a bet whose betting window closed and resolve date passed
func CreateTestClosedBet(groupID, creatorID int64) *entities.Bet {
	bet := CreateTestBet(groupID, creatorID)
	now := time.Now().UTC().Truncate(time.Microsecond)
	bet.Status = entities.BetStatusClosed
	bet.BettingDeadline = now.Add(-2 * time.Hour)
	bet.ResolveDate = now.Add(-time.Hour)
	return bet
}

// CreateTestSocialBet returns a prediction bet staked on a social forfeit
func CreateTestSocialBet(groupID, creatorID int64, forfeit string) *entities.Bet {
	bet := CreateTestBet(groupID, creatorID)
	bet.BetType = entities.BetTypePrediction
	bet.StakeType = entities.StakeTypeSocial
	bet.SocialStakeDescription = &forfeit
	bet.Options = nil
	return bet
}

// CreateTestParticipation returns an unsettled credit stake on an option
func CreateTestParticipation(betID, userID int64, option int, amount string) *entities.BetParticipation {
	stake := decimal.RequireFromString(amount)
	return &entities.BetParticipation{
		BetID:        betID,
		UserID:       userID,
		ChosenOption: &option,
		BetAmount:    stake,
		Status:       entities.ParticipationStatusActive,
	}
}

// SeedInsuranceItem inserts an insurance item already consumed on the bet and returns its ID
func SeedInsuranceItem(t *testing.T, db *database.DB, userID, betID int64, refundPercentage int) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(context.Background(), `
		INSERT INTO user_inventory_items (user_id, item_type, refund_percentage, used_at, used_on_bet_id)
		VALUES ($1, 'bet_insurance', $2, NOW(), $3)
		RETURNING id`,
		userID, refundPercentage, betID,
	).Scan(&id)
	require.NoError(t, err)
	return id
}
