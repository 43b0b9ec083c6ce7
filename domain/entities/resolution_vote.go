package entities

import (
	"time"
)

// ResolutionVote is one resolver's ballot on the outcome of a bet.
// Exactly one of ChosenOption or WinnerIDs is set, matching the bet type.
type ResolutionVote struct {
	ID           int64      `db:"id"`
	BetID        int64      `db:"bet_id"`
	ResolverID   int64      `db:"resolver_id"`
	ChosenOption *int       `db:"chosen_option"`
	WinnerIDs    []int64    `db:"-"` // Stored as vote_winners rows
	Reasoning    *string    `db:"reasoning"`
	CastAt       time.Time  `db:"cast_at"`
	RevokedAt    *time.Time `db:"revoked_at"`
	IsActive     bool       `db:"is_active"`
}

// VoteWinner is a participant named as a winner by a prediction vote
type VoteWinner struct {
	VoteID       int64 `db:"vote_id"`
	WinnerUserID int64 `db:"winner_user_id"`
}

// NamesWinner reports whether the vote named the user as a winner
func (v *ResolutionVote) NamesWinner(userID int64) bool {
	for _, id := range v.WinnerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Winners expands the vote into its VoteWinner rows
func (v *ResolutionVote) Winners() []VoteWinner {
	rows := make([]VoteWinner, 0, len(v.WinnerIDs))
	for _, id := range v.WinnerIDs {
		rows = append(rows, VoteWinner{VoteID: v.ID, WinnerUserID: id})
	}
	return rows
}
