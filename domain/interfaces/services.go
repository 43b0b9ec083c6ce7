package interfaces

import (
	"context"

	"socialbets/domain/entities"
)

// ZeroVotePolicy decides what happens to a bet that reaches its resolve date without votes
type ZeroVotePolicy string

const (
	ZeroVotePolicyCancel ZeroVotePolicy = "cancel"
	ZeroVotePolicyHold   ZeroVotePolicy = "hold"
)

// SubmitVoteRequest is a resolver's ballot. Option is used by binary and
// multiple choice bets, WinnerIDs by prediction bets.
type SubmitVoteRequest struct {
	BetID      int64   `json:"bet_id" validate:"required,gt=0"`
	ResolverID int64   `json:"resolver_id" validate:"required,gt=0"`
	Option     *int    `json:"option,omitempty" validate:"omitempty,min=1,max=4"`
	WinnerIDs  []int64 `json:"winner_ids,omitempty" validate:"omitempty,max=64,dive,gt=0"`
	Reasoning  *string `json:"reasoning,omitempty" validate:"omitempty,max=1000"`
}

// ConsensusEvaluation is the tally of the active votes on a bet
type ConsensusEvaluation struct {
	BetID     int64 `json:"bet_id"`
	Eligible  int   `json:"eligible"`
	Threshold int   `json:"threshold"`
	VotesCast int   `json:"votes_cast"`

	// OptionTally counts votes per option for binary and multiple choice bets
	OptionTally map[int]int `json:"option_tally,omitempty"`
	// WinnerTally counts how many votes named each participant in prediction bets
	WinnerTally map[int64]int `json:"winner_tally,omitempty"`

	DeadlinePassed bool `json:"deadline_passed"`
	Complete       bool `json:"complete"`
	// NeedsIntervention is set when the deadline passed without any vote
	NeedsIntervention bool `json:"needs_intervention"`

	// Outcome is the outcome the votes point to, provisional until Complete
	Outcome entities.Outcome `json:"-"`
	// OutcomeKind and the fields after it describe Outcome on the wire
	OutcomeKind    entities.OutcomeKind `json:"outcome_kind,omitempty"`
	OutcomeOption  *int                 `json:"outcome_option,omitempty"`
	OutcomeWinners []int64              `json:"outcome_winners,omitempty"`
	OutcomeTied    []int64              `json:"outcome_tied,omitempty"`
}

// SettlementReport summarizes a settlement or cancellation pass
type SettlementReport struct {
	BetID   int64 `json:"bet_id"`
	Settled int   `json:"settled"`
	Skipped int   `json:"skipped"`
	Failed  int   `json:"failed"`
}

// VoteResult is returned by SubmitVote
type VoteResult struct {
	Vote       *entities.ResolutionVote `json:"vote"`
	Replaced   bool                     `json:"replaced"`
	Evaluation *ConsensusEvaluation     `json:"evaluation"`
	Resolved   bool                     `json:"resolved"`
	Settlement *SettlementReport        `json:"settlement,omitempty"`
}

// ResolutionResult is returned by forced resolution
type ResolutionResult struct {
	BetID             int64                `json:"bet_id"`
	Resolved          bool                 `json:"resolved"`
	Cancelled         bool                 `json:"cancelled"`
	NeedsIntervention bool                 `json:"needs_intervention"`
	Evaluation        *ConsensusEvaluation `json:"evaluation"`
	Settlement        *SettlementReport    `json:"settlement,omitempty"`
}

// ClaimRequest is a loser's fulfillment claim
type ClaimRequest struct {
	BetID            int64   `json:"bet_id" validate:"required,gt=0"`
	LoserID          int64   `json:"loser_id" validate:"required,gt=0"`
	ProofURL         *string `json:"proof_url,omitempty" validate:"omitempty,url,max=2048"`
	ProofDescription *string `json:"proof_description,omitempty" validate:"omitempty,max=2000"`
}

// ResolutionService runs consensus voting and resolution
type ResolutionService interface {
	SubmitVote(ctx context.Context, req SubmitVoteRequest) (*VoteResult, error)
	ForceResolveIfDeadlinePassed(ctx context.Context, betID int64) (*ResolutionResult, error)
	GetVoteTally(ctx context.Context, betID int64) (*ConsensusEvaluation, error)
	GetVoteHistory(ctx context.Context, betID int64) ([]*entities.ResolutionVote, error)
}

// SettlementService pays out resolved bets and refunds cancelled ones
type SettlementService interface {
	Settle(ctx context.Context, bet *entities.Bet) (*SettlementReport, error)
	Cancel(ctx context.Context, bet *entities.Bet) (*SettlementReport, error)
}

// FulfillmentService tracks social stake obligations
type FulfillmentService interface {
	ClaimFulfilled(ctx context.Context, req ClaimRequest) (*entities.LoserFulfillmentClaim, error)
	GetFulfillmentStatus(ctx context.Context, betID int64) (*entities.FulfillmentSummary, error)
}

// BetLifecycleService handles closing and cancelling bets
type BetLifecycleService interface {
	CloseIfExpired(ctx context.Context, betID int64) (bool, error)
	CancelBet(ctx context.Context, betID, actorID int64, reason string) (*SettlementReport, error)
}

// ReconciliationService retries participations a previous settlement could not finish
type ReconciliationService interface {
	ReconcileBet(ctx context.Context, betID int64) (*SettlementReport, error)
}
