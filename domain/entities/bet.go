package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// BetStatus represents the lifecycle state of a bet
type BetStatus string

const (
	BetStatusOpen      BetStatus = "open"
	BetStatusClosed    BetStatus = "closed"
	BetStatusResolved  BetStatus = "resolved"
	BetStatusCancelled BetStatus = "cancelled"
)

// BetType represents how participants pick an outcome
type BetType string

const (
	BetTypeBinary         BetType = "binary"
	BetTypeMultipleChoice BetType = "multiple_choice"
	BetTypePrediction     BetType = "prediction"
)

// StakeType represents what a participant puts at risk
type StakeType string

const (
	StakeTypeCredit StakeType = "credit"
	StakeTypeSocial StakeType = "social"
)

// ResolutionMethod represents who decides the outcome of a bet
type ResolutionMethod string

const (
	ResolutionMethodCreatorOnly       ResolutionMethod = "creator_only"
	ResolutionMethodAssignedResolvers ResolutionMethod = "assigned_resolvers"
	ResolutionMethodConsensusVoting   ResolutionMethod = "consensus_voting"
)

// Aliases used by older clients
const (
	ResolutionMethodSelf            = ResolutionMethodCreatorOnly
	ResolutionMethodParticipantVote = ResolutionMethodConsensusVoting
)

// MaxBetOptions is the largest number of options a multiple choice bet may offer
const MaxBetOptions = 4

// binaryOptions are the implicit options of a binary bet
var binaryOptions = []string{"Yes", "No"}

// Bet is a single wager inside a group
type Bet struct {
	ID          int64  `db:"id"`
	GroupID     int64  `db:"group_id"`
	CreatorID   int64  `db:"creator_id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Category    string `db:"category"`

	BetType   BetType   `db:"bet_type"`
	StakeType StakeType `db:"stake_type"`

	FixedStakeAmount       decimal.NullDecimal `db:"fixed_stake_amount"`
	MinStakeAmount         decimal.NullDecimal `db:"min_stake_amount"`
	MaxStakeAmount         decimal.NullDecimal `db:"max_stake_amount"`
	SocialStakeDescription *string             `db:"social_stake_description"`

	ResolutionMethod     ResolutionMethod `db:"resolution_method"`
	MinimumVotesRequired int              `db:"minimum_votes_required"`
	AllowCreatorVote     bool             `db:"allow_creator_vote"`

	BettingDeadline time.Time `db:"betting_deadline"`
	ResolveDate     time.Time `db:"resolve_date"`
	Options         []string  `db:"options"`

	Status             BetStatus `db:"status"`
	Outcome            Outcome   `db:"-"` // Persisted across the outcome_* columns
	CancellationReason *string   `db:"cancellation_reason"`
	Version            int64     `db:"version"`

	ResolvedAt  *time.Time `db:"resolved_at"`
	CancelledAt *time.Time `db:"cancelled_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// IsOpen checks if the bet still accepts participants
func (b *Bet) IsOpen() bool {
	return b.Status == BetStatusOpen
}

// IsClosed checks if the bet is waiting for resolution
func (b *Bet) IsClosed() bool {
	return b.Status == BetStatusClosed
}

// IsResolved checks if the bet has a declared outcome
func (b *Bet) IsResolved() bool {
	return b.Status == BetStatusResolved
}

// IsCancelled checks if the bet was cancelled
func (b *Bet) IsCancelled() bool {
	return b.Status == BetStatusCancelled
}

// IsTerminal reports whether no further transition is possible
func (b *Bet) IsTerminal() bool {
	return b.IsResolved() || b.IsCancelled()
}

// CanBeCancelled reports whether the bet may still be cancelled
func (b *Bet) CanBeCancelled() bool {
	return b.IsOpen() || b.IsClosed()
}

// CanAcceptParticipants checks if new participations are allowed at the given time
func (b *Bet) CanAcceptParticipants(now time.Time) bool {
	return b.IsOpen() && now.Before(b.BettingDeadline)
}

// BettingWindowExpired reports an open bet whose betting deadline has passed
func (b *Bet) BettingWindowExpired(now time.Time) bool {
	return b.IsOpen() && !now.Before(b.BettingDeadline)
}

// ResolveDeadlinePassed reports whether the resolve date has been reached
func (b *Bet) ResolveDeadlinePassed(now time.Time) bool {
	return !now.Before(b.ResolveDate)
}

// IsCreditBet reports whether stakes are credits
func (b *Bet) IsCreditBet() bool {
	return b.StakeType == StakeTypeCredit
}

// IsSocialBet reports whether stakes are social obligations
func (b *Bet) IsSocialBet() bool {
	return b.StakeType == StakeTypeSocial
}

// UsesChoiceVotes reports whether resolvers vote for an option index
func (b *Bet) UsesChoiceVotes() bool {
	return b.BetType == BetTypeBinary || b.BetType == BetTypeMultipleChoice
}

// OptionLabels returns the options a resolver can vote for
func (b *Bet) OptionLabels() []string {
	if b.BetType == BetTypeBinary {
		return binaryOptions
	}
	return b.Options
}

// OptionCount returns the number of selectable options
func (b *Bet) OptionCount() int {
	if b.BetType == BetTypePrediction {
		return 0
	}
	return len(b.OptionLabels())
}

// IsValidOption checks if the 1-based option index exists on this bet
func (b *Bet) IsValidOption(option int) bool {
	return option >= 1 && option <= b.OptionCount()
}

// Close moves an open bet to closed
func (b *Bet) Close() error {
	if !b.IsOpen() {
		return ErrBetNotOpen
	}
	b.Status = BetStatusClosed
	return nil
}

// Resolve records the outcome and moves a closed bet to resolved
func (b *Bet) Resolve(outcome Outcome, at time.Time) error {
	if !b.IsClosed() {
		return ErrBetNotInResolvablePhase
	}
	if outcome == nil {
		return ErrInvalidOutcome
	}
	if _, ok := outcome.(Cancelled); ok {
		return ErrInvalidOutcome
	}
	b.Status = BetStatusResolved
	b.Outcome = outcome
	b.ResolvedAt = &at
	return nil
}

// Cancel records the cancellation reason and moves the bet to cancelled
func (b *Bet) Cancel(reason string, at time.Time) error {
	if !b.CanBeCancelled() {
		return ErrBetNotCancellable
	}
	b.Status = BetStatusCancelled
	b.Outcome = Cancelled{Reason: reason}
	b.CancellationReason = &reason
	b.CancelledAt = &at
	return nil
}
