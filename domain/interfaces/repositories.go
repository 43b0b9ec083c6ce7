package interfaces

import (
	"context"
	"time"

	"socialbets/domain/entities"
	"socialbets/domain/events"
)

// BetRepository persists bets and their status transitions
type BetRepository interface {
	// Create inserts a bet together with its assigned resolvers
	Create(ctx context.Context, bet *entities.Bet, assignedResolvers []int64) error

	// GetByID returns nil, nil when the bet does not exist
	GetByID(ctx context.Context, id int64) (*entities.Bet, error)

	// GetByIDForUpdate locks the bet row for the rest of the transaction
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Bet, error)

	// TransitionStatus writes the bet's new status, outcome and timestamps only
	// if the stored status still equals from. It returns false when another
	// writer got there first.
	TransitionStatus(ctx context.Context, bet *entities.Bet, from entities.BetStatus) (bool, error)

	// ListOpenPastDeadline returns IDs of open bets whose betting deadline passed
	ListOpenPastDeadline(ctx context.Context, now time.Time, limit int) ([]int64, error)

	// ListClosedPastResolveDate returns IDs of closed bets whose resolve date passed
	ListClosedPastResolveDate(ctx context.Context, now time.Time, limit int) ([]int64, error)

	// ListWithUnsettledParticipations returns IDs of resolved or cancelled bets
	// that still have participations waiting for settlement
	ListWithUnsettledParticipations(ctx context.Context, limit int) ([]int64, error)

	// MarkReconcileAttempted moves the bet to the back of the reconcile queue
	MarkReconcileAttempted(ctx context.Context, betID int64, at time.Time) error
}

// ParticipationRepository persists bet participations
type ParticipationRepository interface {
	Create(ctx context.Context, participation *entities.BetParticipation) error
	ListByBet(ctx context.Context, betID int64) ([]*entities.BetParticipation, error)
	GetByBetAndUser(ctx context.Context, betID, userID int64) (*entities.BetParticipation, error)

	// Settle stores the settled state; it returns false if the row was already settled
	Settle(ctx context.Context, participation *entities.BetParticipation) (bool, error)

	// ListLoserIDs returns the users whose participation settled as lost
	ListLoserIDs(ctx context.Context, betID int64) ([]int64, error)
}

// VoteRepository persists resolution votes as an append-only log
type VoteRepository interface {
	// Create inserts an active vote and its winner rows
	Create(ctx context.Context, vote *entities.ResolutionVote) error

	// RevokeActive deactivates the resolver's current vote; false if none existed
	RevokeActive(ctx context.Context, betID, resolverID int64, at time.Time) (bool, error)

	// GetActiveByBet returns active votes with their winner selections
	GetActiveByBet(ctx context.Context, betID int64) ([]*entities.ResolutionVote, error)

	// ListByBet returns every vote including revoked ones, oldest first
	ListByBet(ctx context.Context, betID int64) ([]*entities.ResolutionVote, error)
}

// FulfillmentClaimRepository persists loser fulfillment claims
type FulfillmentClaimRepository interface {
	// Create inserts the claim; false when the loser already claimed this bet
	Create(ctx context.Context, claim *entities.LoserFulfillmentClaim) (bool, error)
	ListByBet(ctx context.Context, betID int64) ([]*entities.LoserFulfillmentClaim, error)
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher holds events until the surrounding transaction commits
type TransactionalEventPublisher interface {
	EventPublisher
	Flush(ctx context.Context) error
	Discard()
}
