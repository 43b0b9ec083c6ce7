package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType identifies a domain event
type EventType string

const (
	EventTypeBetStatusChanged            EventType = "bet.status_changed"
	EventTypeVoteCast                    EventType = "bet.vote_cast"
	EventTypeBetResolved                 EventType = "bet.resolved"
	EventTypeBetCancelled                EventType = "bet.cancelled"
	EventTypeParticipationSettled        EventType = "bet.participation_settled"
	EventTypeFulfillmentClaimed          EventType = "bet.fulfillment_claimed"
	EventTypeResolutionNeedsIntervention EventType = "bet.resolution_needs_intervention"
)

// Event is implemented by every domain event
type Event interface {
	Type() EventType
}

// BetStatusChangedEvent is emitted on every bet status transition
type BetStatusChangedEvent struct {
	BetID     int64     `json:"bet_id"`
	GroupID   int64     `json:"group_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}

func (e BetStatusChangedEvent) Type() EventType { return EventTypeBetStatusChanged }

// VoteCastEvent is emitted when a resolver casts or replaces a vote
type VoteCastEvent struct {
	BetID        int64   `json:"bet_id"`
	GroupID      int64   `json:"group_id"`
	ResolverID   int64   `json:"resolver_id"`
	VoteID       int64   `json:"vote_id"`
	ChosenOption *int    `json:"chosen_option,omitempty"`
	WinnerIDs    []int64 `json:"winner_ids,omitempty"`
	Replaced     bool    `json:"replaced"`
	VotesCast    int     `json:"votes_cast"`
	Eligible     int     `json:"eligible"`
}

func (e VoteCastEvent) Type() EventType { return EventTypeVoteCast }

// BetResolvedEvent is emitted once when a bet transitions to resolved
type BetResolvedEvent struct {
	BetID       int64     `json:"bet_id"`
	GroupID     int64     `json:"group_id"`
	StakeType   string    `json:"stake_type"`
	OutcomeKind string    `json:"outcome_kind"`
	Option      *int      `json:"option,omitempty"`
	WinnerIDs   []int64   `json:"winner_ids,omitempty"`
	TiedIDs     []int64   `json:"tied_ids,omitempty"`
	Forced      bool      `json:"forced"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

func (e BetResolvedEvent) Type() EventType { return EventTypeBetResolved }

// BetCancelledEvent is emitted once when a bet is cancelled
type BetCancelledEvent struct {
	BetID       int64     `json:"bet_id"`
	GroupID     int64     `json:"group_id"`
	CancelledBy *int64    `json:"cancelled_by,omitempty"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

func (e BetCancelledEvent) Type() EventType { return EventTypeBetCancelled }

// ParticipationSettledEvent is emitted per participation after settlement
type ParticipationSettledEvent struct {
	BetID           int64           `json:"bet_id"`
	ParticipationID int64           `json:"participation_id"`
	UserID          int64           `json:"user_id"`
	Status          string          `json:"status"`
	Result          string          `json:"result"`
	ActualWinnings  decimal.Decimal `json:"actual_winnings"`
}

func (e ParticipationSettledEvent) Type() EventType { return EventTypeParticipationSettled }

// FulfillmentClaimedEvent is emitted when a loser claims to have paid a social stake
type FulfillmentClaimedEvent struct {
	BetID   int64  `json:"bet_id"`
	GroupID int64  `json:"group_id"`
	LoserID int64  `json:"loser_id"`
	ClaimID int64  `json:"claim_id"`
	Status  string `json:"status"`
	Claimed int    `json:"claimed"`
	Total   int    `json:"total"`
}

func (e FulfillmentClaimedEvent) Type() EventType { return EventTypeFulfillmentClaimed }

// ResolutionNeedsInterventionEvent is emitted when a bet passes its resolve
// date without votes and is left open for an operator
type ResolutionNeedsInterventionEvent struct {
	BetID       int64     `json:"bet_id"`
	GroupID     int64     `json:"group_id"`
	CreatorID   int64     `json:"creator_id"`
	ResolveDate time.Time `json:"resolve_date"`
}

func (e ResolutionNeedsInterventionEvent) Type() EventType {
	return EventTypeResolutionNeedsIntervention
}
