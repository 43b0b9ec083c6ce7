package entities

import (
	"fmt"
	"slices"
)

// OutcomeKind identifies the variant of an Outcome
type OutcomeKind string

const (
	OutcomeKindSingleChoice OutcomeKind = "single_choice"
	OutcomeKindDraw         OutcomeKind = "draw"
	OutcomeKindCancelled    OutcomeKind = "cancelled"
	OutcomeKindNamedWinners OutcomeKind = "named_winners"
)

// Outcome is the declared result of a bet. Implementations are SingleChoice,
// Draw, Cancelled and NamedWinners.
type Outcome interface {
	Kind() OutcomeKind
	String() string
	isOutcome()
}

// SingleChoice declares one option (1-based) the winner
type SingleChoice struct {
	Option int
}

// Draw declares no winner; every stake is returned
type Draw struct{}

// Cancelled records that the bet was called off
type Cancelled struct {
	Reason string
}

// NamedWinners is the result of a prediction bet. Tied holds participants
// named by exactly half of the votes.
type NamedWinners struct {
	Winners []int64
	Tied    []int64
}

func (SingleChoice) Kind() OutcomeKind { return OutcomeKindSingleChoice }
func (Draw) Kind() OutcomeKind         { return OutcomeKindDraw }
func (Cancelled) Kind() OutcomeKind    { return OutcomeKindCancelled }
func (NamedWinners) Kind() OutcomeKind { return OutcomeKindNamedWinners }

func (o SingleChoice) String() string { return fmt.Sprintf("option %d", o.Option) }
func (Draw) String() string           { return "draw" }
func (o Cancelled) String() string    { return "cancelled: " + o.Reason }
func (o NamedWinners) String() string {
	return fmt.Sprintf("winners %v tied %v", o.Winners, o.Tied)
}

func (SingleChoice) isOutcome() {}
func (Draw) isOutcome()         {}
func (Cancelled) isOutcome()    {}
func (NamedWinners) isOutcome() {}

// HasWinner reports whether the prediction named the user a winner
func (o NamedWinners) HasWinner(userID int64) bool {
	return slices.Contains(o.Winners, userID)
}

// IsTied reports whether the user was named by exactly half of the votes
func (o NamedWinners) IsTied(userID int64) bool {
	return slices.Contains(o.Tied, userID)
}

// ParticipationResult is how a single participation fares under an outcome
type ParticipationResult string

const (
	ResultNone   ParticipationResult = ""
	ResultWin    ParticipationResult = "win"
	ResultLoss   ParticipationResult = "loss"
	ResultDraw   ParticipationResult = "draw"
	ResultRefund ParticipationResult = "refund"
)

// ClassifyParticipation is the single matching rule between an outcome and a
// participation's choice. Participations without a stake return ResultNone.
func ClassifyParticipation(outcome Outcome, p *BetParticipation) ParticipationResult {
	if !p.IsStaked() {
		return ResultNone
	}

	switch o := outcome.(type) {
	case SingleChoice:
		if p.ChosenOption != nil && *p.ChosenOption == o.Option {
			return ResultWin
		}
		return ResultLoss
	case Draw:
		return ResultDraw
	case Cancelled:
		return ResultRefund
	case NamedWinners:
		switch {
		case o.HasWinner(p.UserID):
			return ResultWin
		case o.IsTied(p.UserID):
			return ResultDraw
		default:
			return ResultLoss
		}
	default:
		return ResultNone
	}
}
