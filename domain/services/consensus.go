package services

import (
	"slices"

	"socialbets/domain/entities"
	"socialbets/domain/interfaces"
)

// ConsensusInput is everything needed to evaluate the votes on a bet
type ConsensusInput struct {
	Bet            *entities.Bet
	Participations []*entities.BetParticipation
	Eligible       []int64
	Votes          []*entities.ResolutionVote
	DeadlinePassed bool
}

// EvaluateConsensus tallies the active votes of eligible resolvers and decides
// whether resolution is complete.
//
// Completion requires at least one vote and either every eligible resolver
// (or MinimumVotesRequired of them, when lower) having voted, or the resolve
// date having passed.
func EvaluateConsensus(in ConsensusInput) *interfaces.ConsensusEvaluation {
	votes := votesFromEligible(in.Votes, in.Eligible)

	eval := &interfaces.ConsensusEvaluation{
		BetID:          in.Bet.ID,
		Eligible:       len(in.Eligible),
		Threshold:      votingThreshold(in.Bet, len(in.Eligible)),
		VotesCast:      len(votes),
		DeadlinePassed: in.DeadlinePassed,
	}

	if in.Bet.UsesChoiceVotes() {
		eval.OptionTally = TallyOptions(votes)
		eval.Outcome = DecideSingleChoice(eval.OptionTally)
	} else {
		eval.WinnerTally = TallyNamedWinners(votes)
		eval.Outcome = DecideNamedWinners(eval.WinnerTally, len(votes), in.Participations)
	}

	switch {
	case eval.VotesCast == 0:
		eval.Outcome = nil
		eval.NeedsIntervention = in.DeadlinePassed
	case eval.VotesCast >= eval.Threshold:
		eval.Complete = true
	case in.DeadlinePassed:
		eval.Complete = true
	}

	describeOutcome(eval)
	return eval
}

// describeOutcome copies the outcome variant into the serialized fields
func describeOutcome(eval *interfaces.ConsensusEvaluation) {
	if eval.Outcome == nil {
		return
	}
	eval.OutcomeKind = eval.Outcome.Kind()
	switch o := eval.Outcome.(type) {
	case entities.SingleChoice:
		option := o.Option
		eval.OutcomeOption = &option
	case entities.NamedWinners:
		eval.OutcomeWinners = o.Winners
		eval.OutcomeTied = o.Tied
	}
}

// votingThreshold is the number of votes that completes resolution before the deadline
func votingThreshold(bet *entities.Bet, eligible int) int {
	if bet.MinimumVotesRequired > 0 && bet.MinimumVotesRequired < eligible {
		return bet.MinimumVotesRequired
	}
	return eligible
}

// votesFromEligible drops votes of users who are no longer eligible resolvers
func votesFromEligible(votes []*entities.ResolutionVote, eligible []int64) []*entities.ResolutionVote {
	out := make([]*entities.ResolutionVote, 0, len(votes))
	for _, v := range votes {
		if v.IsActive && slices.Contains(eligible, v.ResolverID) {
			out = append(out, v)
		}
	}
	return out
}

// TallyOptions counts votes per chosen option
func TallyOptions(votes []*entities.ResolutionVote) map[int]int {
	tally := make(map[int]int)
	for _, v := range votes {
		if v.ChosenOption != nil {
			tally[*v.ChosenOption]++
		}
	}
	return tally
}

// DecideSingleChoice picks the option with the most votes. A tie for the top
// spot is a draw. Returns nil when there are no votes.
func DecideSingleChoice(tally map[int]int) entities.Outcome {
	best, bestCount, tied := 0, 0, false
	for option, count := range tally {
		switch {
		case count > bestCount:
			best, bestCount, tied = option, count, false
		case count == bestCount:
			tied = true
		}
	}

	if bestCount == 0 {
		return nil
	}
	if tied {
		return entities.Draw{}
	}
	return entities.SingleChoice{Option: best}
}

// TallyNamedWinners counts how many votes named each participant
func TallyNamedWinners(votes []*entities.ResolutionVote) map[int64]int {
	tally := make(map[int64]int)
	for _, v := range votes {
		seen := make(map[int64]bool, len(v.WinnerIDs))
		for _, id := range v.WinnerIDs {
			if !seen[id] {
				seen[id] = true
				tally[id]++
			}
		}
	}
	return tally
}

// DecideNamedWinners applies the per-participant majority rule of prediction
// bets: named by more than half the votes wins, exactly half is a draw.
func DecideNamedWinners(tally map[int64]int, votesCast int, participations []*entities.BetParticipation) entities.Outcome {
	if votesCast == 0 {
		return nil
	}

	outcome := entities.NamedWinners{}
	for _, p := range participations {
		if !p.IsStaked() {
			continue
		}
		named := tally[p.UserID] * 2
		switch {
		case named > votesCast:
			outcome.Winners = append(outcome.Winners, p.UserID)
		case named == votesCast:
			outcome.Tied = append(outcome.Tied, p.UserID)
		}
	}

	slices.Sort(outcome.Winners)
	slices.Sort(outcome.Tied)
	return outcome
}
