package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestClassifyParticipation(t *testing.T) {
	picker := func(option int) *BetParticipation {
		return &BetParticipation{UserID: 1, ChosenOption: intPtr(option), Status: ParticipationStatusActive}
	}
	predictor := func(userID int64) *BetParticipation {
		return &BetParticipation{UserID: userID, Status: ParticipationStatusActive}
	}

	tests := []struct {
		name     string
		outcome  Outcome
		p        *BetParticipation
		expected ParticipationResult
	}{
		{"matching option wins", SingleChoice{Option: 2}, picker(2), ResultWin},
		{"other option loses", SingleChoice{Option: 2}, picker(1), ResultLoss},
		{"draw", Draw{}, picker(1), ResultDraw},
		{"cancelled refunds", Cancelled{Reason: "x"}, picker(1), ResultRefund},
		{"named winner wins", NamedWinners{Winners: []int64{5}}, predictor(5), ResultWin},
		{"tied participant draws", NamedWinners{Winners: []int64{5}, Tied: []int64{6}}, predictor(6), ResultDraw},
		{"unnamed participant loses", NamedWinners{Winners: []int64{5}}, predictor(7), ResultLoss},
		{"creator marker is not staked", SingleChoice{Option: 1}, &BetParticipation{ChosenOption: intPtr(1), Status: ParticipationStatusCreator}, ResultNone},
		{"withdrawn participation is not staked", Draw{}, &BetParticipation{Status: ParticipationStatusCancelled}, ResultNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyParticipation(tt.outcome, tt.p))
		})
	}
}

func TestOutcomeKinds(t *testing.T) {
	assert.Equal(t, OutcomeKindSingleChoice, SingleChoice{Option: 1}.Kind())
	assert.Equal(t, OutcomeKindDraw, Draw{}.Kind())
	assert.Equal(t, OutcomeKindCancelled, Cancelled{}.Kind())
	assert.Equal(t, OutcomeKindNamedWinners, NamedWinners{}.Kind())
}
