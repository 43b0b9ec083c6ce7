package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBet_OptionValidation(t *testing.T) {
	tests := []struct {
		name     string
		bet      *Bet
		option   int
		expected bool
	}{
		{"binary yes", &Bet{BetType: BetTypeBinary}, 1, true},
		{"binary no", &Bet{BetType: BetTypeBinary}, 2, true},
		{"binary third option", &Bet{BetType: BetTypeBinary}, 3, false},
		{"multiple choice last option", &Bet{BetType: BetTypeMultipleChoice, Options: []string{"a", "b", "c"}}, 3, true},
		{"multiple choice beyond options", &Bet{BetType: BetTypeMultipleChoice, Options: []string{"a", "b", "c"}}, 4, false},
		{"zero is never valid", &Bet{BetType: BetTypeMultipleChoice, Options: []string{"a", "b"}}, 0, false},
		{"prediction has no options", &Bet{BetType: BetTypePrediction, Options: []string{"a"}}, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.bet.IsValidOption(tt.option))
		})
	}
}

func TestBet_Deadlines(t *testing.T) {
	now := time.Now()
	bet := &Bet{
		Status:          BetStatusOpen,
		BettingDeadline: now.Add(time.Hour),
		ResolveDate:     now.Add(2 * time.Hour),
	}

	assert.True(t, bet.CanAcceptParticipants(now))
	assert.False(t, bet.BettingWindowExpired(now))
	assert.False(t, bet.ResolveDeadlinePassed(now))

	later := now.Add(90 * time.Minute)
	assert.False(t, bet.CanAcceptParticipants(later))
	assert.True(t, bet.BettingWindowExpired(later))
	assert.True(t, bet.ResolveDeadlinePassed(now.Add(2*time.Hour)))
}

func TestBet_Transitions(t *testing.T) {
	now := time.Now()

	t.Run("open to closed to resolved", func(t *testing.T) {
		bet := &Bet{Status: BetStatusOpen}
		require.NoError(t, bet.Close())
		require.NoError(t, bet.Resolve(SingleChoice{Option: 1}, now))

		assert.Equal(t, BetStatusResolved, bet.Status)
		assert.Equal(t, SingleChoice{Option: 1}, bet.Outcome)
		require.NotNil(t, bet.ResolvedAt)
	})

	t.Run("cannot resolve an open bet", func(t *testing.T) {
		bet := &Bet{Status: BetStatusOpen}
		assert.ErrorIs(t, bet.Resolve(Draw{}, now), ErrBetNotInResolvablePhase)
	})

	t.Run("resolve rejects a cancellation outcome", func(t *testing.T) {
		bet := &Bet{Status: BetStatusClosed}
		assert.ErrorIs(t, bet.Resolve(Cancelled{Reason: "x"}, now), ErrInvalidOutcome)
		assert.Equal(t, BetStatusClosed, bet.Status)
	})

	t.Run("cancel from closed stores reason", func(t *testing.T) {
		bet := &Bet{Status: BetStatusClosed}
		require.NoError(t, bet.Cancel("rained out", now))

		assert.Equal(t, BetStatusCancelled, bet.Status)
		assert.Equal(t, Cancelled{Reason: "rained out"}, bet.Outcome)
		require.NotNil(t, bet.CancellationReason)
		assert.Equal(t, "rained out", *bet.CancellationReason)
	})

	t.Run("resolved bet cannot be cancelled", func(t *testing.T) {
		bet := &Bet{Status: BetStatusResolved}
		assert.ErrorIs(t, bet.Cancel("late", now), ErrBetNotCancellable)
		assert.True(t, bet.IsTerminal())
	})
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindAuthorization, KindOf(ErrNotAuthorizedToResolve))
	assert.Equal(t, KindValidation, KindOf(ErrInvalidVotePayload))
	assert.Equal(t, KindStateConflict, KindOf(ErrAlreadyClaimed))
	assert.Equal(t, KindNotFound, KindOf(ErrBetNotFound))
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
	assert.Equal(t, "not_a_loser", CodeOf(ErrNotALoser))
}
