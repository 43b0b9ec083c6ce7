package services

import (
	"context"
	"fmt"
	"time"

	"socialbets/domain/entities"
	"socialbets/domain/events"
	"socialbets/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// betTransitions performs the guarded status changes shared by the resolution,
// lifecycle and reconciliation services. Callers must hold the bet row lock.
type betTransitions struct {
	betRepo        interfaces.BetRepository
	settlement     interfaces.SettlementService
	eventPublisher interfaces.EventPublisher
}

// closeExpired moves an open bet past its betting deadline to closed.
// It returns false when the bet was not due or another writer closed it.
func (t *betTransitions) closeExpired(ctx context.Context, bet *entities.Bet, now time.Time) (bool, error) {
	if !bet.BettingWindowExpired(now) {
		return false, nil
	}

	if err := bet.Close(); err != nil {
		return false, err
	}

	ok, err := t.betRepo.TransitionStatus(ctx, bet, entities.BetStatusOpen)
	if err != nil {
		return false, fmt.Errorf("failed to close bet: %w", err)
	}
	if !ok {
		return false, nil
	}

	t.publishStatusChange(bet, entities.BetStatusOpen, now)
	log.WithField("bet_id", bet.ID).Info("Bet closed after betting deadline")
	return true, nil
}

// resolve records the outcome on a closed bet and settles it. It returns
// nil, false when the compare-and-set lost to a concurrent resolution.
func (t *betTransitions) resolve(ctx context.Context, bet *entities.Bet, outcome entities.Outcome, forced bool, now time.Time) (*interfaces.SettlementReport, bool, error) {
	if err := bet.Resolve(outcome, now); err != nil {
		return nil, false, err
	}

	ok, err := t.betRepo.TransitionStatus(ctx, bet, entities.BetStatusClosed)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve bet: %w", err)
	}
	if !ok {
		log.WithField("bet_id", bet.ID).Warn("Bet already transitioned by another writer, skipping resolution")
		return nil, false, nil
	}

	t.publishStatusChange(bet, entities.BetStatusClosed, now)
	t.publishResolved(bet, forced, now)

	report, err := t.settlement.Settle(ctx, bet)
	if err != nil {
		return nil, false, fmt.Errorf("failed to settle bet: %w", err)
	}
	return report, true, nil
}

// cancel moves an open or closed bet to cancelled and refunds it. actorID is
// nil when the system cancels.
func (t *betTransitions) cancel(ctx context.Context, bet *entities.Bet, actorID *int64, reason string, now time.Time) (*interfaces.SettlementReport, error) {
	from := bet.Status
	if err := bet.Cancel(reason, now); err != nil {
		return nil, err
	}

	ok, err := t.betRepo.TransitionStatus(ctx, bet, from)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel bet: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("bet %d changed status concurrently: %w", bet.ID, entities.ErrBetNotCancellable)
	}

	t.publishStatusChange(bet, from, now)
	if err := t.eventPublisher.Publish(events.BetCancelledEvent{
		BetID:       bet.ID,
		GroupID:     bet.GroupID,
		CancelledBy: actorID,
		Reason:      reason,
		CancelledAt: now,
	}); err != nil {
		log.WithError(err).Error("Failed to publish bet cancelled event")
	}

	report, err := t.settlement.Cancel(ctx, bet)
	if err != nil {
		return nil, fmt.Errorf("failed to refund bet: %w", err)
	}
	return report, nil
}

func (t *betTransitions) publishStatusChange(bet *entities.Bet, from entities.BetStatus, now time.Time) {
	if err := t.eventPublisher.Publish(events.BetStatusChangedEvent{
		BetID:     bet.ID,
		GroupID:   bet.GroupID,
		OldStatus: string(from),
		NewStatus: string(bet.Status),
		ChangedAt: now,
	}); err != nil {
		log.WithError(err).Error("Failed to publish bet status changed event")
	}
}

func (t *betTransitions) publishResolved(bet *entities.Bet, forced bool, now time.Time) {
	event := events.BetResolvedEvent{
		BetID:       bet.ID,
		GroupID:     bet.GroupID,
		StakeType:   string(bet.StakeType),
		OutcomeKind: string(bet.Outcome.Kind()),
		Forced:      forced,
		ResolvedAt:  now,
	}
	switch o := bet.Outcome.(type) {
	case entities.SingleChoice:
		option := o.Option
		event.Option = &option
	case entities.NamedWinners:
		event.WinnerIDs = o.Winners
		event.TiedIDs = o.Tied
	}

	if err := t.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish bet resolved event")
	}
}
