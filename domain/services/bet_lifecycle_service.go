package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"socialbets/domain/entities"
	"socialbets/domain/interfaces"
)

// DefaultCancellationReason is recorded when the creator gives no reason
const DefaultCancellationReason = "cancelled by creator"

type betLifecycleService struct {
	betRepo     interfaces.BetRepository
	transitions *betTransitions
	now         func() time.Time
}

// NewBetLifecycleService creates a new bet lifecycle service
func NewBetLifecycleService(
	betRepo interfaces.BetRepository,
	settlement interfaces.SettlementService,
	eventPublisher interfaces.EventPublisher,
) interfaces.BetLifecycleService {
	return &betLifecycleService{
		betRepo: betRepo,
		transitions: &betTransitions{
			betRepo:        betRepo,
			settlement:     settlement,
			eventPublisher: eventPublisher,
		},
		now: time.Now,
	}
}

// CloseIfExpired closes the bet if its betting deadline has passed
func (s *betLifecycleService) CloseIfExpired(ctx context.Context, betID int64) (bool, error) {
	bet, err := s.betRepo.GetByIDForUpdate(ctx, betID)
	if err != nil {
		return false, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return false, entities.ErrBetNotFound
	}

	return s.transitions.closeExpired(ctx, bet, s.now())
}

// CancelBet lets the creator call off an open or closed bet. Every stake is
// refunded and consumed insurance items are returned.
func (s *betLifecycleService) CancelBet(ctx context.Context, betID, actorID int64, reason string) (*interfaces.SettlementReport, error) {
	bet, err := s.betRepo.GetByIDForUpdate(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return nil, entities.ErrBetNotFound
	}

	if bet.CreatorID != actorID {
		return nil, entities.ErrNotBetCreator
	}
	if !bet.CanBeCancelled() {
		return nil, entities.ErrBetNotCancellable
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCancellationReason
	}

	return s.transitions.cancel(ctx, bet, &actorID, reason, s.now())
}
