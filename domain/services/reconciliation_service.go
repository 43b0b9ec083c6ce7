package services

import (
	"context"
	"fmt"

	"socialbets/domain/entities"
	"socialbets/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type reconciliationService struct {
	betRepo    interfaces.BetRepository
	settlement interfaces.SettlementService
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(betRepo interfaces.BetRepository, settlement interfaces.SettlementService) interfaces.ReconciliationService {
	return &reconciliationService{
		betRepo:    betRepo,
		settlement: settlement,
	}
}

// ReconcileBet reruns settlement for a resolved or cancelled bet. Participations
// that were settled already are skipped, so this is safe to repeat.
func (s *reconciliationService) ReconcileBet(ctx context.Context, betID int64) (*interfaces.SettlementReport, error) {
	bet, err := s.betRepo.GetByIDForUpdate(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return nil, entities.ErrBetNotFound
	}

	var report *interfaces.SettlementReport
	switch {
	case bet.IsResolved():
		report, err = s.settlement.Settle(ctx, bet)
	case bet.IsCancelled():
		report, err = s.settlement.Cancel(ctx, bet)
	default:
		return nil, entities.ErrBetNotInResolvablePhase
	}
	if err != nil {
		return nil, err
	}

	if report.Settled > 0 || report.Failed > 0 {
		log.WithFields(log.Fields{
			"bet_id":  bet.ID,
			"settled": report.Settled,
			"failed":  report.Failed,
		}).Info("Reconciled bet settlement")
	}
	return report, nil
}
