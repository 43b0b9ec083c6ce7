package services

import (
	"context"
	"fmt"
	"time"

	"socialbets/domain/entities"
	"socialbets/domain/events"
	"socialbets/domain/interfaces"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// settlementService pays out resolved bets and refunds cancelled ones
type settlementService struct {
	participationRepo interfaces.ParticipationRepository
	ledger            interfaces.CreditLedger
	insurance         interfaces.InsuranceProvider
	eventPublisher    interfaces.EventPublisher
	now               func() time.Time
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	participationRepo interfaces.ParticipationRepository,
	ledger interfaces.CreditLedger,
	insurance interfaces.InsuranceProvider,
	eventPublisher interfaces.EventPublisher,
) interfaces.SettlementService {
	return &settlementService{
		participationRepo: participationRepo,
		ledger:            ledger,
		insurance:         insurance,
		eventPublisher:    eventPublisher,
		now:               time.Now,
	}
}

// settlementEntry is the planned final state of one participation
type settlementEntry struct {
	participation *entities.BetParticipation
	result        entities.ParticipationResult
	payout        decimal.Decimal
	reason        entities.LedgerReason
}

// Settle applies the bet's outcome to every participation that has not been
// settled yet. A ledger failure leaves that participation untouched for the
// reconciliation sweep and does not stop the others. Storage errors abort.
func (s *settlementService) Settle(ctx context.Context, bet *entities.Bet) (*interfaces.SettlementReport, error) {
	if !bet.IsResolved() || bet.Outcome == nil {
		return nil, fmt.Errorf("cannot settle bet %d in status %s: %w", bet.ID, bet.Status, entities.ErrInvalidOutcome)
	}

	participations, err := s.participationRepo.ListByBet(ctx, bet.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participations: %w", err)
	}

	report := &interfaces.SettlementReport{BetID: bet.ID}
	for _, entry := range s.planSettlement(bet, participations) {
		if err := s.applyEntry(ctx, bet, entry, report); err != nil {
			return nil, err
		}
	}

	log.WithFields(log.Fields{
		"bet_id":  bet.ID,
		"outcome": bet.Outcome.String(),
		"settled": report.Settled,
		"skipped": report.Skipped,
		"failed":  report.Failed,
	}).Info("Bet settled")

	return report, nil
}

// planSettlement computes the final state of every staked participation. The
// plan covers settled participations too so pool shares never depend on which
// rows a previous pass already finished.
func (s *settlementService) planSettlement(bet *entities.Bet, participations []*entities.BetParticipation) []settlementEntry {
	results := make(map[int64]entities.ParticipationResult, len(participations))
	var winners []Stake
	losingPool := decimal.Zero

	for _, p := range participations {
		result := entities.ClassifyParticipation(bet.Outcome, p)
		results[p.ID] = result
		switch result {
		case entities.ResultWin:
			winners = append(winners, Stake{ParticipationID: p.ID, Amount: p.BetAmount})
		case entities.ResultLoss:
			losingPool = losingPool.Add(p.BetAmount)
		}
	}

	// Nobody picked the declared outcome, so credit stakes go back. Social
	// losers still owe their forfeit.
	noWinner := len(winners) == 0

	shares := map[int64]decimal.Decimal{}
	if bet.IsCreditBet() && !noWinner {
		shares = DistributePool(losingPool, winners)
	}

	plan := make([]settlementEntry, 0, len(participations))
	for _, p := range participations {
		result := results[p.ID]
		if result == entities.ResultNone {
			continue
		}

		entry := settlementEntry{participation: p, result: result}
		switch {
		case result == entities.ResultWin:
			entry.reason = entities.LedgerReasonBetWinnings
			if bet.IsCreditBet() {
				entry.payout = p.BetAmount.Add(shares[p.ID])
			}
		case result == entities.ResultLoss && noWinner && bet.IsCreditBet():
			entry.result = entities.ResultRefund
			entry.payout = p.BetAmount
			entry.reason = entities.LedgerReasonNoWinnerRefund
		case result == entities.ResultLoss:
			entry.reason = entities.LedgerReasonInsuranceRefund
		case result == entities.ResultDraw:
			entry.payout = p.BetAmount
			entry.reason = entities.LedgerReasonDrawRefund
		case result == entities.ResultRefund:
			entry.payout = p.BetAmount
			entry.reason = entities.LedgerReasonCancellationRefund
		}
		plan = append(plan, entry)
	}
	return plan
}

// applyEntry moves credits and stores the settled state for one participation
func (s *settlementService) applyEntry(ctx context.Context, bet *entities.Bet, entry settlementEntry, report *interfaces.SettlementReport) error {
	p := entry.participation
	if p.IsSettled() {
		report.Skipped++
		return nil
	}

	now := s.now()
	switch entry.result {
	case entities.ResultWin:
		p.MarkWon(entry.payout, now)
	case entities.ResultLoss:
		if bet.IsCreditBet() && !p.InsuranceApplied {
			policy, err := s.insurance.GetActiveInsurance(ctx, p.UserID, bet.ID)
			if err != nil {
				s.logFailure(bet, p, entry, err, "Insurance lookup failed, participation left for reconciliation")
				report.Failed++
				return nil
			}
			if policy != nil {
				p.ApplyInsurance(policy)
			}
		}
		// Insured at join time with only the percentage stored
		if p.InsuranceApplied && p.InsuranceRefundAmount.IsZero() && p.InsuranceRefundPercentage != nil {
			p.InsuranceRefundAmount = entities.ComputeInsuranceRefund(p.BetAmount, *p.InsuranceRefundPercentage)
		}
		p.MarkLost(now)
		entry.payout = p.ActualWinnings
	default:
		p.MarkRefunded(entry.result, now)
	}

	if err := s.transfer(ctx, bet, p, entry.reason); err != nil {
		s.logFailure(bet, p, entry, err, "Ledger transfer failed, participation left for reconciliation")
		report.Failed++
		return nil
	}

	return s.store(ctx, bet, p, report)
}

// transfer credits the participation's payout through the ledger. Social bets
// never move credits.
func (s *settlementService) transfer(ctx context.Context, bet *entities.Bet, p *entities.BetParticipation, reason entities.LedgerReason) error {
	if !bet.IsCreditBet() || !p.ActualWinnings.IsPositive() {
		return nil
	}

	return s.ledger.Transfer(ctx, entities.LedgerTransfer{
		UserID:          p.UserID,
		Amount:          p.ActualWinnings,
		Reason:          reason,
		BetID:           bet.ID,
		ParticipationID: p.ID,
		IdempotencyKey:  entities.LedgerIdempotencyKey(bet.ID, p.ID, reason),
	})
}

// store persists the settled participation and announces it
func (s *settlementService) store(ctx context.Context, bet *entities.Bet, p *entities.BetParticipation, report *interfaces.SettlementReport) error {
	updated, err := s.participationRepo.Settle(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to settle participation %d: %w", p.ID, err)
	}
	if !updated {
		report.Skipped++
		return nil
	}
	report.Settled++

	if err := s.eventPublisher.Publish(events.ParticipationSettledEvent{
		BetID:           bet.ID,
		ParticipationID: p.ID,
		UserID:          p.UserID,
		Status:          string(p.Status),
		Result:          string(p.Result),
		ActualWinnings:  p.ActualWinnings,
	}); err != nil {
		log.WithError(err).WithField("participation_id", p.ID).Error("Failed to publish participation settled event")
	}
	return nil
}

// Cancel refunds every participation a cancelled bet still holds and returns
// consumed insurance items
func (s *settlementService) Cancel(ctx context.Context, bet *entities.Bet) (*interfaces.SettlementReport, error) {
	if !bet.IsCancelled() {
		return nil, fmt.Errorf("cannot refund bet %d in status %s: %w", bet.ID, bet.Status, entities.ErrInvalidOutcome)
	}

	participations, err := s.participationRepo.ListByBet(ctx, bet.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participations: %w", err)
	}

	report := &interfaces.SettlementReport{BetID: bet.ID}
	for _, p := range participations {
		if !p.IsRefundable() {
			report.Skipped++
			continue
		}

		entry := settlementEntry{participation: p, result: entities.ResultRefund, payout: p.BetAmount, reason: entities.LedgerReasonCancellationRefund}

		if err := s.returnInsurance(ctx, bet, p); err != nil {
			s.logFailure(bet, p, entry, err, "Insurance return failed, participation left for reconciliation")
			report.Failed++
			continue
		}

		p.MarkRefunded(entities.ResultRefund, s.now())

		if err := s.transfer(ctx, bet, p, entry.reason); err != nil {
			s.logFailure(bet, p, entry, err, "Ledger refund failed, participation left for reconciliation")
			report.Failed++
			continue
		}

		if err := s.store(ctx, bet, p, report); err != nil {
			return nil, err
		}
	}

	log.WithFields(log.Fields{
		"bet_id":   bet.ID,
		"refunded": report.Settled,
		"skipped":  report.Skipped,
		"failed":   report.Failed,
	}).Info("Bet refunded after cancellation")

	return report, nil
}

// returnInsurance reverts the insurance item consumed by the participation, if any
func (s *settlementService) returnInsurance(ctx context.Context, bet *entities.Bet, p *entities.BetParticipation) error {
	if p.InsuranceItemID != nil {
		return s.insurance.ReturnItem(ctx, p.UserID, *p.InsuranceItemID)
	}

	policy, err := s.insurance.GetActiveInsurance(ctx, p.UserID, bet.ID)
	if err != nil {
		return fmt.Errorf("failed to get insurance: %w", err)
	}
	if policy == nil {
		return nil
	}
	return s.insurance.ReturnItem(ctx, p.UserID, policy.ItemID)
}

func (s *settlementService) logFailure(bet *entities.Bet, p *entities.BetParticipation, entry settlementEntry, err error, msg string) {
	log.WithFields(log.Fields{
		"bet_id":           bet.ID,
		"participation_id": p.ID,
		"user_id":          p.UserID,
		"amount":           entry.payout.StringFixed(2),
		"reason":           entry.reason,
	}).WithError(err).Error(msg)
}
