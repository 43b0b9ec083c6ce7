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

type fulfillmentService struct {
	betRepo           interfaces.BetRepository
	participationRepo interfaces.ParticipationRepository
	claimRepo         interfaces.FulfillmentClaimRepository
	eventPublisher    interfaces.EventPublisher
	now               func() time.Time
}

// NewFulfillmentService creates a new fulfillment service
func NewFulfillmentService(
	betRepo interfaces.BetRepository,
	participationRepo interfaces.ParticipationRepository,
	claimRepo interfaces.FulfillmentClaimRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.FulfillmentService {
	return &fulfillmentService{
		betRepo:           betRepo,
		participationRepo: participationRepo,
		claimRepo:         claimRepo,
		eventPublisher:    eventPublisher,
		now:               time.Now,
	}
}

// ClaimFulfilled records that a loser performed their social stake. Claims are
// immutable; a second claim for the same bet fails with ErrAlreadyClaimed.
func (s *fulfillmentService) ClaimFulfilled(ctx context.Context, req interfaces.ClaimRequest) (*entities.LoserFulfillmentClaim, error) {
	if err := validateRequest(req, entities.ErrInvalidClaim); err != nil {
		return nil, err
	}

	bet, err := s.socialBet(ctx, req.BetID)
	if err != nil {
		return nil, err
	}

	participation, err := s.participationRepo.GetByBetAndUser(ctx, bet.ID, req.LoserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participation: %w", err)
	}
	if participation == nil || !participation.IsLoser() {
		return nil, entities.ErrNotALoser
	}

	claim := &entities.LoserFulfillmentClaim{
		BetID:            bet.ID,
		LoserID:          req.LoserID,
		ClaimedAt:        s.now(),
		ProofURL:         req.ProofURL,
		ProofDescription: req.ProofDescription,
	}

	created, err := s.claimRepo.Create(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("failed to create fulfillment claim: %w", err)
	}
	if !created {
		return nil, entities.ErrAlreadyClaimed
	}

	summary, err := s.summary(ctx, bet.ID)
	if err != nil {
		return nil, err
	}

	if err := s.eventPublisher.Publish(events.FulfillmentClaimedEvent{
		BetID:   bet.ID,
		GroupID: bet.GroupID,
		LoserID: req.LoserID,
		ClaimID: claim.ID,
		Status:  string(summary.Status),
		Claimed: summary.ConfirmationCount,
		Total:   summary.TotalLosers,
	}); err != nil {
		log.WithError(err).Error("Failed to publish fulfillment claimed event")
	}

	log.WithFields(log.Fields{
		"bet_id":   bet.ID,
		"loser_id": req.LoserID,
		"status":   summary.Status,
	}).Info("Fulfillment claimed")

	return claim, nil
}

// GetFulfillmentStatus derives the aggregate fulfillment state of a resolved social bet
func (s *fulfillmentService) GetFulfillmentStatus(ctx context.Context, betID int64) (*entities.FulfillmentSummary, error) {
	bet, err := s.socialBet(ctx, betID)
	if err != nil {
		return nil, err
	}
	return s.summary(ctx, bet.ID)
}

func (s *fulfillmentService) socialBet(ctx context.Context, betID int64) (*entities.Bet, error) {
	bet, err := s.betRepo.GetByID(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return nil, entities.ErrBetNotFound
	}
	if !bet.IsResolved() || !bet.IsSocialBet() {
		return nil, entities.ErrFulfillmentNotApplicable
	}
	return bet, nil
}

func (s *fulfillmentService) summary(ctx context.Context, betID int64) (*entities.FulfillmentSummary, error) {
	loserIDs, err := s.participationRepo.ListLoserIDs(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get losers: %w", err)
	}

	claims, err := s.claimRepo.ListByBet(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fulfillment claims: %w", err)
	}

	return entities.NewFulfillmentSummary(betID, loserIDs, claims), nil
}
