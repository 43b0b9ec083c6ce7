package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"socialbets/domain/entities"
	"socialbets/domain/events"
	"socialbets/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// NoVotesCancellationReason is recorded when a bet is cancelled for lack of votes
const NoVotesCancellationReason = "no resolution votes before deadline"

type resolutionService struct {
	betRepo           interfaces.BetRepository
	participationRepo interfaces.ParticipationRepository
	voteRepo          interfaces.VoteRepository
	membership        interfaces.GroupMembership
	eventPublisher    interfaces.EventPublisher
	transitions       *betTransitions
	zeroVotePolicy    interfaces.ZeroVotePolicy
	now               func() time.Time
}

// NewResolutionService creates a new resolution service
func NewResolutionService(
	betRepo interfaces.BetRepository,
	participationRepo interfaces.ParticipationRepository,
	voteRepo interfaces.VoteRepository,
	membership interfaces.GroupMembership,
	settlement interfaces.SettlementService,
	eventPublisher interfaces.EventPublisher,
	zeroVotePolicy interfaces.ZeroVotePolicy,
) interfaces.ResolutionService {
	if zeroVotePolicy == "" {
		zeroVotePolicy = interfaces.ZeroVotePolicyCancel
	}
	return &resolutionService{
		betRepo:           betRepo,
		participationRepo: participationRepo,
		voteRepo:          voteRepo,
		membership:        membership,
		eventPublisher:    eventPublisher,
		transitions: &betTransitions{
			betRepo:        betRepo,
			settlement:     settlement,
			eventPublisher: eventPublisher,
		},
		zeroVotePolicy: zeroVotePolicy,
		now:            time.Now,
	}
}

// SubmitVote records a resolver's ballot, replacing their previous one, and
// resolves the bet when consensus is complete
func (s *resolutionService) SubmitVote(ctx context.Context, req interfaces.SubmitVoteRequest) (*interfaces.VoteResult, error) {
	if err := validateRequest(req, entities.ErrInvalidVotePayload); err != nil {
		return nil, err
	}

	// The row lock serializes votes and resolution on the same bet
	bet, err := s.betRepo.GetByIDForUpdate(ctx, req.BetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return nil, entities.ErrBetNotFound
	}

	now := s.now()
	if _, err := s.transitions.closeExpired(ctx, bet, now); err != nil {
		return nil, err
	}
	if !bet.IsClosed() {
		return nil, entities.ErrBetNotInResolvablePhase
	}

	participations, err := s.participationRepo.ListByBet(ctx, bet.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participations: %w", err)
	}

	eligible, err := s.eligibleResolvers(ctx, bet, participations)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(eligible, req.ResolverID) {
		return nil, entities.ErrNotAuthorizedToResolve
	}

	vote, err := buildVote(bet, participations, req, now)
	if err != nil {
		return nil, err
	}

	replaced, err := s.voteRepo.RevokeActive(ctx, bet.ID, req.ResolverID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke previous vote: %w", err)
	}
	if err := s.voteRepo.Create(ctx, vote); err != nil {
		return nil, fmt.Errorf("failed to create vote: %w", err)
	}

	votes, err := s.voteRepo.GetActiveByBet(ctx, bet.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active votes: %w", err)
	}

	eval := EvaluateConsensus(ConsensusInput{
		Bet:            bet,
		Participations: participations,
		Eligible:       eligible,
		Votes:          votes,
		DeadlinePassed: bet.ResolveDeadlinePassed(now),
	})

	if err := s.eventPublisher.Publish(events.VoteCastEvent{
		BetID:        bet.ID,
		GroupID:      bet.GroupID,
		ResolverID:   req.ResolverID,
		VoteID:       vote.ID,
		ChosenOption: vote.ChosenOption,
		WinnerIDs:    vote.WinnerIDs,
		Replaced:     replaced,
		VotesCast:    eval.VotesCast,
		Eligible:     eval.Eligible,
	}); err != nil {
		log.WithError(err).Error("Failed to publish vote cast event")
	}

	log.WithFields(log.Fields{
		"bet_id":      bet.ID,
		"resolver_id": req.ResolverID,
		"replaced":    replaced,
		"votes_cast":  eval.VotesCast,
		"threshold":   eval.Threshold,
	}).Info("Resolution vote recorded")

	result := &interfaces.VoteResult{Vote: vote, Replaced: replaced, Evaluation: eval}
	if !eval.Complete {
		return result, nil
	}

	report, resolved, err := s.transitions.resolve(ctx, bet, eval.Outcome, false, now)
	if err != nil {
		return nil, err
	}
	result.Resolved = resolved
	result.Settlement = report
	return result, nil
}

// ForceResolveIfDeadlinePassed resolves a closed bet with whatever votes exist
// once its resolve date has passed. Without any vote the zero vote policy
// applies. Bets that already reached a terminal state are left untouched.
func (s *resolutionService) ForceResolveIfDeadlinePassed(ctx context.Context, betID int64) (*interfaces.ResolutionResult, error) {
	bet, err := s.betRepo.GetByIDForUpdate(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return nil, entities.ErrBetNotFound
	}

	result := &interfaces.ResolutionResult{BetID: bet.ID}
	if bet.IsTerminal() {
		return result, nil
	}

	now := s.now()
	if _, err := s.transitions.closeExpired(ctx, bet, now); err != nil {
		return nil, err
	}
	if !bet.IsClosed() {
		return nil, entities.ErrBetNotInResolvablePhase
	}
	if !bet.ResolveDeadlinePassed(now) {
		return nil, entities.ErrResolveDeadlineNotReached
	}

	eval, err := s.evaluate(ctx, bet, true)
	if err != nil {
		return nil, err
	}
	result.Evaluation = eval

	switch {
	case eval.Complete:
		report, resolved, err := s.transitions.resolve(ctx, bet, eval.Outcome, true, now)
		if err != nil {
			return nil, err
		}
		result.Resolved = resolved
		result.Settlement = report

	case eval.NeedsIntervention && s.zeroVotePolicy == interfaces.ZeroVotePolicyCancel:
		report, err := s.transitions.cancel(ctx, bet, nil, NoVotesCancellationReason, now)
		if err != nil {
			return nil, err
		}
		result.Cancelled = true
		result.Settlement = report

	case eval.NeedsIntervention:
		result.NeedsIntervention = true
		if err := s.eventPublisher.Publish(events.ResolutionNeedsInterventionEvent{
			BetID:       bet.ID,
			GroupID:     bet.GroupID,
			CreatorID:   bet.CreatorID,
			ResolveDate: bet.ResolveDate,
		}); err != nil {
			log.WithError(err).Error("Failed to publish resolution needs intervention event")
		}
		log.WithField("bet_id", bet.ID).Warn("Resolve date passed without votes, bet needs intervention")
	}

	return result, nil
}

// GetVoteTally returns the current consensus evaluation without changing anything
func (s *resolutionService) GetVoteTally(ctx context.Context, betID int64) (*interfaces.ConsensusEvaluation, error) {
	bet, err := s.betRepo.GetByID(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return nil, entities.ErrBetNotFound
	}

	return s.evaluate(ctx, bet, bet.ResolveDeadlinePassed(s.now()))
}

// GetVoteHistory returns every vote cast on the bet, revoked ones included
func (s *resolutionService) GetVoteHistory(ctx context.Context, betID int64) ([]*entities.ResolutionVote, error) {
	bet, err := s.betRepo.GetByID(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return nil, entities.ErrBetNotFound
	}

	votes, err := s.voteRepo.ListByBet(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get votes: %w", err)
	}
	return votes, nil
}

func (s *resolutionService) evaluate(ctx context.Context, bet *entities.Bet, deadlinePassed bool) (*interfaces.ConsensusEvaluation, error) {
	participations, err := s.participationRepo.ListByBet(ctx, bet.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participations: %w", err)
	}

	eligible, err := s.eligibleResolvers(ctx, bet, participations)
	if err != nil {
		return nil, err
	}

	votes, err := s.voteRepo.GetActiveByBet(ctx, bet.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active votes: %w", err)
	}

	return EvaluateConsensus(ConsensusInput{
		Bet:            bet,
		Participations: participations,
		Eligible:       eligible,
		Votes:          votes,
		DeadlinePassed: deadlinePassed,
	}), nil
}

// eligibleResolvers returns who may vote on the bet under its resolution method
func (s *resolutionService) eligibleResolvers(ctx context.Context, bet *entities.Bet, participations []*entities.BetParticipation) ([]int64, error) {
	switch bet.ResolutionMethod {
	case entities.ResolutionMethodCreatorOnly:
		return []int64{bet.CreatorID}, nil

	case entities.ResolutionMethodAssignedResolvers:
		resolvers, err := s.membership.GetEligibleResolvers(ctx, bet.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get eligible resolvers: %w", err)
		}
		return resolvers, nil

	case entities.ResolutionMethodConsensusVoting:
		var resolvers []int64
		for _, p := range participations {
			if p.IsActive() && p.UserID != bet.CreatorID {
				resolvers = append(resolvers, p.UserID)
			}
		}
		if bet.AllowCreatorVote {
			resolvers = append(resolvers, bet.CreatorID)
		}
		slices.Sort(resolvers)
		return slices.Compact(resolvers), nil

	default:
		return nil, fmt.Errorf("unknown resolution method %q", bet.ResolutionMethod)
	}
}

// buildVote checks the ballot against the bet type and returns the vote to store
func buildVote(bet *entities.Bet, participations []*entities.BetParticipation, req interfaces.SubmitVoteRequest, now time.Time) (*entities.ResolutionVote, error) {
	vote := &entities.ResolutionVote{
		BetID:      bet.ID,
		ResolverID: req.ResolverID,
		Reasoning:  req.Reasoning,
		CastAt:     now,
		IsActive:   true,
	}

	if bet.UsesChoiceVotes() {
		if req.Option == nil || len(req.WinnerIDs) > 0 {
			return nil, fmt.Errorf("%w: %s bets take exactly one option", entities.ErrInvalidVotePayload, bet.BetType)
		}
		if !bet.IsValidOption(*req.Option) {
			return nil, fmt.Errorf("%w: option %d is not offered", entities.ErrInvalidVotePayload, *req.Option)
		}
		option := *req.Option
		vote.ChosenOption = &option
		return vote, nil
	}

	if req.Option != nil || len(req.WinnerIDs) == 0 {
		return nil, fmt.Errorf("%w: prediction bets take a set of winners", entities.ErrInvalidVotePayload)
	}

	staked := make(map[int64]bool, len(participations))
	for _, p := range participations {
		if p.IsStaked() {
			staked[p.UserID] = true
		}
	}

	winners := slices.Clone(req.WinnerIDs)
	slices.Sort(winners)
	winners = slices.Compact(winners)
	for _, id := range winners {
		if !staked[id] {
			return nil, fmt.Errorf("%w: user %d did not take part in the bet", entities.ErrInvalidVotePayload, id)
		}
	}
	vote.WinnerIDs = winners
	return vote, nil
}
