package application

import (
	"context"
	"fmt"

	"socialbets/domain/entities"
	"socialbets/domain/interfaces"
	"socialbets/domain/services"
	"socialbets/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// MetricsRecorder receives counters for the bet operations.
// *observability.MetricsProvider satisfies it.
type MetricsRecorder interface {
	RecordVoteCast()
	RecordBetResolved(outcomeKind string, forced bool)
	RecordBetCancelled(trigger string)
	RecordInterventionNeeded()
	RecordSettlement(settled, failed int)
	RecordFulfillmentClaim()
}

// RosterWrapper decorates the per-transaction resolver lookup, e.g. with a cache
type RosterWrapper interface {
	Wrap(next interfaces.GroupMembership) interfaces.GroupMembership
}

// BetCommands runs every bet operation in its own unit of work
type BetCommands struct {
	uowFactory     UnitOfWorkFactory
	ledger         interfaces.CreditLedger
	roster         RosterWrapper
	zeroVotePolicy interfaces.ZeroVotePolicy
	metrics        MetricsRecorder
}

// NewBetCommands creates the command surface. roster and metrics may be nil.
func NewBetCommands(
	uowFactory UnitOfWorkFactory,
	ledger interfaces.CreditLedger,
	roster RosterWrapper,
	zeroVotePolicy interfaces.ZeroVotePolicy,
	metrics MetricsRecorder,
) *BetCommands {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &BetCommands{
		uowFactory:     uowFactory,
		ledger:         ledger,
		roster:         roster,
		zeroVotePolicy: zeroVotePolicy,
		metrics:        metrics,
	}
}

// betServices is the set of domain services bound to one unit of work
type betServices struct {
	resolution     interfaces.ResolutionService
	lifecycle      interfaces.BetLifecycleService
	fulfillment    interfaces.FulfillmentService
	reconciliation interfaces.ReconciliationService
}

func (c *BetCommands) servicesFor(uow UnitOfWork) betServices {
	membership := uow.ResolverRoster()
	if c.roster != nil {
		membership = c.roster.Wrap(membership)
	}

	settlement := services.NewSettlementService(
		uow.ParticipationRepository(),
		c.ledger,
		uow.Inventory(),
		uow.EventBus(),
	)

	return betServices{
		resolution: services.NewResolutionService(
			uow.BetRepository(),
			uow.ParticipationRepository(),
			uow.VoteRepository(),
			membership,
			settlement,
			uow.EventBus(),
			c.zeroVotePolicy,
		),
		lifecycle: services.NewBetLifecycleService(
			uow.BetRepository(),
			settlement,
			uow.EventBus(),
		),
		fulfillment: services.NewFulfillmentService(
			uow.BetRepository(),
			uow.ParticipationRepository(),
			uow.FulfillmentClaimRepository(),
			uow.EventBus(),
		),
		reconciliation: services.NewReconciliationService(uow.BetRepository(), settlement),
	}
}

// inTransaction runs fn in a fresh unit of work and commits when it succeeds
func (c *BetCommands) inTransaction(ctx context.Context, fn func(svc betServices) error) error {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := fn(c.servicesFor(uow)); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SubmitVote records a resolver's vote and resolves the bet once consensus is reached
func (c *BetCommands) SubmitVote(ctx context.Context, req interfaces.SubmitVoteRequest) (*interfaces.VoteResult, error) {
	var result *interfaces.VoteResult
	err := c.inTransaction(ctx, func(svc betServices) error {
		var err error
		result, err = svc.resolution.SubmitVote(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.metrics.RecordVoteCast()
	if result.Resolved && result.Evaluation != nil && result.Evaluation.Outcome != nil {
		c.metrics.RecordBetResolved(string(result.Evaluation.Outcome.Kind()), false)
	}
	c.recordSettlement(result.Settlement)
	return result, nil
}

// ForceResolveIfDeadlinePassed resolves a bet from its current votes once the resolve date passed
func (c *BetCommands) ForceResolveIfDeadlinePassed(ctx context.Context, betID int64) (*interfaces.ResolutionResult, error) {
	var result *interfaces.ResolutionResult
	err := c.inTransaction(ctx, func(svc betServices) error {
		var err error
		result, err = svc.resolution.ForceResolveIfDeadlinePassed(ctx, betID)
		return err
	})
	if err != nil {
		return nil, err
	}

	switch {
	case result.Resolved:
		if result.Evaluation != nil && result.Evaluation.Outcome != nil {
			c.metrics.RecordBetResolved(string(result.Evaluation.Outcome.Kind()), true)
		}
	case result.Cancelled:
		c.metrics.RecordBetCancelled(observability.TriggerNoVotes)
	case result.NeedsIntervention:
		c.metrics.RecordInterventionNeeded()
	}
	c.recordSettlement(result.Settlement)

	return result, nil
}

// CloseIfExpired moves an open bet past its betting deadline to closed
func (c *BetCommands) CloseIfExpired(ctx context.Context, betID int64) (bool, error) {
	var closed bool
	err := c.inTransaction(ctx, func(svc betServices) error {
		var err error
		closed, err = svc.lifecycle.CloseIfExpired(ctx, betID)
		return err
	})
	return closed, err
}

// CancelBet cancels a bet on behalf of its creator and refunds the stakes
func (c *BetCommands) CancelBet(ctx context.Context, betID, actorID int64, reason string) (*interfaces.SettlementReport, error) {
	var report *interfaces.SettlementReport
	err := c.inTransaction(ctx, func(svc betServices) error {
		var err error
		report, err = svc.lifecycle.CancelBet(ctx, betID, actorID, reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.metrics.RecordBetCancelled(observability.TriggerCreator)
	c.recordSettlement(report)
	return report, nil
}

// ReconcileBet retries the settlement of a resolved or cancelled bet
func (c *BetCommands) ReconcileBet(ctx context.Context, betID int64) (*interfaces.SettlementReport, error) {
	var report *interfaces.SettlementReport
	err := c.inTransaction(ctx, func(svc betServices) error {
		var err error
		report, err = svc.reconciliation.ReconcileBet(ctx, betID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.recordSettlement(report)
	return report, nil
}

// ClaimFulfilled records that a loser has performed their social forfeit
func (c *BetCommands) ClaimFulfilled(ctx context.Context, req interfaces.ClaimRequest) (*entities.LoserFulfillmentClaim, error) {
	var claim *entities.LoserFulfillmentClaim
	err := c.inTransaction(ctx, func(svc betServices) error {
		var err error
		claim, err = svc.fulfillment.ClaimFulfilled(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.metrics.RecordFulfillmentClaim()
	return claim, nil
}

// GetFulfillmentStatus reports which losers of a social bet have fulfilled their forfeit
func (c *BetCommands) GetFulfillmentStatus(ctx context.Context, betID int64) (*entities.FulfillmentSummary, error) {
	var summary *entities.FulfillmentSummary
	err := c.inTransaction(ctx, func(svc betServices) error {
		var err error
		summary, err = svc.fulfillment.GetFulfillmentStatus(ctx, betID)
		return err
	})
	return summary, err
}

// GetVoteTally evaluates the active votes on a bet without changing it
func (c *BetCommands) GetVoteTally(ctx context.Context, betID int64) (*interfaces.ConsensusEvaluation, error) {
	var evaluation *interfaces.ConsensusEvaluation
	err := c.inTransaction(ctx, func(svc betServices) error {
		var err error
		evaluation, err = svc.resolution.GetVoteTally(ctx, betID)
		return err
	})
	return evaluation, err
}

// GetVoteHistory lists every vote cast on a bet, revoked ones included
func (c *BetCommands) GetVoteHistory(ctx context.Context, betID int64) ([]*entities.ResolutionVote, error) {
	var votes []*entities.ResolutionVote
	err := c.inTransaction(ctx, func(svc betServices) error {
		var err error
		votes, err = svc.resolution.GetVoteHistory(ctx, betID)
		return err
	})
	return votes, err
}

func (c *BetCommands) recordSettlement(report *interfaces.SettlementReport) {
	if report == nil {
		return
	}
	c.metrics.RecordSettlement(report.Settled, report.Failed)
	if report.Failed > 0 {
		log.WithFields(log.Fields{
			"bet_id":  report.BetID,
			"settled": report.Settled,
			"failed":  report.Failed,
		}).Warn("Settlement left participations for reconciliation")
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordVoteCast()                {}
func (nopMetrics) RecordBetResolved(string, bool) {}
func (nopMetrics) RecordBetCancelled(string)      {}
func (nopMetrics) RecordInterventionNeeded()      {}
func (nopMetrics) RecordSettlement(int, int)      {}
func (nopMetrics) RecordFulfillmentClaim()        {}
