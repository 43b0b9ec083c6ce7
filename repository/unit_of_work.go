package repository

import (
	"context"
	"errors"
	"fmt"

	"socialbets/application"
	"socialbets/database"
	"socialbets/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// unitOfWork binds every repository to one pgx transaction
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	transactionalPublisher interfaces.TransactionalEventPublisher
	betRepo                interfaces.BetRepository
	participationRepo      interfaces.ParticipationRepository
	voteRepo               interfaces.VoteRepository
	claimRepo              interfaces.FulfillmentClaimRepository
	roster                 interfaces.GroupMembership
	inventory              interfaces.InsuranceProvider
}

type unitOfWorkFactory struct {
	db *database.DB
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return &unitOfWorkFactory{db: db}
}

// CreateWithPublisher creates a new UnitOfWork that flushes the given publisher on commit
func (f *unitOfWorkFactory) CreateWithPublisher(transactionalPublisher interfaces.TransactionalEventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		transactionalPublisher: transactionalPublisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.betRepo = newBetRepository(tx)
	u.participationRepo = newParticipationRepository(tx)
	u.voteRepo = newVoteRepository(tx)
	u.claimRepo = newFulfillmentClaimRepository(tx)
	u.roster = newResolverRosterRepository(tx)
	u.inventory = newInventoryRepository(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Events only leave the process once the rows they describe are visible
	if u.transactionalPublisher != nil {
		_ = u.transactionalPublisher.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	return nil
}

// BetRepository returns the bet repository for this unit of work
func (u *unitOfWork) BetRepository() interfaces.BetRepository {
	if u.betRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.betRepo
}

// ParticipationRepository returns the participation repository for this unit of work
func (u *unitOfWork) ParticipationRepository() interfaces.ParticipationRepository {
	if u.participationRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.participationRepo
}

// VoteRepository returns the vote repository for this unit of work
func (u *unitOfWork) VoteRepository() interfaces.VoteRepository {
	if u.voteRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.voteRepo
}

// FulfillmentClaimRepository returns the claim repository for this unit of work
func (u *unitOfWork) FulfillmentClaimRepository() interfaces.FulfillmentClaimRepository {
	if u.claimRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.claimRepo
}

// ResolverRoster returns the assigned resolver lookup for this unit of work
func (u *unitOfWork) ResolverRoster() interfaces.GroupMembership {
	if u.roster == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.roster
}

// Inventory returns the insurance provider for this unit of work
func (u *unitOfWork) Inventory() interfaces.InsuranceProvider {
	if u.inventory == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.inventory
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalPublisher
}
