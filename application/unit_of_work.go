package application

import (
	"context"

	"socialbets/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	// Repository getters
	BetRepository() interfaces.BetRepository
	ParticipationRepository() interfaces.ParticipationRepository
	VoteRepository() interfaces.VoteRepository
	FulfillmentClaimRepository() interfaces.FulfillmentClaimRepository
	ResolverRoster() interfaces.GroupMembership
	Inventory() interfaces.InsuranceProvider
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
