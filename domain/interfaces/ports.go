package interfaces

import (
	"context"

	"socialbets/domain/entities"
)

// CreditLedger moves credits to users. Transfers carry an idempotency key so
// a retried settlement never pays twice.
type CreditLedger interface {
	Transfer(ctx context.Context, transfer entities.LedgerTransfer) error
}

// InsuranceProvider exposes the insurance items users consume on bets
type InsuranceProvider interface {
	// GetActiveInsurance returns nil, nil when the user has no insurance on the bet
	GetActiveInsurance(ctx context.Context, userID, betID int64) (*entities.InsurancePolicy, error)

	// ReturnItem reverts a consumed insurance item so it can be used again
	ReturnItem(ctx context.Context, userID, itemID int64) error
}

// GroupMembership answers who may resolve a bet with assigned resolvers
type GroupMembership interface {
	GetEligibleResolvers(ctx context.Context, betID int64) ([]int64, error)
}
