package testhelpers

import (
	"context"
	"time"

	"socialbets/domain/entities"
	"socialbets/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) Create(ctx context.Context, bet *entities.Bet, assignedResolvers []int64) error {
	args := m.Called(ctx, bet, assignedResolvers)
	return args.Error(0)
}

func (m *MockBetRepository) GetByID(ctx context.Context, id int64) (*entities.Bet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Bet), args.Error(1)
}

func (m *MockBetRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Bet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Bet), args.Error(1)
}

func (m *MockBetRepository) TransitionStatus(ctx context.Context, bet *entities.Bet, from entities.BetStatus) (bool, error) {
	args := m.Called(ctx, bet, from)
	return args.Bool(0), args.Error(1)
}

func (m *MockBetRepository) ListOpenPastDeadline(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockBetRepository) ListClosedPastResolveDate(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockBetRepository) ListWithUnsettledParticipations(ctx context.Context, limit int) ([]int64, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockBetRepository) MarkReconcileAttempted(ctx context.Context, betID int64, at time.Time) error {
	args := m.Called(ctx, betID, at)
	return args.Error(0)
}

// MockParticipationRepository is a mock implementation of ParticipationRepository
type MockParticipationRepository struct {
	mock.Mock
}

func (m *MockParticipationRepository) Create(ctx context.Context, participation *entities.BetParticipation) error {
	args := m.Called(ctx, participation)
	return args.Error(0)
}

func (m *MockParticipationRepository) ListByBet(ctx context.Context, betID int64) ([]*entities.BetParticipation, error) {
	args := m.Called(ctx, betID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BetParticipation), args.Error(1)
}

func (m *MockParticipationRepository) GetByBetAndUser(ctx context.Context, betID, userID int64) (*entities.BetParticipation, error) {
	args := m.Called(ctx, betID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.BetParticipation), args.Error(1)
}

func (m *MockParticipationRepository) Settle(ctx context.Context, participation *entities.BetParticipation) (bool, error) {
	args := m.Called(ctx, participation)
	return args.Bool(0), args.Error(1)
}

func (m *MockParticipationRepository) ListLoserIDs(ctx context.Context, betID int64) ([]int64, error) {
	args := m.Called(ctx, betID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockVoteRepository is a mock implementation of VoteRepository
type MockVoteRepository struct {
	mock.Mock
}

func (m *MockVoteRepository) Create(ctx context.Context, vote *entities.ResolutionVote) error {
	args := m.Called(ctx, vote)
	return args.Error(0)
}

func (m *MockVoteRepository) RevokeActive(ctx context.Context, betID, resolverID int64, at time.Time) (bool, error) {
	args := m.Called(ctx, betID, resolverID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockVoteRepository) GetActiveByBet(ctx context.Context, betID int64) ([]*entities.ResolutionVote, error) {
	args := m.Called(ctx, betID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ResolutionVote), args.Error(1)
}

func (m *MockVoteRepository) ListByBet(ctx context.Context, betID int64) ([]*entities.ResolutionVote, error) {
	args := m.Called(ctx, betID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ResolutionVote), args.Error(1)
}

// MockFulfillmentClaimRepository is a mock implementation of FulfillmentClaimRepository
type MockFulfillmentClaimRepository struct {
	mock.Mock
}

func (m *MockFulfillmentClaimRepository) Create(ctx context.Context, claim *entities.LoserFulfillmentClaim) (bool, error) {
	args := m.Called(ctx, claim)
	return args.Bool(0), args.Error(1)
}

func (m *MockFulfillmentClaimRepository) ListByBet(ctx context.Context, betID int64) ([]*entities.LoserFulfillmentClaim, error) {
	args := m.Called(ctx, betID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LoserFulfillmentClaim), args.Error(1)
}

// MockCreditLedger is a mock implementation of CreditLedger
type MockCreditLedger struct {
	mock.Mock
}

func (m *MockCreditLedger) Transfer(ctx context.Context, transfer entities.LedgerTransfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

// MockInsuranceProvider is a mock implementation of InsuranceProvider
type MockInsuranceProvider struct {
	mock.Mock
}

func (m *MockInsuranceProvider) GetActiveInsurance(ctx context.Context, userID, betID int64) (*entities.InsurancePolicy, error) {
	args := m.Called(ctx, userID, betID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.InsurancePolicy), args.Error(1)
}

func (m *MockInsuranceProvider) ReturnItem(ctx context.Context, userID, itemID int64) error {
	args := m.Called(ctx, userID, itemID)
	return args.Error(0)
}

// MockGroupMembership is a mock implementation of GroupMembership
type MockGroupMembership struct {
	mock.Mock
}

func (m *MockGroupMembership) GetEligibleResolvers(ctx context.Context, betID int64) ([]int64, error) {
	args := m.Called(ctx, betID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}
