package services

import (
	"context"
	"testing"
	"time"

	"socialbets/domain/entities"
	"socialbets/domain/events"
	"socialbets/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// Test constants for consistent test data
const (
	TestBetID     = int64(1)
	TestGroupID   = int64(77)
	TestCreatorID = int64(10)
	TestUser1ID   = int64(100)
	TestUser2ID   = int64(200)
	TestUser3ID   = int64(300)
	TestUser4ID   = int64(400)
	TestItemID    = int64(9001)
)

// TestNow is the fixed clock used by service tests
var TestNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// TestMocks aggregates all repository and port mocks for testing
type TestMocks struct {
	BetRepo           *testhelpers.MockBetRepository
	ParticipationRepo *testhelpers.MockParticipationRepository
	VoteRepo          *testhelpers.MockVoteRepository
	ClaimRepo         *testhelpers.MockFulfillmentClaimRepository
	Ledger            *testhelpers.MockCreditLedger
	Insurance         *testhelpers.MockInsuranceProvider
	Membership        *testhelpers.MockGroupMembership
	EventPublisher    *testhelpers.MockEventPublisher
}

// NewTestMocks creates a new set of mocks
func NewTestMocks() *TestMocks {
	return &TestMocks{
		BetRepo:           &testhelpers.MockBetRepository{},
		ParticipationRepo: &testhelpers.MockParticipationRepository{},
		VoteRepo:          &testhelpers.MockVoteRepository{},
		ClaimRepo:         &testhelpers.MockFulfillmentClaimRepository{},
		Ledger:            &testhelpers.MockCreditLedger{},
		Insurance:         &testhelpers.MockInsuranceProvider{},
		Membership:        &testhelpers.MockGroupMembership{},
		EventPublisher:    &testhelpers.MockEventPublisher{},
	}
}

// AssertAllExpectations verifies all mock expectations were met
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.BetRepo.AssertExpectations(t)
	m.ParticipationRepo.AssertExpectations(t)
	m.VoteRepo.AssertExpectations(t)
	m.ClaimRepo.AssertExpectations(t)
	m.Ledger.AssertExpectations(t)
	m.Insurance.AssertExpectations(t)
	m.Membership.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
}

// MockHelper provides common mock setup patterns
type MockHelper struct {
	mocks *TestMocks
	ctx   context.Context
}

// NewMockHelper creates a new mock helper
func NewMockHelper(mocks *TestMocks) *MockHelper {
	return &MockHelper{
		mocks: mocks,
		ctx:   context.Background(),
	}
}

// ExpectBetLock sets up the locking bet lookup
func (h *MockHelper) ExpectBetLock(bet *entities.Bet) {
	h.mocks.BetRepo.On("GetByIDForUpdate", mock.Anything, bet.ID).Return(bet, nil)
}

// ExpectBetLookup sets up the plain bet lookup
func (h *MockHelper) ExpectBetLookup(bet *entities.Bet) {
	h.mocks.BetRepo.On("GetByID", mock.Anything, bet.ID).Return(bet, nil)
}

// ExpectBetNotFound sets up both bet lookups to return not found
func (h *MockHelper) ExpectBetNotFound(betID int64) {
	h.mocks.BetRepo.On("GetByIDForUpdate", mock.Anything, betID).Return(nil, nil).Maybe()
	h.mocks.BetRepo.On("GetByID", mock.Anything, betID).Return(nil, nil).Maybe()
}

// ExpectTransition sets up the status compare-and-set from the given status
func (h *MockHelper) ExpectTransition(from entities.BetStatus, ok bool) {
	h.mocks.BetRepo.On("TransitionStatus", mock.Anything, mock.AnythingOfType("*entities.Bet"), from).Return(ok, nil).Once()
}

// ExpectParticipations sets up the participation listing for a bet
func (h *MockHelper) ExpectParticipations(betID int64, participations []*entities.BetParticipation) {
	h.mocks.ParticipationRepo.On("ListByBet", mock.Anything, betID).Return(participations, nil)
}

// ExpectActiveVotes sets up the active vote listing for a bet
func (h *MockHelper) ExpectActiveVotes(betID int64, votes []*entities.ResolutionVote) {
	h.mocks.VoteRepo.On("GetActiveByBet", mock.Anything, betID).Return(votes, nil)
}

// ExpectVoteRecorded sets up revoking the previous vote and storing the new one
func (h *MockHelper) ExpectVoteRecorded(betID, resolverID int64, replaced bool) {
	h.mocks.VoteRepo.On("RevokeActive", mock.Anything, betID, resolverID, mock.Anything).Return(replaced, nil).Once()
	h.mocks.VoteRepo.On("Create", mock.Anything, mock.MatchedBy(func(v *entities.ResolutionVote) bool {
		return v.BetID == betID && v.ResolverID == resolverID && v.IsActive
	})).Return(nil).Once()
}

// ExpectSettleAll accepts every participation update
func (h *MockHelper) ExpectSettleAll() {
	h.mocks.ParticipationRepo.On("Settle", mock.Anything, mock.AnythingOfType("*entities.BetParticipation")).Return(true, nil)
}

// ExpectNoInsurance sets up an insurance lookup that finds nothing
func (h *MockHelper) ExpectNoInsurance(userID, betID int64) {
	h.mocks.Insurance.On("GetActiveInsurance", mock.Anything, userID, betID).Return(nil, nil)
}

// ExpectLedgerTransfer sets up a ledger credit for the user and exact amount
func (h *MockHelper) ExpectLedgerTransfer(userID int64, amount string, reason entities.LedgerReason) {
	want := decimal.RequireFromString(amount)
	h.mocks.Ledger.On("Transfer", mock.Anything, mock.MatchedBy(func(t entities.LedgerTransfer) bool {
		return t.UserID == userID && t.Amount.Equal(want) && t.Reason == reason
	})).Return(nil).Once()
}

// ExpectEventPublish sets up event publisher mock expectations
func (h *MockHelper) ExpectEventPublish(eventType events.EventType) {
	h.mocks.EventPublisher.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		return e.Type() == eventType
	})).Return(nil)
}

// AllowAnyEvents accepts any published event without asserting on it
func (h *MockHelper) AllowAnyEvents() {
	h.mocks.EventPublisher.On("Publish", mock.Anything).Return(nil).Maybe()
}

// PublishedEvents returns the events of the given type published so far
func (m *TestMocks) PublishedEvents(eventType events.EventType) []events.Event {
	var out []events.Event
	for _, call := range m.EventPublisher.Calls {
		if call.Method != "Publish" {
			continue
		}
		if e, ok := call.Arguments.Get(0).(events.Event); ok && e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}
