package services

import (
	"context"
	"testing"
	"time"

	"socialbets/domain/entities"
	"socialbets/domain/interfaces"

	"github.com/shopspring/decimal"
)

// ServiceTestFixture wires every domain service to one set of mocks and a fixed clock
type ServiceTestFixture struct {
	T      *testing.T
	Ctx    context.Context
	Mocks  *TestMocks
	Helper *MockHelper

	Settlement     interfaces.SettlementService
	Resolution     interfaces.ResolutionService
	Lifecycle      interfaces.BetLifecycleService
	Fulfillment    interfaces.FulfillmentService
	Reconciliation interfaces.ReconciliationService
}

// NewServiceTestFixture creates a fixture using the cancel zero vote policy
func NewServiceTestFixture(t *testing.T) *ServiceTestFixture {
	return NewServiceTestFixtureWithPolicy(t, interfaces.ZeroVotePolicyCancel)
}

// NewServiceTestFixtureWithPolicy creates a fixture with the given zero vote policy
func NewServiceTestFixtureWithPolicy(t *testing.T, policy interfaces.ZeroVotePolicy) *ServiceTestFixture {
	mocks := NewTestMocks()
	clock := func() time.Time { return TestNow }

	settlement := &settlementService{
		participationRepo: mocks.ParticipationRepo,
		ledger:            mocks.Ledger,
		insurance:         mocks.Insurance,
		eventPublisher:    mocks.EventPublisher,
		now:               clock,
	}

	resolution := NewResolutionService(
		mocks.BetRepo,
		mocks.ParticipationRepo,
		mocks.VoteRepo,
		mocks.Membership,
		settlement,
		mocks.EventPublisher,
		policy,
	).(*resolutionService)
	resolution.now = clock

	lifecycle := NewBetLifecycleService(mocks.BetRepo, settlement, mocks.EventPublisher).(*betLifecycleService)
	lifecycle.now = clock

	fulfillment := NewFulfillmentService(mocks.BetRepo, mocks.ParticipationRepo, mocks.ClaimRepo, mocks.EventPublisher).(*fulfillmentService)
	fulfillment.now = clock

	return &ServiceTestFixture{
		T:              t,
		Ctx:            context.Background(),
		Mocks:          mocks,
		Helper:         NewMockHelper(mocks),
		Settlement:     settlement,
		Resolution:     resolution,
		Lifecycle:      lifecycle,
		Fulfillment:    fulfillment,
		Reconciliation: NewReconciliationService(mocks.BetRepo, settlement),
	}
}

// AssertAllMocks verifies all mock expectations were met
func (f *ServiceTestFixture) AssertAllMocks() {
	f.Mocks.AssertAllExpectations(f.T)
}

// BetScenario builds a bet and its participations for a test
type BetScenario struct {
	Bet            *entities.Bet
	Participations []*entities.BetParticipation
	nextID         int64
}

// NewBetScenario returns a closed credit bet between "Team A" and "Team B"
// whose betting deadline has passed and whose resolve date has not
func NewBetScenario() *BetScenario {
	return &BetScenario{
		Bet: &entities.Bet{
			ID:               TestBetID,
			GroupID:          TestGroupID,
			CreatorID:        TestCreatorID,
			Title:            "Who wins the final?",
			BetType:          entities.BetTypeMultipleChoice,
			StakeType:        entities.StakeTypeCredit,
			MinStakeAmount:   decimal.NewNullDecimal(decimal.NewFromInt(10)),
			ResolutionMethod: entities.ResolutionMethodCreatorOnly,
			BettingDeadline:  TestNow.Add(-2 * time.Hour),
			ResolveDate:      TestNow.Add(24 * time.Hour),
			Options:          []string{"Team A", "Team B"},
			Status:           entities.BetStatusClosed,
			Version:          2,
			CreatedAt:        TestNow.Add(-48 * time.Hour),
		},
		nextID: 1,
	}
}

// WithStatus sets the bet status
func (s *BetScenario) WithStatus(status entities.BetStatus) *BetScenario {
	s.Bet.Status = status
	return s
}

// WithBetType sets the bet type
func (s *BetScenario) WithBetType(betType entities.BetType) *BetScenario {
	s.Bet.BetType = betType
	if betType != entities.BetTypeMultipleChoice {
		s.Bet.Options = nil
	}
	return s
}

// WithSocialStake turns the bet into a social bet
func (s *BetScenario) WithSocialStake(description string) *BetScenario {
	s.Bet.StakeType = entities.StakeTypeSocial
	s.Bet.SocialStakeDescription = &description
	s.Bet.MinStakeAmount = decimal.NullDecimal{}
	return s
}

// WithResolutionMethod sets who resolves the bet
func (s *BetScenario) WithResolutionMethod(method entities.ResolutionMethod) *BetScenario {
	s.Bet.ResolutionMethod = method
	return s
}

// WithResolveDatePassed moves the resolve date into the past
func (s *BetScenario) WithResolveDatePassed() *BetScenario {
	s.Bet.ResolveDate = TestNow.Add(-time.Minute)
	return s
}

// WithOutcome marks the bet resolved with the given outcome
func (s *BetScenario) WithOutcome(outcome entities.Outcome) *BetScenario {
	resolvedAt := TestNow.Add(-time.Hour)
	s.Bet.Status = entities.BetStatusResolved
	s.Bet.Outcome = outcome
	s.Bet.ResolvedAt = &resolvedAt
	return s
}

// WithChoice adds an active participation picking the 1-based option
func (s *BetScenario) WithChoice(userID int64, option int, amount string) *BetScenario {
	p := s.participation(userID, amount)
	p.ChosenOption = &option
	return s
}

// WithPrediction adds an active participation for a prediction bet
func (s *BetScenario) WithPrediction(userID int64, value, amount string) *BetScenario {
	p := s.participation(userID, amount)
	p.PredictedValue = &value
	return s
}

// WithCreatorRow adds the creator's marker participation
func (s *BetScenario) WithCreatorRow() *BetScenario {
	p := s.participation(s.Bet.CreatorID, "0")
	p.Status = entities.ParticipationStatusCreator
	return s
}

// Participation returns the participation of the user
func (s *BetScenario) Participation(userID int64) *entities.BetParticipation {
	for _, p := range s.Participations {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (s *BetScenario) participation(userID int64, amount string) *entities.BetParticipation {
	p := &entities.BetParticipation{
		ID:        s.nextID,
		BetID:     s.Bet.ID,
		UserID:    userID,
		BetAmount: decimal.RequireFromString(amount),
		Status:    entities.ParticipationStatusActive,
		CreatedAt: s.Bet.CreatedAt,
	}
	s.nextID++
	s.Participations = append(s.Participations, p)
	return p
}

// choiceVote builds an active vote for an option
func choiceVote(id, resolverID int64, option int) *entities.ResolutionVote {
	return &entities.ResolutionVote{ID: id, BetID: TestBetID, ResolverID: resolverID, ChosenOption: &option, CastAt: TestNow, IsActive: true}
}

// winnersVote builds an active vote naming winners
func winnersVote(id, resolverID int64, winners ...int64) *entities.ResolutionVote {
	return &entities.ResolutionVote{ID: id, BetID: TestBetID, ResolverID: resolverID, WinnerIDs: winners, CastAt: TestNow, IsActive: true}
}
