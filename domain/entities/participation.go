package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParticipationStatus represents the state of a user's stake in a bet
type ParticipationStatus string

const (
	ParticipationStatusActive    ParticipationStatus = "active"
	ParticipationStatusWon       ParticipationStatus = "won"
	ParticipationStatusLost      ParticipationStatus = "lost"
	ParticipationStatusRefunded  ParticipationStatus = "refunded"
	ParticipationStatusCancelled ParticipationStatus = "cancelled"
	ParticipationStatusCreator   ParticipationStatus = "creator"
)

// BetParticipation is one user's stake in a bet
type BetParticipation struct {
	ID     int64 `db:"id"`
	BetID  int64 `db:"bet_id"`
	UserID int64 `db:"user_id"`

	ChosenOption   *int    `db:"chosen_option"`
	PredictedValue *string `db:"predicted_value"`

	BetAmount         decimal.Decimal `db:"bet_amount"`
	PotentialWinnings decimal.Decimal `db:"potential_winnings"`
	ActualWinnings    decimal.Decimal `db:"actual_winnings"`

	Status ParticipationStatus `db:"status"`
	Result ParticipationResult `db:"result"`

	InsuranceApplied          bool            `db:"insurance_applied"`
	InsuranceRefundPercentage *int            `db:"insurance_refund_percentage"`
	InsuranceRefundAmount     decimal.Decimal `db:"insurance_refund_amount"`
	InsuranceItemID           *int64          `db:"insurance_item_id"`

	SettledAt *time.Time `db:"settled_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// IsSettled reports whether settlement already touched this participation
func (p *BetParticipation) IsSettled() bool {
	return p.SettledAt != nil
}

// IsActive reports whether the participation still has a live stake
func (p *BetParticipation) IsActive() bool {
	return p.Status == ParticipationStatusActive
}

// IsStaked reports whether the participation takes part in settlement.
// Creator marker rows and withdrawn participations do not.
func (p *BetParticipation) IsStaked() bool {
	return p.Status != ParticipationStatusCreator && p.Status != ParticipationStatusCancelled
}

// IsLoser reports whether the participation was settled as lost
func (p *BetParticipation) IsLoser() bool {
	return p.Status == ParticipationStatusLost
}

// IsRefundable reports whether a cancellation should return this stake
func (p *BetParticipation) IsRefundable() bool {
	return !p.IsSettled() && (p.Status == ParticipationStatusActive || p.Status == ParticipationStatusCreator)
}

// ComputeInsuranceRefund returns betAmount * pct / 100 rounded half-up to cents
func ComputeInsuranceRefund(betAmount decimal.Decimal, pct int) decimal.Decimal {
	if pct <= 0 {
		return decimal.Zero
	}
	if pct > 100 {
		pct = 100
	}
	return betAmount.Mul(decimal.NewFromInt(int64(pct))).Div(decimal.NewFromInt(100)).Round(2)
}

// ApplyInsurance records an insurance policy on the participation
func (p *BetParticipation) ApplyInsurance(policy *InsurancePolicy) {
	pct := policy.RefundPercentage
	itemID := policy.ItemID
	p.InsuranceApplied = true
	p.InsuranceRefundPercentage = &pct
	p.InsuranceItemID = &itemID
	p.InsuranceRefundAmount = ComputeInsuranceRefund(p.BetAmount, pct)
}

// MarkWon settles the participation as a win paying the given amount
func (p *BetParticipation) MarkWon(payout decimal.Decimal, at time.Time) {
	p.settle(ParticipationStatusWon, ResultWin, payout, at)
}

// MarkLost settles the participation as a loss; an insured loser keeps the refund
func (p *BetParticipation) MarkLost(at time.Time) {
	payout := decimal.Zero
	if p.InsuranceApplied {
		payout = p.InsuranceRefundAmount
	}
	p.settle(ParticipationStatusLost, ResultLoss, payout, at)
}

// MarkRefunded settles the participation by returning the full stake
func (p *BetParticipation) MarkRefunded(result ParticipationResult, at time.Time) {
	p.settle(ParticipationStatusRefunded, result, p.BetAmount, at)
}

func (p *BetParticipation) settle(status ParticipationStatus, result ParticipationResult, payout decimal.Decimal, at time.Time) {
	settledAt := at
	p.Status = status
	p.Result = result
	p.ActualWinnings = payout
	p.SettledAt = &settledAt
}
