package entities

import (
	"time"
)

// FulfillmentStatus is the aggregate state of a social bet's stake obligations
type FulfillmentStatus string

const (
	FulfillmentStatusPending            FulfillmentStatus = "pending"
	FulfillmentStatusPartiallyFulfilled FulfillmentStatus = "partially_fulfilled"
	FulfillmentStatusFulfilled          FulfillmentStatus = "fulfilled"
)

// LoserFulfillmentClaim is a loser's statement that they paid their social stake
type LoserFulfillmentClaim struct {
	ID               int64     `db:"id"`
	BetID            int64     `db:"bet_id"`
	LoserID          int64     `db:"loser_id"`
	ClaimedAt        time.Time `db:"claimed_at"`
	ProofURL         *string   `db:"proof_url"`
	ProofDescription *string   `db:"proof_description"`
}

// LoserFulfillment pairs a loser with their claim, if any
type LoserFulfillment struct {
	LoserID int64                  `json:"loser_id"`
	Claim   *LoserFulfillmentClaim `json:"claim,omitempty"`
}

// Claimed reports whether the loser has claimed fulfillment
func (l LoserFulfillment) Claimed() bool {
	return l.Claim != nil
}

// FulfillmentSummary is the derived fulfillment view of a resolved social bet
type FulfillmentSummary struct {
	BetID             int64              `json:"bet_id"`
	Status            FulfillmentStatus  `json:"status"`
	TotalLosers       int                `json:"total_losers"`
	ConfirmationCount int                `json:"confirmation_count"`
	Losers            []LoserFulfillment `json:"losers"`
}

// DeriveFulfillmentStatus computes the aggregate status from claim and loser counts
func DeriveFulfillmentStatus(claims, totalLosers int) FulfillmentStatus {
	switch {
	case totalLosers > 0 && claims >= totalLosers:
		return FulfillmentStatusFulfilled
	case claims > 0:
		return FulfillmentStatusPartiallyFulfilled
	default:
		return FulfillmentStatusPending
	}
}

// NewFulfillmentSummary builds the summary for the given losers and claims
func NewFulfillmentSummary(betID int64, loserIDs []int64, claims []*LoserFulfillmentClaim) *FulfillmentSummary {
	byLoser := make(map[int64]*LoserFulfillmentClaim, len(claims))
	for _, c := range claims {
		byLoser[c.LoserID] = c
	}

	summary := &FulfillmentSummary{
		BetID:       betID,
		TotalLosers: len(loserIDs),
		Losers:      make([]LoserFulfillment, 0, len(loserIDs)),
	}
	for _, id := range loserIDs {
		entry := LoserFulfillment{LoserID: id, Claim: byLoser[id]}
		if entry.Claimed() {
			summary.ConfirmationCount++
		}
		summary.Losers = append(summary.Losers, entry)
	}
	summary.Status = DeriveFulfillmentStatus(summary.ConfirmationCount, summary.TotalLosers)
	return summary
}
