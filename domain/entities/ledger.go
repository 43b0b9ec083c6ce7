package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LedgerReason describes why credits move to a user
type LedgerReason string

const (
	LedgerReasonBetWinnings        LedgerReason = "bet_winnings"
	LedgerReasonInsuranceRefund    LedgerReason = "insurance_refund"
	LedgerReasonDrawRefund         LedgerReason = "draw_refund"
	LedgerReasonNoWinnerRefund     LedgerReason = "no_winner_refund"
	LedgerReasonCancellationRefund LedgerReason = "cancellation_refund"
)

// LedgerTransfer is a credit movement requested from the ledger
type LedgerTransfer struct {
	UserID          int64           `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	Reason          LedgerReason    `json:"reason"`
	BetID           int64           `json:"bet_id"`
	ParticipationID int64           `json:"participation_id"`
	IdempotencyKey  string          `json:"idempotency_key"`
}

// LedgerIdempotencyKey identifies a settlement credit so the ledger can drop replays
func LedgerIdempotencyKey(betID, participationID int64, reason LedgerReason) string {
	return fmt.Sprintf("bet:%d:participation:%d:%s", betID, participationID, reason)
}

// InsurancePolicy is an insurance item consumed on a bet
type InsurancePolicy struct {
	ItemID           int64
	UserID           int64
	BetID            int64
	RefundPercentage int
}
