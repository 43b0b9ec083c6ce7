package services

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Stake is one winner's weight in a pool split
type Stake struct {
	ParticipationID int64
	Amount          decimal.Decimal
}

// DistributePool splits pool among winners proportionally to their stakes.
// Shares are floored to cents and the leftover cents go to the largest
// fractional remainders (ties by lower participation ID), so the shares
// always add up to the pool exactly. Winners with no stake at all split
// evenly.
func DistributePool(pool decimal.Decimal, winners []Stake) map[int64]decimal.Decimal {
	shares := make(map[int64]decimal.Decimal, len(winners))
	if len(winners) == 0 {
		return shares
	}
	if !pool.IsPositive() {
		for _, w := range winners {
			shares[w.ParticipationID] = decimal.Zero
		}
		return shares
	}

	weights := make([]decimal.Decimal, len(winners))
	totalWeight := decimal.Zero
	for i, w := range winners {
		weights[i] = w.Amount
		totalWeight = totalWeight.Add(w.Amount)
	}
	if !totalWeight.IsPositive() {
		for i := range weights {
			weights[i] = decimal.NewFromInt(1)
		}
		totalWeight = decimal.NewFromInt(int64(len(winners)))
	}

	type remainder struct {
		index int
		frac  decimal.Decimal
	}

	poolCents := pool.Mul(hundred).Floor()
	allocated := decimal.Zero
	cents := make([]decimal.Decimal, len(winners))
	remainders := make([]remainder, len(winners))

	for i := range winners {
		exact := poolCents.Mul(weights[i]).Div(totalWeight)
		cents[i] = exact.Floor()
		allocated = allocated.Add(cents[i])
		remainders[i] = remainder{index: i, frac: exact.Sub(cents[i])}
	}

	sort.SliceStable(remainders, func(a, b int) bool {
		cmp := remainders[a].frac.Cmp(remainders[b].frac)
		if cmp != 0 {
			return cmp > 0
		}
		return winners[remainders[a].index].ParticipationID < winners[remainders[b].index].ParticipationID
	})

	leftover := poolCents.Sub(allocated).IntPart()
	for i := 0; i < int(leftover) && i < len(remainders); i++ {
		idx := remainders[i].index
		cents[idx] = cents[idx].Add(decimal.NewFromInt(1))
	}

	for i, w := range winners {
		shares[w.ParticipationID] = cents[i].Div(hundred)
	}
	return shares
}
