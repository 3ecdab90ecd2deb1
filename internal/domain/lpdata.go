package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// LPData accumulates one owner's fee totals for a single period.
// Created the first time an owner is credited, updated additively,
// never deleted within a run.
type LPData struct {
	Fees0 *big.Int // fees earned in currency0
	Fees1 *big.Int // fees earned in currency1

	// FeesDenominator is the two-currency total expressed in the
	// program's denominator currency, filled in by the converter.
	FeesDenominator *big.Int

	// Reward is this LP's pro-rata slice of the period reward.
	Reward *big.Int
}

// NewLPData returns a zeroed accumulator.
func NewLPData() *LPData {
	return &LPData{
		Fees0:           new(big.Int),
		Fees1:           new(big.Int),
		FeesDenominator: new(big.Int),
		Reward:          new(big.Int),
	}
}

// LPMap keys per-owner accumulators by holder address.
type LPMap map[common.Address]*LPData

// Credit adds fee amounts to the owner's accumulator, creating it on
// first touch.
func (m LPMap) Credit(owner common.Address, fees0, fees1 *big.Int) *LPData {
	lp, ok := m[owner]
	if !ok {
		lp = NewLPData()
		m[owner] = lp
	}
	lp.Fees0.Add(lp.Fees0, fees0)
	lp.Fees1.Add(lp.Fees1, fees1)
	return lp
}
