package domain

import "math/big"

// LiquidityChange is one control point on a position's timeline:
// from Block (inclusive) until the next point, the position held
// Liquidity and Owner could collect its fees.
type LiquidityChange struct {
	Block     uint64
	Liquidity *big.Int
	Owner     Owner
}

// Position is one LP deposit in a bounded tick range, identified by a
// unique key derived from the deposit salt. Tick bounds never change
// after creation; only liquidity and owner do.
type Position struct {
	Key       *big.Int
	TickLower int32
	TickUpper int32

	// Liquidity is the running sum of all modification deltas applied
	// so far, i.e. the depth at the last processed block.
	Liquidity *big.Int

	// LastOwner is the most recent known holder, carried across periods.
	LastOwner Owner

	// FeeGrowthInside0/1 accumulate the fee-growth consumed this period.
	// They are reporting-only and reset at every period boundary.
	FeeGrowthInside0 *big.Int
	FeeGrowthInside1 *big.Int

	// Timeline spans exactly the current period once built: the first
	// point sits at the period's start block, the last at its end block,
	// blocks non-decreasing in between.
	Timeline []LiquidityChange
}

// NewPosition creates an empty position for a key first seen this period.
func NewPosition(key *big.Int, tickLower, tickUpper int32) *Position {
	return &Position{
		Key:              new(big.Int).Set(key),
		TickLower:        tickLower,
		TickUpper:        tickUpper,
		Liquidity:        new(big.Int),
		LastOwner:        NoOwner(),
		FeeGrowthInside0: new(big.Int),
		FeeGrowthInside1: new(big.Int),
	}
}

// KeyString returns the canonical map key for the position.
func (p *Position) KeyString() string {
	return p.Key.String()
}

// Clone returns a deep copy with period-scoped state (fee growth
// accumulators and timeline) reset. Used when carrying positions from
// the previous period's checkpoint into a new run.
func (p *Position) Clone() *Position {
	return &Position{
		Key:              new(big.Int).Set(p.Key),
		TickLower:        p.TickLower,
		TickUpper:        p.TickUpper,
		Liquidity:        new(big.Int).Set(p.Liquidity),
		LastOwner:        p.LastOwner,
		FeeGrowthInside0: new(big.Int),
		FeeGrowthInside1: new(big.Int),
	}
}
