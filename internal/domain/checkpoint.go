package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// Checkpoint is the persisted unit of state at a period boundary.
// A run owns its checkpoint exclusively; the next period's run copies
// the position map and discards the period-scoped LP map.
type Checkpoint struct {
	PoolID      common.Hash
	Period      uint64
	StartBlock  uint64
	EndBlock    uint64
	Currency0   common.Address
	Currency1   common.Address
	Denominator common.Address

	// Positions is keyed by Position.KeyString().
	Positions map[string]*Position

	// LP holds the period's reward accumulators, keyed by holder.
	LP LPMap
}

// NewCheckpoint returns an empty checkpoint for the given pool/period.
func NewCheckpoint(poolID common.Hash, period, startBlock, endBlock uint64) *Checkpoint {
	return &Checkpoint{
		PoolID:     poolID,
		Period:     period,
		StartBlock: startBlock,
		EndBlock:   endBlock,
		Positions:  make(map[string]*Position),
		LP:         make(LPMap),
	}
}

// ClonePositions returns a deep copy of the position map with
// period-scoped state reset, ready for the next period's run.
func (c *Checkpoint) ClonePositions() map[string]*Position {
	out := make(map[string]*Position, len(c.Positions))
	for k, p := range c.Positions {
		out[k] = p.Clone()
	}
	return out
}
