package domain

import (
	"math/big"
	"sort"
)

// ModifyLiquidityEvent is one on-chain liquidity modification, validated
// at the boundary when read from the event log so the core never
// re-checks its shape.
type ModifyLiquidityEvent struct {
	Key            *big.Int // position key derived from the deposit salt
	TickLower      int32
	TickUpper      int32
	LiquidityDelta *big.Int // signed
	Block          uint64
	LogIndex       uint
}

// SortModifyEvents orders events by (block ASC, log_index ASC), the
// deterministic on-chain order the timeline builder requires.
func SortModifyEvents(events []*ModifyLiquidityEvent) {
	sort.Slice(events, func(i, j int) bool {
		return compareModifyEvents(events[i], events[j]) < 0
	})
}

// ValidateModifyEventOrdering checks events are strictly ordered by
// (block, log_index).
func ValidateModifyEventOrdering(events []*ModifyLiquidityEvent) bool {
	for i := 1; i < len(events); i++ {
		if compareModifyEvents(events[i-1], events[i]) >= 0 {
			return false
		}
	}
	return true
}

// compareModifyEvents returns negative/zero/positive for a<b, a==b, a>b.
// Order: (block ASC, log_index ASC)
func compareModifyEvents(a, b *ModifyLiquidityEvent) int {
	if a.Block != b.Block {
		if a.Block < b.Block {
			return -1
		}
		return 1
	}
	if a.LogIndex != b.LogIndex {
		if a.LogIndex < b.LogIndex {
			return -1
		}
		return 1
	}
	return 0
}
