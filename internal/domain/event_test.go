package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func ev(block uint64, logIndex uint) *ModifyLiquidityEvent {
	return &ModifyLiquidityEvent{
		Key:            big.NewInt(1),
		LiquidityDelta: big.NewInt(1),
		Block:          block,
		LogIndex:       logIndex,
	}
}

func TestSortModifyEvents(t *testing.T) {
	events := []*ModifyLiquidityEvent{ev(30, 0), ev(10, 2), ev(10, 1), ev(20, 0)}
	SortModifyEvents(events)

	want := []struct {
		block    uint64
		logIndex uint
	}{{10, 1}, {10, 2}, {20, 0}, {30, 0}}
	for i, w := range want {
		if events[i].Block != w.block || events[i].LogIndex != w.logIndex {
			t.Errorf("events[%d] = (%d, %d), want (%d, %d)",
				i, events[i].Block, events[i].LogIndex, w.block, w.logIndex)
		}
	}
}

func TestValidateModifyEventOrdering(t *testing.T) {
	if !ValidateModifyEventOrdering(nil) {
		t.Error("empty list should validate")
	}
	if !ValidateModifyEventOrdering([]*ModifyLiquidityEvent{ev(10, 0), ev(10, 1), ev(20, 0)}) {
		t.Error("ordered list rejected")
	}
	if ValidateModifyEventOrdering([]*ModifyLiquidityEvent{ev(20, 0), ev(10, 0)}) {
		t.Error("unordered list accepted")
	}
	if ValidateModifyEventOrdering([]*ModifyLiquidityEvent{ev(10, 0), ev(10, 0)}) {
		t.Error("duplicate (block, log_index) accepted")
	}
}

func TestOwner_ZeroAddressIsAssigned(t *testing.T) {
	// A position held by the zero address is still held; only the zero
	// value of Owner means unknown.
	o := OwnerOf(common.Address{})
	if !o.Assigned() {
		t.Error("zero-address owner reported as unassigned")
	}
	if NoOwner().Assigned() {
		t.Error("NoOwner reported as assigned")
	}
}

func TestPosition_CloneResetsPeriodState(t *testing.T) {
	p := NewPosition(big.NewInt(7), -60, 60)
	p.Liquidity = big.NewInt(5000)
	p.FeeGrowthInside0 = big.NewInt(123)
	p.Timeline = []LiquidityChange{{Block: 10, Liquidity: big.NewInt(5000)}}

	c := p.Clone()
	if c.Liquidity.Cmp(p.Liquidity) != 0 {
		t.Error("liquidity not carried")
	}
	if c.FeeGrowthInside0.Sign() != 0 {
		t.Error("fee growth accumulator not reset")
	}
	if len(c.Timeline) != 0 {
		t.Error("timeline not reset")
	}

	c.Liquidity.SetInt64(0)
	if p.Liquidity.Sign() == 0 {
		t.Error("clone shares liquidity with the original")
	}
}
