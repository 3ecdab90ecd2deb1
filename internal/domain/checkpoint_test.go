package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestCheckpoint_ClonePositionsLeavesOriginalUntouched(t *testing.T) {
	cp := NewCheckpoint(common.HexToHash("0x01"), 3, 100, 199)
	pos := NewPosition(big.NewInt(7), -120, 120)
	pos.Liquidity = big.NewInt(5000)
	pos.LastOwner = OwnerOf(common.HexToAddress("0xa11ce"))
	pos.FeeGrowthInside0 = big.NewInt(42)
	pos.Timeline = []LiquidityChange{{Block: 100, Liquidity: big.NewInt(5000), Owner: pos.LastOwner}}
	cp.Positions[pos.KeyString()] = pos

	clones := cp.ClonePositions()

	clone := clones[pos.KeyString()]
	if clone == pos {
		t.Fatal("ClonePositions returned the original pointer")
	}
	if clone.Liquidity.Cmp(pos.Liquidity) != 0 {
		t.Errorf("clone liquidity = %s, want %s", clone.Liquidity, pos.Liquidity)
	}
	if clone.FeeGrowthInside0.Sign() != 0 || len(clone.Timeline) != 0 {
		t.Error("clone must reset period-scoped state")
	}

	// Mutating the clone must not reach back into the checkpoint.
	clone.Liquidity.SetInt64(0)
	clone.LastOwner = NoOwner()
	if pos.Liquidity.Cmp(big.NewInt(5000)) != 0 {
		t.Errorf("original liquidity = %s after clone mutation, want 5000", pos.Liquidity)
	}
	if !pos.LastOwner.Assigned() {
		t.Error("original owner cleared by clone mutation")
	}
}
