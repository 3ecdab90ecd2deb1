package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
)

// ErrUnavailable is returned when a read cannot be served at the
// requested block (pruned state, reverted helper, missing contract).
// The fee-growth adapter treats it as the trigger for its derived path;
// every other caller treats it as fatal.
var ErrUnavailable = errors.New("chain read unavailable")

// FeeGrowth carries the pool's two cumulative per-unit-liquidity fee
// counters. Both are 256-bit and wrap.
type FeeGrowth struct {
	Fee0 *uint256.Int
	Fee1 *uint256.Int
}

// ZeroFeeGrowth returns a zeroed counter pair.
func ZeroFeeGrowth() FeeGrowth {
	return FeeGrowth{Fee0: uint256.NewInt(0), Fee1: uint256.NewInt(0)}
}

// PoolReader provides all on-chain reads the engine consumes. Reads are
// pure for a fixed block number and safe to issue concurrently; retry
// policy is the implementation's concern, not the engine's.
type PoolReader interface {
	// ModificationEvents returns the pool's liquidity modifications in
	// [fromBlock, toBlock], sorted ascending by (block, log index).
	ModificationEvents(ctx context.Context, poolID common.Hash, fromBlock, toBlock uint64) ([]*domain.ModifyLiquidityEvent, error)

	// OwnerOf resolves the holder of a position key at a block.
	OwnerOf(ctx context.Context, key *big.Int, atBlock uint64) (domain.Owner, error)

	// IsPositionClosed reports whether the position's on-chain record
	// has been fully withdrawn and burned at the given block.
	IsPositionClosed(ctx context.Context, key *big.Int, atBlock uint64) (bool, error)

	// FeeGrowthInside queries the pool's fee-growth-inside helper for a
	// tick range. May fail with ErrUnavailable for out-of-range or
	// partially rescoped ticks.
	FeeGrowthInside(ctx context.Context, poolID common.Hash, tickLower, tickUpper int32, atBlock uint64) (FeeGrowth, error)

	// GlobalFeeGrowth returns the pool-wide cumulative counters.
	GlobalFeeGrowth(ctx context.Context, poolID common.Hash, atBlock uint64) (FeeGrowth, error)

	// CurrentTick returns the pool's active tick.
	CurrentTick(ctx context.Context, poolID common.Hash, atBlock uint64) (int32, error)

	// TickBitmapWord returns one 256-bit word of the pool's initialized
	// tick bitmap.
	TickBitmapWord(ctx context.Context, poolID common.Hash, wordIndex int16, atBlock uint64) (*uint256.Int, error)

	// FeeGrowthOutside returns the fee-growth-outside counters recorded
	// at a single initialized tick.
	FeeGrowthOutside(ctx context.Context, poolID common.Hash, tick int32, atBlock uint64) (FeeGrowth, error)
}
