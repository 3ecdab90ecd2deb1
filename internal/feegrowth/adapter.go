// Package feegrowth answers "how much fee growth accrued inside a tick
// range as of a block", preferring the pool's own helper and falling
// back to the manual derivation when the helper cannot answer.
package feegrowth

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/chain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/observability"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/tickmap"
)

// Source records which path produced a result.
type Source int

const (
	// Direct means the pool's fee-growth-inside helper answered.
	Direct Source = iota
	// Derived means the answer was recomputed from global growth and
	// per-tick outside counters.
	Derived
)

// Result is a fee-growth-inside answer plus its provenance. Callers do
// not need to branch on Source; it exists so tests and logs can tell
// the paths apart.
type Result struct {
	Growth chain.FeeGrowth
	Source Source
}

// Adapter resolves fee growth inside tick ranges for one pool.
type Adapter struct {
	reader  chain.PoolReader
	locator *tickmap.Locator
	poolID  common.Hash
	logger  *zap.Logger
}

// NewAdapter creates an Adapter for a pool.
func NewAdapter(reader chain.PoolReader, locator *tickmap.Locator, poolID common.Hash, logger *zap.Logger) *Adapter {
	return &Adapter{
		reader:  reader,
		locator: locator,
		poolID:  poolID,
		logger:  logger,
	}
}

// Inside returns the cumulative fee growth inside [tickLower, tickUpper]
// at a block. A failing helper call triggers the derived path; any
// other read failure is returned to the caller as fatal.
func (a *Adapter) Inside(ctx context.Context, tickLower, tickUpper int32, atBlock uint64) (Result, error) {
	growth, err := a.reader.FeeGrowthInside(ctx, a.poolID, tickLower, tickUpper, atBlock)
	if err == nil {
		return Result{Growth: growth, Source: Direct}, nil
	}
	if !errors.Is(err, chain.ErrUnavailable) {
		return Result{}, fmt.Errorf("fee growth inside (%d,%d)@%d: %w", tickLower, tickUpper, atBlock, err)
	}

	observability.RecordDerivedFallback()
	a.logger.Debug("direct fee growth query failed, deriving",
		zap.Int32("tickLower", tickLower),
		zap.Int32("tickUpper", tickUpper),
		zap.Uint64("block", atBlock),
		zap.Error(err),
	)

	growth, err = a.derive(ctx, tickLower, tickUpper, atBlock)
	if err != nil {
		return Result{}, err
	}
	return Result{Growth: growth, Source: Derived}, nil
}

// derive recomputes fee growth inside a range the way the pool contract
// does it: global growth minus the growth recorded below the lower
// boundary and above the upper boundary. Boundaries are the nearest
// initialized ticks, since only those carry outside counters.
func (a *Adapter) derive(ctx context.Context, tickLower, tickUpper int32, atBlock uint64) (chain.FeeGrowth, error) {
	currentTick, err := a.reader.CurrentTick(ctx, a.poolID, atBlock)
	if err != nil {
		return chain.FeeGrowth{}, fmt.Errorf("current tick@%d: %w", atBlock, err)
	}
	global, err := a.reader.GlobalFeeGrowth(ctx, a.poolID, atBlock)
	if err != nil {
		return chain.FeeGrowth{}, fmt.Errorf("global fee growth@%d: %w", atBlock, err)
	}

	lowerTick, lowerFound, err := a.locator.NearestInitializedBelow(ctx, tickLower, atBlock)
	if err != nil {
		return chain.FeeGrowth{}, err
	}
	upperTick, upperFound, err := a.locator.NearestInitializedAbove(ctx, tickUpper, atBlock)
	if err != nil {
		return chain.FeeGrowth{}, err
	}

	// Without both boundaries (or with a degenerate range after
	// relocation) there is no meaningful inside range to account.
	if !lowerFound || !upperFound || lowerTick >= upperTick {
		a.logger.Debug("tick range unusable, zero fee growth",
			zap.Int32("tickLower", tickLower),
			zap.Int32("tickUpper", tickUpper),
			zap.Bool("lowerFound", lowerFound),
			zap.Bool("upperFound", upperFound),
		)
		return chain.ZeroFeeGrowth(), nil
	}

	outsideLower, err := a.reader.FeeGrowthOutside(ctx, a.poolID, lowerTick, atBlock)
	if err != nil {
		return chain.FeeGrowth{}, fmt.Errorf("fee growth outside %d@%d: %w", lowerTick, atBlock, err)
	}
	outsideUpper, err := a.reader.FeeGrowthOutside(ctx, a.poolID, upperTick, atBlock)
	if err != nil {
		return chain.FeeGrowth{}, fmt.Errorf("fee growth outside %d@%d: %w", upperTick, atBlock, err)
	}

	return chain.FeeGrowth{
		Fee0: insideCounter(global.Fee0, outsideLower.Fee0, outsideUpper.Fee0, currentTick, lowerTick, upperTick),
		Fee1: insideCounter(global.Fee1, outsideLower.Fee1, outsideUpper.Fee1, currentTick, lowerTick, upperTick),
	}, nil
}

// insideCounter applies the below/above selection for one currency.
// Which side of a boundary the "outside" counter describes flips each
// time price crosses it, so the selection depends on the current tick.
// All arithmetic wraps mod 2^256.
func insideCounter(global, outsideLower, outsideUpper *uint256.Int, currentTick, lowerTick, upperTick int32) *uint256.Int {
	below := new(uint256.Int)
	if currentTick >= lowerTick {
		below.Set(outsideLower)
	} else {
		below.Sub(global, outsideLower)
	}

	above := new(uint256.Int)
	if currentTick < upperTick {
		above.Set(outsideUpper)
	} else {
		above.Sub(global, outsideUpper)
	}

	inside := new(uint256.Int).Sub(global, below)
	return inside.Sub(inside, above)
}
