// Package stub provides a deterministic in-memory chain.PoolReader for
// tests and fixture runs.
package stub

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/chain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/tickmap"
)

type insideKey struct {
	lower, upper int32
	block        uint64
}

type outsideKey struct {
	tick  int32
	block uint64
}

type ownerAt struct {
	block uint64
	addr  common.Address
}

// Reader is an in-memory pool populated by test setup code.
type Reader struct {
	PoolID      common.Hash
	TickSpacing int32

	// DisableInsideHelper forces the direct fee-growth query to fail,
	// exercising the adapter's derived path.
	DisableInsideHelper bool

	// WordReads counts TickBitmapWord calls across all lookups.
	WordReads int

	events  []*domain.ModifyLiquidityEvent
	owners  map[string][]ownerAt
	closed  map[string]bool
	inside  map[insideKey]chain.FeeGrowth
	outside map[outsideKey]chain.FeeGrowth
	global  map[uint64]chain.FeeGrowth
	ticks   map[uint64]int32
	words   map[int16]*uint256.Int
}

// NewReader creates an empty stub pool.
func NewReader(poolID common.Hash, tickSpacing int32) *Reader {
	return &Reader{
		PoolID:      poolID,
		TickSpacing: tickSpacing,
		owners:      make(map[string][]ownerAt),
		closed:      make(map[string]bool),
		inside:      make(map[insideKey]chain.FeeGrowth),
		outside:     make(map[outsideKey]chain.FeeGrowth),
		global:      make(map[uint64]chain.FeeGrowth),
		ticks:       make(map[uint64]int32),
		words:       make(map[int16]*uint256.Int),
	}
}

// Compile-time interface check.
var _ chain.PoolReader = (*Reader)(nil)

// AddEvent appends a modification event.
func (r *Reader) AddEvent(ev *domain.ModifyLiquidityEvent) {
	r.events = append(r.events, ev)
}

// SetOwner records that the key is held by addr from block onward.
func (r *Reader) SetOwner(key *big.Int, fromBlock uint64, addr common.Address) {
	k := key.String()
	r.owners[k] = append(r.owners[k], ownerAt{block: fromBlock, addr: addr})
	sort.Slice(r.owners[k], func(i, j int) bool {
		return r.owners[k][i].block < r.owners[k][j].block
	})
}

// SetClosed marks a key's on-chain record as fully withdrawn.
func (r *Reader) SetClosed(key *big.Int, closed bool) {
	r.closed[key.String()] = closed
}

// SetFeeGrowthInside records the direct helper's answer for a range at
// a block.
func (r *Reader) SetFeeGrowthInside(tickLower, tickUpper int32, atBlock uint64, fee0, fee1 *uint256.Int) {
	r.inside[insideKey{tickLower, tickUpper, atBlock}] = chain.FeeGrowth{Fee0: fee0, Fee1: fee1}
}

// SetFeeGrowthOutside records the per-tick counters at a block.
func (r *Reader) SetFeeGrowthOutside(tick int32, atBlock uint64, fee0, fee1 *uint256.Int) {
	r.outside[outsideKey{tick, atBlock}] = chain.FeeGrowth{Fee0: fee0, Fee1: fee1}
}

// SetGlobalFeeGrowth records the pool-wide counters at a block.
func (r *Reader) SetGlobalFeeGrowth(atBlock uint64, fee0, fee1 *uint256.Int) {
	r.global[atBlock] = chain.FeeGrowth{Fee0: fee0, Fee1: fee1}
}

// SetCurrentTick records the active tick at a block.
func (r *Reader) SetCurrentTick(atBlock uint64, tick int32) {
	r.ticks[atBlock] = tick
}

// InitTick flips the bitmap bit for a tick (must be a multiple of the
// pool's tick spacing).
func (r *Reader) InitTick(tick int32) {
	word, bit := tickmap.WordAndBit(tickmap.Compress(tick, r.TickSpacing))
	w, ok := r.words[word]
	if !ok {
		w = uint256.NewInt(0)
		r.words[word] = w
	}
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bit))
	w.Or(w, mask)
}

// ModificationEvents returns the pool's events within the block range.
func (r *Reader) ModificationEvents(_ context.Context, poolID common.Hash, fromBlock, toBlock uint64) ([]*domain.ModifyLiquidityEvent, error) {
	if poolID != r.PoolID {
		return nil, nil
	}
	var out []*domain.ModifyLiquidityEvent
	for _, ev := range r.events {
		if ev.Block >= fromBlock && ev.Block <= toBlock {
			out = append(out, ev)
		}
	}
	domain.SortModifyEvents(out)
	return out, nil
}

// OwnerOf resolves the most recent holder recorded at or before atBlock.
func (r *Reader) OwnerOf(_ context.Context, key *big.Int, atBlock uint64) (domain.Owner, error) {
	history := r.owners[key.String()]
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].block <= atBlock {
			return domain.OwnerOf(history[i].addr), nil
		}
	}
	return domain.NoOwner(), nil
}

// IsPositionClosed reports the configured closed flag.
func (r *Reader) IsPositionClosed(_ context.Context, key *big.Int, _ uint64) (bool, error) {
	return r.closed[key.String()], nil
}

// FeeGrowthInside serves configured direct answers, or fails when the
// helper is disabled or no answer was recorded.
func (r *Reader) FeeGrowthInside(_ context.Context, _ common.Hash, tickLower, tickUpper int32, atBlock uint64) (chain.FeeGrowth, error) {
	if r.DisableInsideHelper {
		return chain.FeeGrowth{}, fmt.Errorf("%w: inside helper disabled", chain.ErrUnavailable)
	}
	fg, ok := r.inside[insideKey{tickLower, tickUpper, atBlock}]
	if !ok {
		return chain.FeeGrowth{}, fmt.Errorf("%w: no inside answer for (%d,%d)@%d",
			chain.ErrUnavailable, tickLower, tickUpper, atBlock)
	}
	return fg, nil
}

// GlobalFeeGrowth returns the recorded counters, zero when unset.
func (r *Reader) GlobalFeeGrowth(_ context.Context, _ common.Hash, atBlock uint64) (chain.FeeGrowth, error) {
	if fg, ok := r.global[atBlock]; ok {
		return fg, nil
	}
	return chain.ZeroFeeGrowth(), nil
}

// CurrentTick returns the recorded tick, zero when unset.
func (r *Reader) CurrentTick(_ context.Context, _ common.Hash, atBlock uint64) (int32, error) {
	return r.ticks[atBlock], nil
}

// TickBitmapWord returns one bitmap word, counting the read.
func (r *Reader) TickBitmapWord(_ context.Context, _ common.Hash, wordIndex int16, _ uint64) (*uint256.Int, error) {
	r.WordReads++
	if w, ok := r.words[wordIndex]; ok {
		return new(uint256.Int).Set(w), nil
	}
	return uint256.NewInt(0), nil
}

// FeeGrowthOutside returns the recorded per-tick counters, zero when unset.
func (r *Reader) FeeGrowthOutside(_ context.Context, _ common.Hash, tick int32, atBlock uint64) (chain.FeeGrowth, error) {
	if fg, ok := r.outside[outsideKey{tick, atBlock}]; ok {
		return fg, nil
	}
	return chain.ZeroFeeGrowth(), nil
}
