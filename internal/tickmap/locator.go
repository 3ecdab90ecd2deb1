// Package tickmap locates initialized ticks by scanning the pool's
// tick bitmap word by word, the off-chain counterpart of the TickBitmap
// library's one-word search.
package tickmap

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/chain"
)

// DefaultSearchLimit caps how many bitmap words a single lookup may
// read. Exhausting it is not an error: the caller gets found=false and
// must treat the range as unusable.
const DefaultSearchLimit = 16

// Locator searches the initialized-tick bitmap of one pool.
type Locator struct {
	reader      chain.PoolReader
	poolID      common.Hash
	tickSpacing int32
	searchLimit int
}

// NewLocator creates a Locator with the default word-scan budget.
func NewLocator(reader chain.PoolReader, poolID common.Hash, tickSpacing int32) *Locator {
	return &Locator{
		reader:      reader,
		poolID:      poolID,
		tickSpacing: tickSpacing,
		searchLimit: DefaultSearchLimit,
	}
}

// WithSearchLimit overrides the word-scan budget.
func (l *Locator) WithSearchLimit(limit int) *Locator {
	l.searchLimit = limit
	return l
}

// Compress maps a tick to its per-spacing coordinate, rounding toward
// negative infinity so negative ticks land in the correct word.
func Compress(tick, tickSpacing int32) int32 {
	compressed := tick / tickSpacing
	if tick < 0 && tick%tickSpacing != 0 {
		compressed--
	}
	return compressed
}

// WordAndBit splits a compressed tick into its bitmap word index and
// bit position within the 256-bit word.
func WordAndBit(compressed int32) (int16, uint8) {
	word := int16(compressed >> 8)
	bit := uint8(compressed - int32(word)*256)
	return word, bit
}

// NearestInitializedBelow finds the closest initialized tick at or
// below the starting tick. found is false when the budget is exhausted
// without a hit.
func (l *Locator) NearestInitializedBelow(ctx context.Context, tick int32, atBlock uint64) (next int32, found bool, err error) {
	word, bit := WordAndBit(Compress(tick, l.tickSpacing))

	startBit := int(bit)
	for scanned := 0; scanned < l.searchLimit; scanned++ {
		w, err := l.reader.TickBitmapWord(ctx, l.poolID, word, atBlock)
		if err != nil {
			return 0, false, err
		}
		for b := startBit; b >= 0; b-- {
			if w[b/64]>>(uint(b)%64)&1 != 0 {
				return (int32(word)*256 + int32(b)) * l.tickSpacing, true, nil
			}
		}
		word--
		startBit = 255
	}
	return 0, false, nil
}

// NearestInitializedAbove finds the closest initialized tick at or
// above the starting tick.
func (l *Locator) NearestInitializedAbove(ctx context.Context, tick int32, atBlock uint64) (next int32, found bool, err error) {
	word, bit := WordAndBit(Compress(tick, l.tickSpacing))

	startBit := int(bit)
	for scanned := 0; scanned < l.searchLimit; scanned++ {
		w, err := l.reader.TickBitmapWord(ctx, l.poolID, word, atBlock)
		if err != nil {
			return 0, false, err
		}
		for b := startBit; b <= 255; b++ {
			if w[b/64]>>(uint(b)%64)&1 != 0 {
				return (int32(word)*256 + int32(b)) * l.tickSpacing, true, nil
			}
		}
		word++
		startBit = 0
	}
	return 0, false, nil
}
