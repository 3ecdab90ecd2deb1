package attribution

import (
	"context"
	"sync"

	"github.com/alitto/pond/v2"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/feegrowth"
)

type growthKey struct {
	lower, upper int32
	block        uint64
}

// growthFunc resolves fee growth inside a range at a block, served from
// the prefetched cache when possible.
type growthFunc func(ctx context.Context, lower, upper int32, block uint64) (feegrowth.Result, error)

// prefetch issues all fee-growth reads the sub-period walk will need in
// parallel. The reads are pure for a fixed block, so no ordering is
// required among them; only their use in the sequential walk is ordered.
func (e *Engine) prefetch(ctx context.Context, positions map[string]*domain.Position, startBlock, endBlock uint64) (growthFunc, error) {
	keys := make(map[growthKey]struct{})
	for _, pos := range positions {
		for i := 1; i < len(pos.Timeline); i++ {
			prev := pos.Timeline[i-1]
			curr := pos.Timeline[i]
			if prev.Liquidity.Sign() == 0 {
				continue
			}
			subStart := prev.Block
			subEnd := curr.Block
			if curr.Block > subStart {
				subEnd = curr.Block - 1
			}
			if subEnd <= subStart {
				continue
			}
			keys[growthKey{pos.TickLower, pos.TickUpper, subStart}] = struct{}{}
			keys[growthKey{pos.TickLower, pos.TickUpper, subEnd}] = struct{}{}
		}
	}

	results := make(map[growthKey]feegrowth.Result, len(keys))
	if len(keys) > 0 {
		var mu sync.Mutex
		pool := pond.NewPool(e.workers)
		defer pool.StopAndWait()

		group := pool.NewGroupContext(ctx)
		groupCtx := group.Context()
		for k := range keys {
			group.SubmitErr(func() error {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				res, err := e.adapter.Inside(groupCtx, k.lower, k.upper, k.block)
				if err != nil {
					return err
				}
				mu.Lock()
				results[k] = res
				mu.Unlock()
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return nil, err
		}
	}

	return func(ctx context.Context, lower, upper int32, block uint64) (feegrowth.Result, error) {
		if res, ok := results[growthKey{lower, upper, block}]; ok {
			return res, nil
		}
		return e.adapter.Inside(ctx, lower, upper, block)
	}, nil
}
