// Package attribution walks position timelines sub-period by sub-period
// and credits the fee revenue of each sub-period to the LP who held the
// position at its end.
package attribution

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/feegrowth"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/observability"
)

// DefaultWorkers bounds the concurrent fee-growth reads issued while
// prefetching oracle answers.
const DefaultWorkers = 8

// Engine attributes one period's fees across all positions.
type Engine struct {
	adapter *feegrowth.Adapter
	logger  *zap.Logger
	workers int
}

// NewEngine creates an Engine with the default prefetch concurrency.
func NewEngine(adapter *feegrowth.Adapter, logger *zap.Logger) *Engine {
	return &Engine{adapter: adapter, logger: logger, workers: DefaultWorkers}
}

// WithWorkers overrides the prefetch concurrency.
func (e *Engine) WithWorkers(n int) *Engine {
	e.workers = n
	return e
}

// Attribute processes every position's timeline and returns the per-LP
// fee accumulators. Position FeeGrowthInside0/1 fields are filled as
// running sums for reporting; they do not feed back into the result.
func (e *Engine) Attribute(ctx context.Context, positions map[string]*domain.Position, startBlock, endBlock uint64) (domain.LPMap, error) {
	lp := make(domain.LPMap)
	if startBlock == endBlock {
		return lp, nil
	}

	growthAt, err := e.prefetch(ctx, positions, startBlock, endBlock)
	if err != nil {
		return nil, err
	}

	credited := 0
	for key, pos := range positions {
		for i := 1; i < len(pos.Timeline); i++ {
			prev := pos.Timeline[i-1]
			curr := pos.Timeline[i]

			if prev.Liquidity.Sign() == 0 {
				continue
			}

			subStart := prev.Block
			subEnd := curr.Block
			if curr.Block > subStart {
				// The boundary block belongs to the next sub-period.
				subEnd = curr.Block - 1
			}
			if subEnd <= subStart {
				continue
			}

			startGrowth, err := growthAt(ctx, pos.TickLower, pos.TickUpper, subStart)
			if err != nil {
				return nil, err
			}
			endGrowth, err := growthAt(ctx, pos.TickLower, pos.TickUpper, subEnd)
			if err != nil {
				return nil, err
			}

			delta0 := feegrowth.Delta(startGrowth.Growth.Fee0, endGrowth.Growth.Fee0)
			delta1 := feegrowth.Delta(startGrowth.Growth.Fee1, endGrowth.Growth.Fee1)

			fees0 := feegrowth.FeeAmount(prev.Liquidity, delta0)
			fees1 := feegrowth.FeeAmount(prev.Liquidity, delta1)

			pos.FeeGrowthInside0.Add(pos.FeeGrowthInside0, delta0.ToBig())
			pos.FeeGrowthInside1.Add(pos.FeeGrowthInside1, delta1.ToBig())

			// The holder at the end of the sub-period is the one who
			// could actually collect these fees.
			addr, assigned := curr.Owner.Address()
			if !assigned {
				if fees0.Sign() != 0 || fees1.Sign() != 0 {
					e.logger.Warn("dropping fees for unowned sub-period",
						zap.String("position", key),
						zap.Uint64("subStart", subStart),
						zap.Uint64("subEnd", subEnd),
					)
				}
				continue
			}
			lp.Credit(addr, fees0, fees1)
			credited++
		}
	}
	observability.RecordAttribution(len(positions), credited)

	t0, t1 := totalFees(lp)
	e.logger.Info("fee attribution complete",
		zap.Int("positions", len(positions)),
		zap.Int("creditedSubPeriods", credited),
		zap.Int("lps", len(lp)),
		zap.String("totalFees0", t0.String()),
		zap.String("totalFees1", t1.String()),
	)
	return lp, nil
}

// totalFees is a convenience for logging and tests: the summed credited
// amounts per currency.
func totalFees(lp domain.LPMap) (*big.Int, *big.Int) {
	t0, t1 := new(big.Int), new(big.Int)
	for _, data := range lp {
		t0.Add(t0, data.Fees0)
		t1.Add(t1, data.Fees1)
	}
	return t0, t1
}
