// Package rewards converts per-LP two-currency fee totals into the
// program's denominator currency and allocates the period reward
// pro-rata.
package rewards

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/chain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/feegrowth"
)

// PricePrecision scales the period price so integer division keeps
// meaningful resolution.
var PricePrecision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Converter derives the period's volume-weighted price and rewrites
// every LP's fee total into the denominator currency.
type Converter struct {
	reader chain.PoolReader
	poolID common.Hash
	logger *zap.Logger
}

// NewConverter creates a Converter for one pool.
func NewConverter(reader chain.PoolReader, poolID common.Hash, logger *zap.Logger) *Converter {
	return &Converter{reader: reader, poolID: poolID, logger: logger}
}

// Convert fills FeesDenominator for every LP. denomIsCurrency0 selects
// which pool currency is the reference asset.
func (c *Converter) Convert(ctx context.Context, lp domain.LPMap, startBlock, endBlock uint64, denomIsCurrency0 bool) error {
	startGrowth, err := c.reader.GlobalFeeGrowth(ctx, c.poolID, startBlock)
	if err != nil {
		return fmt.Errorf("global fee growth@%d: %w", startBlock, err)
	}
	endGrowth, err := c.reader.GlobalFeeGrowth(ctx, c.poolID, endBlock)
	if err != nil {
		return fmt.Errorf("global fee growth@%d: %w", endBlock, err)
	}

	price := PeriodPrice(startGrowth, endGrowth, denomIsCurrency0)
	if price.Sign() == 0 {
		c.logger.Warn("period price unavailable, non-denominator fees ignored",
			zap.Uint64("startBlock", startBlock),
			zap.Uint64("endBlock", endBlock),
		)
	}
	ApplyPrice(lp, price, denomIsCurrency0)
	return nil
}

// PeriodPrice computes the period-long reference price as the ratio of
// the two currencies' global fee-growth deltas, scaled by
// PricePrecision. Fee growth accrues proportionally to trade volume, so
// the ratio is a volume-weighted average. Returns zero when the divisor
// delta is zero (no volume in the non-denominator currency).
func PeriodPrice(start, end chain.FeeGrowth, denomIsCurrency0 bool) *big.Int {
	delta0 := feegrowth.Delta(start.Fee0, end.Fee0).ToBig()
	delta1 := feegrowth.Delta(start.Fee1, end.Fee1).ToBig()

	num, div := delta0, delta1
	if !denomIsCurrency0 {
		num, div = delta1, delta0
	}
	if div.Sign() == 0 {
		return new(big.Int)
	}

	price := new(big.Int).Mul(num, PricePrecision)
	return price.Div(price, div)
}

// ApplyPrice sets each LP's denominator-currency total: the native
// total plus the converted other-currency total, truncating.
func ApplyPrice(lp domain.LPMap, price *big.Int, denomIsCurrency0 bool) {
	for _, data := range lp {
		native, other := data.Fees0, data.Fees1
		if !denomIsCurrency0 {
			native, other = data.Fees1, data.Fees0
		}
		converted := new(big.Int).Mul(other, price)
		converted.Div(converted, PricePrecision)
		data.FeesDenominator = new(big.Int).Add(native, converted)
	}
}
