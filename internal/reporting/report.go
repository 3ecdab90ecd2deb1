// Package reporting renders finished periods as CSV and Markdown for
// operators and downstream tooling.
package reporting

import (
	"math/big"
	"sort"
	"time"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
)

// Report is the renderable view of one finished period.
type Report struct {
	GeneratedAt time.Time

	PoolID     string
	Period     uint64
	StartBlock uint64
	EndBlock   uint64

	Currency0   string
	Currency1   string
	Denominator string

	PositionCount int
	LPCount       int

	// Totals across all LPs.
	TotalFees0       *big.Int
	TotalFees1       *big.Int
	TotalDenominator *big.Int
	TotalReward      *big.Int

	// Rows sorted by owner address for deterministic output.
	Rows []LPRow
}

// LPRow is one liquidity provider's line in the period report.
type LPRow struct {
	Owner           string
	Fees0           *big.Int
	Fees1           *big.Int
	FeesDenominator *big.Int
	Reward          *big.Int
}

// FromCheckpoint builds a report from a saved checkpoint.
func FromCheckpoint(cp *domain.Checkpoint, now time.Time) *Report {
	r := &Report{
		GeneratedAt:      now,
		PoolID:           cp.PoolID.Hex(),
		Period:           cp.Period,
		StartBlock:       cp.StartBlock,
		EndBlock:         cp.EndBlock,
		Currency0:        cp.Currency0.Hex(),
		Currency1:        cp.Currency1.Hex(),
		Denominator:      cp.Denominator.Hex(),
		PositionCount:    len(cp.Positions),
		LPCount:          len(cp.LP),
		TotalFees0:       new(big.Int),
		TotalFees1:       new(big.Int),
		TotalDenominator: new(big.Int),
		TotalReward:      new(big.Int),
	}

	for owner, data := range cp.LP {
		row := LPRow{
			Owner:           owner.Hex(),
			Fees0:           new(big.Int).Set(data.Fees0),
			Fees1:           new(big.Int).Set(data.Fees1),
			FeesDenominator: new(big.Int).Set(data.FeesDenominator),
			Reward:          new(big.Int).Set(data.Reward),
		}
		r.TotalFees0.Add(r.TotalFees0, row.Fees0)
		r.TotalFees1.Add(r.TotalFees1, row.Fees1)
		r.TotalDenominator.Add(r.TotalDenominator, row.FeesDenominator)
		r.TotalReward.Add(r.TotalReward, row.Reward)
		r.Rows = append(r.Rows, row)
	}
	sort.Slice(r.Rows, func(i, j int) bool { return r.Rows[i].Owner < r.Rows[j].Owner })
	return r
}
