package clickhouse

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/storage"
)

// RewardArchive implements storage.RewardArchive using ClickHouse.
// Rows are append-only history for analytics; amounts are stored as
// decimal strings to keep full 256-bit precision.
type RewardArchive struct {
	conn *Conn
}

// NewRewardArchive creates a new RewardArchive.
func NewRewardArchive(conn *Conn) *RewardArchive {
	return &RewardArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.RewardArchive = (*RewardArchive)(nil)

// AppendRewards stores one row per LP of the checkpoint's period.
func (a *RewardArchive) AppendRewards(ctx context.Context, cp *domain.Checkpoint) error {
	if len(cp.LP) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO lp_rewards (
			pool_id, period, start_block, end_block, owner,
			fees_currency0, fees_currency1, fees_denominator, reward
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	owners := make([]common.Address, 0, len(cp.LP))
	for addr := range cp.LP {
		owners = append(owners, addr)
	}
	sort.Slice(owners, func(i, j int) bool {
		return owners[i].Cmp(owners[j]) < 0
	})

	for _, addr := range owners {
		data := cp.LP[addr]
		err = batch.Append(
			cp.PoolID.Hex(), cp.Period, cp.StartBlock, cp.EndBlock, addr.Hex(),
			data.Fees0.String(), data.Fees1.String(),
			data.FeesDenominator.String(), data.Reward.String(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}
