package storage

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
)

// CheckpointStore persists period checkpoints. Checkpoints are
// append-only: one row per (pool, period), written exactly once after a
// fully successful run.
type CheckpointStore interface {
	// Latest returns the highest-period checkpoint for a pool.
	// Returns ErrNotFound if the pool has no checkpoint yet.
	Latest(ctx context.Context, poolID common.Hash) (*domain.Checkpoint, error)

	// Save writes a new checkpoint. Returns ErrDuplicateKey if a
	// checkpoint for (pool, period) already exists.
	Save(ctx context.Context, cp *domain.Checkpoint) error
}

// RewardArchive receives finished per-period LP reward rows for
// downstream analytics. Appending is best-effort bookkeeping and never
// a condition for checkpoint validity.
type RewardArchive interface {
	// AppendRewards stores one row per LP of the checkpoint's period.
	AppendRewards(ctx context.Context, cp *domain.Checkpoint) error
}
