package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/storage"
)

// CheckpointStore implements storage.CheckpointStore using PostgreSQL.
// The full checkpoint document is stored as JSONB with big integers as
// decimal strings, alongside the columns needed for lookup.
type CheckpointStore struct {
	pool *Pool
}

// NewCheckpointStore creates a new CheckpointStore.
func NewCheckpointStore(pool *Pool) *CheckpointStore {
	return &CheckpointStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CheckpointStore = (*CheckpointStore)(nil)

// Latest returns the highest-period checkpoint for a pool.
func (s *CheckpointStore) Latest(ctx context.Context, poolID common.Hash) (*domain.Checkpoint, error) {
	query := `
		SELECT payload
		FROM checkpoints
		WHERE pool_id = $1
		ORDER BY period DESC
		LIMIT 1
	`

	var raw []byte
	err := s.pool.QueryRow(ctx, query, poolID.Hex()).Scan(&raw)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query latest checkpoint: %w", err)
	}

	return storage.DecodeCheckpoint(raw)
}

// Save writes a new checkpoint. Returns ErrDuplicateKey if the
// (pool, period) row exists.
func (s *CheckpointStore) Save(ctx context.Context, cp *domain.Checkpoint) error {
	raw, err := storage.EncodeCheckpoint(cp)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO checkpoints (
			pool_id, period, start_block, end_block, payload
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err = s.pool.Exec(ctx, query,
		cp.PoolID.Hex(),
		cp.Period,
		cp.StartBlock,
		cp.EndBlock,
		raw,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}
