package memory

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/storage"
)

// CheckpointStore is an in-memory implementation of
// storage.CheckpointStore, used in tests and fixture runs.
type CheckpointStore struct {
	mu   sync.RWMutex
	data map[common.Hash]map[uint64][]byte // poolID -> period -> encoded checkpoint
}

// NewCheckpointStore creates an empty in-memory checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{
		data: make(map[common.Hash]map[uint64][]byte),
	}
}

// Compile-time interface check.
var _ storage.CheckpointStore = (*CheckpointStore)(nil)

// Latest returns the highest-period checkpoint for a pool.
func (s *CheckpointStore) Latest(_ context.Context, poolID common.Hash) (*domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	periods, ok := s.data[poolID]
	if !ok || len(periods) == 0 {
		return nil, storage.ErrNotFound
	}

	var best uint64
	found := false
	for period := range periods {
		if !found || period > best {
			best = period
			found = true
		}
	}
	return storage.DecodeCheckpoint(periods[best])
}

// Save writes a new checkpoint. Returns ErrDuplicateKey if the
// (pool, period) slot is already taken.
func (s *CheckpointStore) Save(_ context.Context, cp *domain.Checkpoint) error {
	raw, err := storage.EncodeCheckpoint(cp)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	periods, ok := s.data[cp.PoolID]
	if !ok {
		periods = make(map[uint64][]byte)
		s.data[cp.PoolID] = periods
	}
	if _, exists := periods[cp.Period]; exists {
		return storage.ErrDuplicateKey
	}
	periods[cp.Period] = raw
	return nil
}
