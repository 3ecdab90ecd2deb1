// Package file persists checkpoints as JSON documents on disk, one file
// per (pool, period).
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/storage"
)

// CheckpointStore stores checkpoints under a directory. Writes go
// through a temp file and an atomic rename, so a crashed run can never
// leave a half-written checkpoint behind.
type CheckpointStore struct {
	dir string
}

// NewCheckpointStore creates the directory if needed.
func NewCheckpointStore(dir string) (*CheckpointStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &CheckpointStore{dir: dir}, nil
}

// Compile-time interface check.
var _ storage.CheckpointStore = (*CheckpointStore)(nil)

// Latest scans the directory for the pool's highest-period checkpoint.
func (s *CheckpointStore) Latest(_ context.Context, poolID common.Hash) (*domain.Checkpoint, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint dir: %w", err)
	}

	prefix := fileNamePrefix(poolID)
	var bestPath string
	var bestPeriod uint64
	found := false
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		periodStr := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")
		period, err := strconv.ParseUint(periodStr, 10, 64)
		if err != nil {
			continue
		}
		if !found || period > bestPeriod {
			bestPeriod = period
			bestPath = filepath.Join(s.dir, name)
			found = true
		}
	}
	if !found {
		return nil, storage.ErrNotFound
	}

	raw, err := os.ReadFile(bestPath)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint %s: %w", bestPath, err)
	}
	return storage.DecodeCheckpoint(raw)
}

// Save writes the checkpoint atomically.
func (s *CheckpointStore) Save(_ context.Context, cp *domain.Checkpoint) error {
	raw, err := storage.EncodeCheckpoint(cp)
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s%d.json", fileNamePrefix(cp.PoolID), cp.Period))
	if _, err := os.Stat(path); err == nil {
		return storage.ErrDuplicateKey
	}

	tmp, err := os.CreateTemp(s.dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp checkpoint: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

func fileNamePrefix(poolID common.Hash) string {
	return fmt.Sprintf("checkpoint-%s-", poolID.Hex())
}
