package file

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/storage"
)

var testPool = common.HexToHash("0x06")

func makeCheckpoint(period uint64) *domain.Checkpoint {
	cp := domain.NewCheckpoint(testPool, period, period*100, period*100+99)
	cp.LP.Credit(common.HexToAddress("0xa11ce"), big.NewInt(1), big.NewInt(2))
	return cp
}

func TestSaveAndLatest(t *testing.T) {
	ctx := context.Background()
	store, err := NewCheckpointStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewCheckpointStore: %v", err)
	}

	for period := uint64(0); period < 3; period++ {
		if err := store.Save(ctx, makeCheckpoint(period)); err != nil {
			t.Fatalf("Save period %d: %v", period, err)
		}
	}

	cp, err := store.Latest(ctx, testPool)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if cp.Period != 2 || cp.StartBlock != 200 {
		t.Errorf("got period %d start %d, want 2/200", cp.Period, cp.StartBlock)
	}
}

func TestLatest_EmptyDir(t *testing.T) {
	ctx := context.Background()
	store, err := NewCheckpointStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewCheckpointStore: %v", err)
	}

	_, err = store.Latest(ctx, testPool)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSave_DuplicatePeriod(t *testing.T) {
	ctx := context.Background()
	store, err := NewCheckpointStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewCheckpointStore: %v", err)
	}

	if err := store.Save(ctx, makeCheckpoint(0)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	err = store.Save(ctx, makeCheckpoint(0))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewCheckpointStore(dir)
	if err != nil {
		t.Fatalf("NewCheckpointStore: %v", err)
	}

	if err := store.Save(ctx, makeCheckpoint(0)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".checkpoint-") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want exactly the checkpoint file", len(entries))
	}
}

func TestLatest_IgnoresForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewCheckpointStore(dir)
	if err != nil {
		t.Fatalf("NewCheckpointStore: %v", err)
	}

	// Unrelated files in the directory must not confuse the scan.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := store.Save(ctx, makeCheckpoint(5)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cp, err := store.Latest(ctx, testPool)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if cp.Period != 5 {
		t.Errorf("Period = %d, want 5", cp.Period)
	}
}
