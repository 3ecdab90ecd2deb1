package period

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/chain/stub"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/storage"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/storage/memory"
)

var (
	testPool  = common.HexToHash("0x07")
	currency0 = common.HexToAddress("0xc0")
	currency1 = common.HexToAddress("0xc1")
	alice     = common.HexToAddress("0xa11ce")

	unitLiquidity = new(big.Int).Lsh(big.NewInt(1), 128)
)

func baseConfig(period, startBlock, endBlock uint64) Config {
	return Config{
		PoolID:      testPool,
		Currency0:   currency0,
		Currency1:   currency1,
		Denominator: currency0,
		TickSpacing: 60,
		Period:      period,
		StartBlock:  startBlock,
		EndBlock:    endBlock,
		TotalReward: big.NewInt(1000),
		Workers:     2,
	}
}

// populatedReader sets up one position earning 100 units of currency0
// fees in [150, 199] of the first period and another 100 in the second.
func populatedReader() *stub.Reader {
	reader := stub.NewReader(testPool, 60)
	reader.AddEvent(&domain.ModifyLiquidityEvent{
		Key:            big.NewInt(1),
		TickLower:      -120,
		TickUpper:      120,
		LiquidityDelta: new(big.Int).Set(unitLiquidity),
		Block:          150,
		LogIndex:       0,
	})
	reader.SetOwner(big.NewInt(1), 150, alice)

	reader.SetFeeGrowthInside(-120, 120, 150, uint256.NewInt(10), uint256.NewInt(0))
	reader.SetFeeGrowthInside(-120, 120, 199, uint256.NewInt(110), uint256.NewInt(0))
	reader.SetFeeGrowthInside(-120, 120, 201, uint256.NewInt(110), uint256.NewInt(0))
	reader.SetFeeGrowthInside(-120, 120, 299, uint256.NewInt(210), uint256.NewInt(0))

	reader.SetGlobalFeeGrowth(100, uint256.NewInt(0), uint256.NewInt(0))
	reader.SetGlobalFeeGrowth(200, uint256.NewInt(1000), uint256.NewInt(500))
	reader.SetGlobalFeeGrowth(300, uint256.NewInt(2000), uint256.NewInt(1000))
	return reader
}

func TestRun_FirstPeriod(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCheckpointStore()
	runner := NewRunner(populatedReader(), store, zap.NewNop())

	cp, err := runner.Run(ctx, baseConfig(0, 100, 200))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cp.Period != 0 || cp.StartBlock != 100 || cp.EndBlock != 200 {
		t.Errorf("checkpoint header = %+v", cp)
	}

	lp := cp.LP[alice]
	if lp == nil {
		t.Fatal("alice earned nothing")
	}
	if lp.Fees0.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("fees0 = %s, want 100", lp.Fees0)
	}
	// Sole LP takes the whole reward.
	if lp.Reward.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("reward = %s, want 1000", lp.Reward)
	}

	// The run must be persisted.
	saved, err := store.Latest(ctx, testPool)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if saved.Period != 0 {
		t.Errorf("saved period = %d, want 0", saved.Period)
	}
}

func TestRun_SecondPeriodResumes(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCheckpointStore()
	runner := NewRunner(populatedReader(), store, zap.NewNop())

	if _, err := runner.Run(ctx, baseConfig(0, 100, 200)); err != nil {
		t.Fatalf("first run: %v", err)
	}
	cp, err := runner.Run(ctx, baseConfig(1, 201, 300))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	lp := cp.LP[alice]
	if lp == nil {
		t.Fatal("carried position earned nothing in the second period")
	}
	if lp.Fees0.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("fees0 = %s, want 100", lp.Fees0)
	}

	// Per-period accumulators must not leak across the boundary.
	pos := cp.Positions["1"]
	if pos == nil {
		t.Fatal("position 1 not carried")
	}
	if pos.FeeGrowthInside0.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("FeeGrowthInside0 = %s, want this period's 100 only", pos.FeeGrowthInside0)
	}
}

func TestRun_GapInBlocksAborts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCheckpointStore()
	runner := NewRunner(populatedReader(), store, zap.NewNop())

	if _, err := runner.Run(ctx, baseConfig(0, 100, 200)); err != nil {
		t.Fatalf("first run: %v", err)
	}

	_, err := runner.Run(ctx, baseConfig(1, 250, 300))
	if !errors.Is(err, ErrNotResumable) {
		t.Fatalf("err = %v, want ErrNotResumable", err)
	}

	// The failed run must not have written anything.
	saved, err := store.Latest(ctx, testPool)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if saved.Period != 0 {
		t.Errorf("saved period = %d, failed run mutated the store", saved.Period)
	}
}

func TestRun_PeriodNumberMismatches(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCheckpointStore()
	runner := NewRunner(populatedReader(), store, zap.NewNop())

	// Non-first period with an empty store.
	if _, err := runner.Run(ctx, baseConfig(1, 100, 200)); !errors.Is(err, ErrNotResumable) {
		t.Errorf("missing checkpoint: err = %v, want ErrNotResumable", err)
	}

	if _, err := runner.Run(ctx, baseConfig(0, 100, 200)); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Re-running the first period over an existing checkpoint.
	if _, err := runner.Run(ctx, baseConfig(0, 100, 200)); !errors.Is(err, ErrNotResumable) {
		t.Errorf("replayed first period: err = %v, want ErrNotResumable", err)
	}

	// Skipping a period.
	if _, err := runner.Run(ctx, baseConfig(2, 201, 300)); !errors.Is(err, ErrNotResumable) {
		t.Errorf("skipped period: err = %v, want ErrNotResumable", err)
	}
}

func TestRun_NoProgress(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(populatedReader(), memory.NewCheckpointStore(), zap.NewNop())

	_, err := runner.Run(ctx, baseConfig(0, 200, 100))
	if !errors.Is(err, ErrNoProgress) {
		t.Errorf("err = %v, want ErrNoProgress", err)
	}
}

func TestRun_InvalidDenominator(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(populatedReader(), memory.NewCheckpointStore(), zap.NewNop())

	cfg := baseConfig(0, 100, 200)
	cfg.Denominator = common.HexToAddress("0xdead")
	_, err := runner.Run(ctx, cfg)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

type failingArchive struct{}

func (failingArchive) AppendRewards(context.Context, *domain.Checkpoint) error {
	return errors.New("clickhouse down")
}

// Compile-time interface check.
var _ storage.RewardArchive = failingArchive{}

func TestRun_ArchiveFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(populatedReader(), memory.NewCheckpointStore(), zap.NewNop()).
		WithRewardArchive(failingArchive{})

	if _, err := runner.Run(ctx, baseConfig(0, 100, 200)); err != nil {
		t.Errorf("archive failure escalated to a run failure: %v", err)
	}
}
