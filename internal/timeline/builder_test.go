package timeline_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/chain/stub"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/timeline"
)

var (
	testPool = common.HexToHash("0x02")
	alice    = common.HexToAddress("0xa11ce")
	bob      = common.HexToAddress("0xb0b")
)

func makeEvent(key int64, block uint64, logIndex uint, delta int64) *domain.ModifyLiquidityEvent {
	return &domain.ModifyLiquidityEvent{
		Key:            big.NewInt(key),
		TickLower:      -120,
		TickUpper:      120,
		LiquidityDelta: big.NewInt(delta),
		Block:          block,
		LogIndex:       logIndex,
	}
}

func checkSpan(t *testing.T, pos *domain.Position, startBlock, endBlock uint64) {
	t.Helper()
	if len(pos.Timeline) < 2 {
		t.Fatalf("timeline has %d points, want >= 2", len(pos.Timeline))
	}
	if first := pos.Timeline[0].Block; first != startBlock {
		t.Errorf("first point at block %d, want %d", first, startBlock)
	}
	if last := pos.Timeline[len(pos.Timeline)-1].Block; last != endBlock {
		t.Errorf("last point at block %d, want %d", last, endBlock)
	}
	for i := 1; i < len(pos.Timeline); i++ {
		if pos.Timeline[i].Block < pos.Timeline[i-1].Block {
			t.Errorf("timeline blocks decrease at index %d", i)
		}
	}
}

func TestBuild_NewPosition(t *testing.T) {
	ctx := context.Background()
	reader := stub.NewReader(testPool, 60)
	reader.SetOwner(big.NewInt(1), 150, alice)

	events := []*domain.ModifyLiquidityEvent{makeEvent(1, 150, 0, 5000)}
	b := timeline.NewBuilder(reader, zap.NewNop())
	positions, err := b.Build(ctx, nil, events, 100, 200)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("got %d positions, want 1", len(positions))
	}

	pos := positions["1"]
	checkSpan(t, pos, 100, 200)

	// Pre-event sub-period has zero liquidity and no owner.
	if pos.Timeline[0].Liquidity.Sign() != 0 {
		t.Errorf("pre-event liquidity = %s, want 0", pos.Timeline[0].Liquidity)
	}
	if pos.Timeline[0].Owner.Assigned() {
		t.Error("pre-event owner should be unassigned")
	}
	if pos.Liquidity.Cmp(big.NewInt(5000)) != 0 {
		t.Errorf("final liquidity = %s, want 5000", pos.Liquidity)
	}
	if owner, _ := pos.Timeline[len(pos.Timeline)-1].Owner.Address(); owner != alice {
		t.Errorf("end owner = %s, want %s", owner, alice)
	}
}

func TestBuild_CarriedPositionWithoutEvents(t *testing.T) {
	ctx := context.Background()
	reader := stub.NewReader(testPool, 60)
	reader.SetOwner(big.NewInt(1), 0, alice)

	prev := map[string]*domain.Position{
		"1": carriedPosition(1, 7000, alice),
	}
	b := timeline.NewBuilder(reader, zap.NewNop())
	positions, err := b.Build(ctx, prev, nil, 100, 200)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	pos := positions["1"]
	checkSpan(t, pos, 100, 200)
	if len(pos.Timeline) != 2 {
		t.Fatalf("quiet position should get exactly 2 points, got %d", len(pos.Timeline))
	}
	if pos.Timeline[0].Liquidity.Cmp(big.NewInt(7000)) != 0 {
		t.Errorf("carried liquidity = %s, want 7000", pos.Timeline[0].Liquidity)
	}
}

func TestBuild_CarriedPositionWithEvent(t *testing.T) {
	ctx := context.Background()
	reader := stub.NewReader(testPool, 60)
	reader.SetOwner(big.NewInt(1), 0, alice)

	prev := map[string]*domain.Position{
		"1": carriedPosition(1, 7000, alice),
	}
	events := []*domain.ModifyLiquidityEvent{makeEvent(1, 150, 0, -2000)}
	b := timeline.NewBuilder(reader, zap.NewNop())
	positions, err := b.Build(ctx, prev, events, 100, 200)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	pos := positions["1"]
	checkSpan(t, pos, 100, 200)
	if len(pos.Timeline) != 3 {
		t.Fatalf("got %d points, want 3 (start, event, end)", len(pos.Timeline))
	}
	if pos.Timeline[1].Block != 150 || pos.Timeline[1].Liquidity.Cmp(big.NewInt(5000)) != 0 {
		t.Errorf("event point = (%d, %s), want (150, 5000)",
			pos.Timeline[1].Block, pos.Timeline[1].Liquidity)
	}
}

func TestBuild_OwnershipTransferAtEnd(t *testing.T) {
	ctx := context.Background()
	reader := stub.NewReader(testPool, 60)
	reader.SetOwner(big.NewInt(1), 0, alice)
	reader.SetOwner(big.NewInt(1), 180, bob)

	prev := map[string]*domain.Position{
		"1": carriedPosition(1, 7000, alice),
	}
	b := timeline.NewBuilder(reader, zap.NewNop())
	positions, err := b.Build(ctx, prev, nil, 100, 200)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	pos := positions["1"]
	if owner, _ := pos.Timeline[len(pos.Timeline)-1].Owner.Address(); owner != bob {
		t.Errorf("end owner = %s, want %s after transfer", owner, bob)
	}
	if owner, _ := pos.LastOwner.Address(); owner != bob {
		t.Errorf("LastOwner = %s, want %s", owner, bob)
	}
}

func TestBuild_PrunesClosedZeroLiquidityCarries(t *testing.T) {
	ctx := context.Background()
	reader := stub.NewReader(testPool, 60)
	reader.SetClosed(big.NewInt(1), true)

	prev := map[string]*domain.Position{
		"1": carriedPosition(1, 0, alice),
	}
	b := timeline.NewBuilder(reader, zap.NewNop())
	positions, err := b.Build(ctx, prev, nil, 100, 200)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("closed zero-liquidity carry survived: %d positions", len(positions))
	}
}

func TestBuild_KeepsOpenZeroLiquidityCarriesWithEvents(t *testing.T) {
	ctx := context.Background()
	reader := stub.NewReader(testPool, 60)
	reader.SetOwner(big.NewInt(1), 0, alice)

	// Zero liquidity but still open on chain: a later add must reuse
	// the carried record.
	prev := map[string]*domain.Position{
		"1": carriedPosition(1, 0, alice),
	}
	events := []*domain.ModifyLiquidityEvent{makeEvent(1, 150, 0, 3000)}
	b := timeline.NewBuilder(reader, zap.NewNop())
	positions, err := b.Build(ctx, prev, events, 100, 200)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	pos := positions["1"]
	if pos == nil {
		t.Fatal("open zero-liquidity carry was dropped")
	}
	if pos.Liquidity.Cmp(big.NewInt(3000)) != 0 {
		t.Errorf("liquidity = %s, want 3000", pos.Liquidity)
	}
}

func TestBuild_DropsQuietZeroLiquidityPositions(t *testing.T) {
	ctx := context.Background()
	reader := stub.NewReader(testPool, 60)
	reader.SetOwner(big.NewInt(1), 0, alice)
	reader.SetOwner(big.NewInt(2), 0, alice)

	// Fully withdraw within the period: records survive the period with
	// their flat timelines, but a quiet zero carry contributes nothing.
	events := []*domain.ModifyLiquidityEvent{
		makeEvent(1, 120, 0, 4000),
		makeEvent(1, 180, 0, -4000),
	}
	b := timeline.NewBuilder(reader, zap.NewNop())
	positions, err := b.Build(ctx, nil, events, 100, 200)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// The evented position stays (its mid-period sub-period earned fees).
	if _, ok := positions["1"]; !ok {
		t.Error("evented position dropped")
	}
	if _, ok := positions["2"]; ok {
		t.Error("position without events materialized out of nothing")
	}
}

func TestBuild_RejectsUnorderedEvents(t *testing.T) {
	ctx := context.Background()
	reader := stub.NewReader(testPool, 60)

	events := []*domain.ModifyLiquidityEvent{
		makeEvent(1, 180, 0, 1000),
		makeEvent(1, 120, 0, 1000),
	}
	b := timeline.NewBuilder(reader, zap.NewNop())
	_, err := b.Build(ctx, nil, events, 100, 200)
	if !errors.Is(err, timeline.ErrUnordered) {
		t.Errorf("err = %v, want ErrUnordered", err)
	}
}

func TestBuild_MultipleEventsSameBlock(t *testing.T) {
	ctx := context.Background()
	reader := stub.NewReader(testPool, 60)
	reader.SetOwner(big.NewInt(1), 0, alice)

	events := []*domain.ModifyLiquidityEvent{
		makeEvent(1, 150, 0, 1000),
		makeEvent(1, 150, 1, 2000),
	}
	b := timeline.NewBuilder(reader, zap.NewNop())
	positions, err := b.Build(ctx, nil, events, 100, 200)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	pos := positions["1"]
	checkSpan(t, pos, 100, 200)
	if pos.Liquidity.Cmp(big.NewInt(3000)) != 0 {
		t.Errorf("liquidity = %s, want 3000", pos.Liquidity)
	}
}

func carriedPosition(key, liquidity int64, owner common.Address) *domain.Position {
	p := domain.NewPosition(big.NewInt(key), -120, 120)
	p.Liquidity = big.NewInt(liquidity)
	p.LastOwner = domain.OwnerOf(owner)
	return p
}
