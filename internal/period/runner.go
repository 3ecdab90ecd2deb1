// Package period orchestrates one pool-period run end to end:
// checkpoint load, resumability validation, timeline build, fee
// attribution, conversion, reward distribution, checkpoint save.
package period

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/attribution"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/chain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/feegrowth"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/observability"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/rewards"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/storage"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/tickmap"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/timeline"
)

// Fatal run errors. All of them abort before any checkpoint write.
var (
	// ErrNoProgress means the requested end block is before the start.
	ErrNoProgress = errors.New("end block is before start block")

	// ErrNotResumable means the requested period does not line up with
	// the stored checkpoint chain.
	ErrNotResumable = errors.New("period does not resume the previous checkpoint")

	// ErrInvalidConfig means the run configuration is internally
	// inconsistent.
	ErrInvalidConfig = errors.New("invalid run configuration")
)

// Config describes one pool-period run.
type Config struct {
	PoolID      common.Hash
	Currency0   common.Address
	Currency1   common.Address
	Denominator common.Address
	TickSpacing int32

	Period     uint64
	StartBlock uint64
	EndBlock   uint64

	// TotalReward is the fixed reward allocated across LPs this period.
	TotalReward *big.Int

	// SearchLimit overrides the tick locator's word budget when > 0.
	SearchLimit int
	// Workers overrides the attribution prefetch concurrency when > 0.
	Workers int
}

// Runner executes pool-period runs sequentially. One Runner works one
// (pool, period) at a time; checkpoint read/modify/write is atomic from
// its perspective.
type Runner struct {
	reader      chain.PoolReader
	checkpoints storage.CheckpointStore
	archive     storage.RewardArchive // optional
	logger      *zap.Logger
}

// NewRunner creates a Runner.
func NewRunner(reader chain.PoolReader, checkpoints storage.CheckpointStore, logger *zap.Logger) *Runner {
	return &Runner{reader: reader, checkpoints: checkpoints, logger: logger}
}

// WithRewardArchive adds best-effort analytics archiving of finished
// periods.
func (r *Runner) WithRewardArchive(archive storage.RewardArchive) *Runner {
	r.archive = archive
	return r
}

// Run processes one period and returns the saved checkpoint.
func (r *Runner) Run(ctx context.Context, cfg Config) (*domain.Checkpoint, error) {
	start := time.Now()
	cp, err := r.run(ctx, cfg)
	if err != nil {
		observability.RecordRun("error", time.Since(start).Seconds())
		return nil, err
	}
	observability.RecordRun("success", time.Since(start).Seconds())
	observability.DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
	return cp, nil
}

func (r *Runner) run(ctx context.Context, cfg Config) (*domain.Checkpoint, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	prev, err := r.loadPrevious(ctx, cfg)
	if err != nil {
		return nil, err
	}

	r.logger.Info("starting period run",
		zap.String("pool", cfg.PoolID.Hex()),
		zap.Uint64("period", cfg.Period),
		zap.Uint64("startBlock", cfg.StartBlock),
		zap.Uint64("endBlock", cfg.EndBlock),
	)

	events, err := r.reader.ModificationEvents(ctx, cfg.PoolID, cfg.StartBlock, cfg.EndBlock)
	if err != nil {
		return nil, fmt.Errorf("fetch modification events: %w", err)
	}

	var prevPositions map[string]*domain.Position
	if prev != nil {
		// Work on copies so the loaded checkpoint stays untouched.
		prevPositions = prev.ClonePositions()
	}

	builder := timeline.NewBuilder(r.reader, r.logger)
	positions, err := builder.Build(ctx, prevPositions, events, cfg.StartBlock, cfg.EndBlock)
	if err != nil {
		return nil, fmt.Errorf("build timelines: %w", err)
	}

	locator := tickmap.NewLocator(r.reader, cfg.PoolID, cfg.TickSpacing)
	if cfg.SearchLimit > 0 {
		locator = locator.WithSearchLimit(cfg.SearchLimit)
	}
	adapter := feegrowth.NewAdapter(r.reader, locator, cfg.PoolID, r.logger)

	engine := attribution.NewEngine(adapter, r.logger)
	if cfg.Workers > 0 {
		engine = engine.WithWorkers(cfg.Workers)
	}
	lp, err := engine.Attribute(ctx, positions, cfg.StartBlock, cfg.EndBlock)
	if err != nil {
		return nil, fmt.Errorf("attribute fees: %w", err)
	}

	converter := rewards.NewConverter(r.reader, cfg.PoolID, r.logger)
	if err := converter.Convert(ctx, lp, cfg.StartBlock, cfg.EndBlock, cfg.Denominator == cfg.Currency0); err != nil {
		return nil, fmt.Errorf("convert fees: %w", err)
	}
	rewards.Distribute(lp, cfg.TotalReward)

	cp := domain.NewCheckpoint(cfg.PoolID, cfg.Period, cfg.StartBlock, cfg.EndBlock)
	cp.Currency0 = cfg.Currency0
	cp.Currency1 = cfg.Currency1
	cp.Denominator = cfg.Denominator
	cp.Positions = positions
	cp.LP = lp

	if err := r.checkpoints.Save(ctx, cp); err != nil {
		return nil, fmt.Errorf("save checkpoint: %w", err)
	}
	observability.RecordCheckpointSaved(cp.EndBlock)

	// The checkpoint is the source of truth; archive failures only
	// lose analytics rows and are not worth failing the run over.
	if r.archive != nil {
		err := r.archive.AppendRewards(ctx, cp)
		observability.RecordArchiveWrite(len(cp.LP), err)
		if err != nil {
			r.logger.Warn("archiving period rewards failed", zap.Error(err))
		}
	}

	r.logger.Info("period run complete",
		zap.Uint64("period", cfg.Period),
		zap.Int("positions", len(cp.Positions)),
		zap.Int("lps", len(cp.LP)),
	)
	return cp, nil
}

// validate rejects structurally broken configurations before any work.
func validate(cfg Config) error {
	if cfg.EndBlock < cfg.StartBlock {
		return fmt.Errorf("%w: start %d, end %d", ErrNoProgress, cfg.StartBlock, cfg.EndBlock)
	}
	if cfg.TickSpacing <= 0 {
		return fmt.Errorf("%w: tick spacing %d", ErrInvalidConfig, cfg.TickSpacing)
	}
	if cfg.TotalReward == nil || cfg.TotalReward.Sign() < 0 {
		return fmt.Errorf("%w: total reward must be non-negative", ErrInvalidConfig)
	}
	if cfg.Denominator != cfg.Currency0 && cfg.Denominator != cfg.Currency1 {
		return fmt.Errorf("%w: denominator is not a pool currency", ErrInvalidConfig)
	}
	return nil
}

// loadPrevious fetches and validates the previous checkpoint. A first
// period must have no checkpoint; a later period must extend the stored
// chain by exactly one block.
func (r *Runner) loadPrevious(ctx context.Context, cfg Config) (*domain.Checkpoint, error) {
	prev, err := r.checkpoints.Latest(ctx, cfg.PoolID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			if cfg.Period != 0 {
				return nil, fmt.Errorf("%w: period %d requested but no checkpoint exists", ErrNotResumable, cfg.Period)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	if cfg.Period == 0 {
		return nil, fmt.Errorf("%w: first period requested but checkpoint for period %d exists", ErrNotResumable, prev.Period)
	}
	if cfg.Period != prev.Period+1 {
		return nil, fmt.Errorf("%w: period %d does not follow stored period %d", ErrNotResumable, cfg.Period, prev.Period)
	}
	if cfg.StartBlock != prev.EndBlock+1 {
		return nil, fmt.Errorf("%w: start block %d, previous end block %d", ErrNotResumable, cfg.StartBlock, prev.EndBlock)
	}
	return prev, nil
}
