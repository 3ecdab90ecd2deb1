// Package main provides the issuance entry point. It runs one
// pool-period: loads the previous checkpoint, attributes swap fees to
// liquidity providers over the block range, distributes the period
// reward, and saves the new checkpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/chain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/chain/ethereum"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/chain/stub"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/logging"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/observability"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/period"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/reporting"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/storage"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/storage/clickhouse"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/storage/file"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/storage/memory"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/storage/postgres"
)

func main() {
	// Parse flags
	poolID := flag.String("pool", "", "Pool ID (32-byte hex)")
	currency0 := flag.String("currency0", "", "Pool currency0 address")
	currency1 := flag.String("currency1", "", "Pool currency1 address")
	denominator := flag.String("denominator", "", "Denominator currency address (must be currency0 or currency1)")
	tickSpacing := flag.Int("tick-spacing", 60, "Pool tick spacing")
	periodNum := flag.Uint64("period", 0, "Period number (0 for the first period)")
	startBlock := flag.Uint64("start-block", 0, "First block of the period")
	endBlock := flag.Uint64("end-block", 0, "Last block of the period")
	reward := flag.String("reward", "0", "Total reward to distribute this period (base units)")

	rpcURL := flag.String("rpc-url", "", "Ethereum JSON-RPC endpoint")
	poolManager := flag.String("pool-manager", "", "PoolManager contract address")
	stateView := flag.String("state-view", "", "StateView contract address")
	positionToken := flag.String("position-token", "", "Position token contract address")

	checkpointDir := flag.String("checkpoint-dir", "", "Directory for file-based checkpoints")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres DSN for checkpoints (overrides -checkpoint-dir)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse DSN for the reward archive (optional)")
	outputDir := flag.String("output-dir", "reports", "Output directory for the period report")
	metricsAddr := flag.String("metrics-addr", "", "Address to serve Prometheus metrics on during the run (optional)")
	useStub := flag.Bool("use-stub", false, "Run against a deterministic in-memory pool instead of an RPC node")
	flag.Parse()

	logger, err := logging.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := buildConfig(*poolID, *currency0, *currency1, *denominator, *tickSpacing, *periodNum, *startBlock, *endBlock, *reward)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling run...\n", sig)
		cancel()
	}()

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	var reader chain.PoolReader
	if *useStub {
		reader = buildStubReader(cfg)
	} else {
		reader, err = buildReader(ctx, *rpcURL, *poolManager, *stateView, *positionToken, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to chain: %v\n", err)
			os.Exit(1)
		}
	}

	checkpoints, cleanup, err := buildCheckpointStore(ctx, *postgresDSN, *checkpointDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening checkpoint store: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	runner := period.NewRunner(reader, checkpoints, logger)
	if *clickhouseDSN != "" {
		conn, err := clickhouse.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to ClickHouse: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close()
		runner = runner.WithRewardArchive(clickhouse.NewRewardArchive(conn))
	}

	cp, err := runner.Run(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run error: %v\n", err)
		os.Exit(1)
	}

	report := reporting.FromCheckpoint(cp, time.Now().UTC())
	if err := writeReport(*outputDir, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Period %d complete:\n", cp.Period)
	fmt.Printf("  Blocks: %d-%d\n", cp.StartBlock, cp.EndBlock)
	fmt.Printf("  Positions: %d\n", len(cp.Positions))
	fmt.Printf("  Liquidity providers: %d\n", len(cp.LP))
	fmt.Printf("  Reward distributed: %s\n", report.TotalReward.String())
}

func buildConfig(poolID, currency0, currency1, denominator string, tickSpacing int, periodNum, startBlock, endBlock uint64, reward string) (period.Config, error) {
	if poolID == "" {
		return period.Config{}, fmt.Errorf("-pool is required")
	}
	total, ok := new(big.Int).SetString(reward, 10)
	if !ok {
		return period.Config{}, fmt.Errorf("invalid -reward %q", reward)
	}
	return period.Config{
		PoolID:      common.HexToHash(poolID),
		Currency0:   common.HexToAddress(currency0),
		Currency1:   common.HexToAddress(currency1),
		Denominator: common.HexToAddress(denominator),
		TickSpacing: int32(tickSpacing),
		Period:      periodNum,
		StartBlock:  startBlock,
		EndBlock:    endBlock,
		TotalReward: total,
	}, nil
}

func buildReader(ctx context.Context, rpcURL, poolManager, stateView, positionToken string, logger *zap.Logger) (chain.PoolReader, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("-rpc-url is required")
	}
	return ethereum.Dial(ctx, rpcURL, ethereum.Config{
		PoolManager:   common.HexToAddress(poolManager),
		StateView:     common.HexToAddress(stateView),
		PositionToken: common.HexToAddress(positionToken),
	}, logger)
}

// buildStubReader populates a deterministic fixture pool spanning the
// requested block range: one LP deposits halfway through the period and
// earns fees until its end.
func buildStubReader(cfg period.Config) *stub.Reader {
	reader := stub.NewReader(cfg.PoolID, cfg.TickSpacing)

	lower, upper := -2*cfg.TickSpacing, 2*cfg.TickSpacing
	owner := common.HexToAddress("0x000000000000000000000000000000000000f1f0")
	key := big.NewInt(1)
	liquidity := new(big.Int).Lsh(big.NewInt(1), 128)
	mid := cfg.StartBlock + (cfg.EndBlock-cfg.StartBlock)/2

	reader.AddEvent(&domain.ModifyLiquidityEvent{
		Key:            key,
		TickLower:      lower,
		TickUpper:      upper,
		LiquidityDelta: liquidity,
		Block:          mid,
		LogIndex:       0,
	})
	reader.SetOwner(key, mid, owner)

	reader.SetFeeGrowthInside(lower, upper, mid, uint256.NewInt(0), uint256.NewInt(0))
	reader.SetFeeGrowthInside(lower, upper, cfg.EndBlock-1, uint256.NewInt(5000), uint256.NewInt(2500))
	reader.SetGlobalFeeGrowth(cfg.StartBlock, uint256.NewInt(0), uint256.NewInt(0))
	reader.SetGlobalFeeGrowth(cfg.EndBlock, uint256.NewInt(10000), uint256.NewInt(5000))
	return reader
}

func buildCheckpointStore(ctx context.Context, postgresDSN, checkpointDir string) (storage.CheckpointStore, func(), error) {
	if postgresDSN != "" {
		pool, err := postgres.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewCheckpointStore(pool), pool.Close, nil
	}
	if checkpointDir != "" {
		store, err := file.NewCheckpointStore(checkpointDir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
	// No persistence configured; useful for dry runs only.
	return memory.NewCheckpointStore(), func() {}, nil
}

func writeReport(dir string, report *reporting.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := fmt.Sprintf("period-%d", report.Period)
	if err := os.WriteFile(filepath.Join(dir, base+".csv"), []byte(reporting.RenderCSV(report)), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, base+".md"), []byte(reporting.RenderMarkdown(report)), 0o644)
}
