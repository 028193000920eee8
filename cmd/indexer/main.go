package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ethLogs/internal/chain"
	"ethLogs/internal/config"
	"ethLogs/internal/dex"
	"ethLogs/internal/indexer"
	"ethLogs/internal/metrics"
	"ethLogs/internal/storage/postgres"
	"ethLogs/internal/stream"
)

const subscriptionBuffer = 128

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Uniswap V3 pool log indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path (default ./config.yaml if present)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Stream pool logs into Postgres",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("ws-url", "", "Ethereum websocket RPC URL")
	runCmd.Flags().String("pool", config.DefaultPool, "pool contract address")
	runCmd.Flags().String("db-username", "", "Postgres user")
	runCmd.Flags().String("db-password", "", "Postgres password")
	runCmd.Flags().String("db-host", "localhost", "Postgres host")
	runCmd.Flags().Uint16("db-port", 5432, "Postgres port")
	runCmd.Flags().String("db-name", "", "Postgres database name")
	runCmd.Flags().String("db-sslmode", "disable", "Postgres sslmode")
	runCmd.Flags().String("metrics-addr", "", "serve /metrics and /health on this address (disabled when empty)")
	runCmd.Flags().Duration("health-interval", 5*time.Second, "Postgres connection check interval")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)
	root.AddCommand(newGenerateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.WSURL == "" {
		return fmt.Errorf("ws url is required")
	}
	pool, err := indexer.ParseAddress(cfg.Pool)
	if err != nil {
		return fmt.Errorf("pool: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.WSURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	head, err := chainClient.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}

	info, err := dex.FetchPoolInfo(ctx, chainClient, pool, logger)
	if err != nil {
		logger.Warn("pool metadata unavailable", zap.String("pool", pool.Hex()), zap.Error(err))
	} else {
		logger.Info("pool metadata",
			zap.String("pair", info.Pair()),
			zap.Uint32("fee", info.Fee),
			zap.Int32("tick_spacing", info.TickSpacing),
			zap.Uint8("decimals0", info.Token0.Decimals),
			zap.Uint8("decimals1", info.Token1.Decimals),
		)
	}

	store, err := postgres.NewStore(ctx, cfg.Database.DSN(),
		postgres.WithLogger(logger),
		postgres.WithHealthInterval(cfg.HealthInterval),
	)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewWithLabels(reg, metrics.Labels{ChainID: chainID.Uint64(), Pool: pool.Hex()})
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	watchers := []indexer.Watcher{store}
	if cfg.MetricsAddr != "" {
		watchers = append(watchers, metrics.NewServer(cfg.MetricsAddr, reg))
	}

	decoder, err := dex.NewV3PoolDecoder()
	if err != nil {
		return err
	}

	source, err := stream.Subscribe(ctx, chainClient, pool, decoder, subscriptionBuffer, logger)
	if err != nil {
		return err
	}
	defer source.Close()

	runner := indexer.NewRunner(source, store, m, logger)

	logger.Info("indexer start",
		zap.Uint64("chain_id", chainID.Uint64()),
		zap.Uint64("head", head),
		zap.String("pool", pool.Hex()),
		zap.String("db_host", cfg.Database.Host),
		zap.String("db_name", cfg.Database.Name),
		zap.String("metrics_addr", cfg.MetricsAddr),
	)

	err = runner.RunSupervised(ctx, watchers...)
	if err == nil || errors.Is(err, context.Canceled) {
		logger.Info("indexer stopped", zap.Uint64("persisted", runner.Persisted()))
		return nil
	}

	var stageErr *indexer.StageError
	if errors.As(err, &stageErr) {
		logger.Error("pipeline failed", zap.String("stage", string(stageErr.Stage)), zap.Error(stageErr.Err))
	} else {
		logger.Error("supervised task failed", zap.Error(err))
	}
	return err
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
