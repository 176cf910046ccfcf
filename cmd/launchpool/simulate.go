package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchcurve/internal/config"
	"launchcurve/internal/engine"
	"launchcurve/internal/ledger"
	"launchcurve/internal/replay"
	"launchcurve/internal/storage"
	"launchcurve/internal/storage/postgres"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Trades == "" {
		return fmt.Errorf("trades path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	var stateStore replay.StateStore
	if cfg.StateFile != "" {
		stateStore = &replay.FileStateStore{Path: cfg.StateFile}
	} else if store != nil {
		stateStore = &replay.DBStateStore{Store: store, Name: "simulate:" + cfg.Trades}
	}

	mem := ledger.NewMemory()
	eng := engine.New(mem, logger)
	sink := storage.NewJsonlSink(cfg.Out)

	r := replay.NewReplayer(replay.Config{
		BatchSize:  cfg.BatchSize,
		StateStore: stateStore,
		FundEach:   cfg.FundEach,
	}, eng, mem, sink, store, logger)

	logger.Info("simulate start",
		zap.String("trades", cfg.Trades),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Uint64("fund_each", cfg.FundEach),
	)

	return r.Run(ctx, cfg.Trades)
}
