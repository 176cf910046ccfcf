package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "launchpool",
		Short:        "Bonding-curve launch pool engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a trade script through the engine",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("trades", "", "input trade script JSONL")
	simulateCmd.Flags().String("out", "./data/events.jsonl", "output events JSONL path")
	simulateCmd.Flags().String("pg-dsn", "", "optional Postgres DSN")
	simulateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	simulateCmd.Flags().Int("batch-size", 100, "batch size for sink writes")
	simulateCmd.Flags().Uint64("fund-each", 0, "lamports credited to each user label on first sight")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price one trade against the curve without executing it",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("side", "buy", "trade side (buy or sell)")
	quoteCmd.Flags().Uint64("sol-reserve", 0, "pool sol reserve in lamports")
	quoteCmd.Flags().Uint64("token-reserve", 0, "pool token reserve in base units")
	quoteCmd.Flags().Uint64("amount", 0, "amount in (lamports for buy, base units for sell)")
	quoteCmd.Flags().Uint16("fee-bps", 0, "fee in basis points")

	root.AddCommand(quoteCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
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

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
