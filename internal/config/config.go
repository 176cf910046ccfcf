package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SimulateConfig holds configuration for the simulate command, merged from
// flags, environment, and an optional config file.
type SimulateConfig struct {
	Trades    string
	Out       string
	PGDSN     string
	StateFile string
	BatchSize int
	FundEach  uint64
	LogLevel  string
}

// LoadSimulate merges config file, environment variables, and flags.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return SimulateConfig{}, err
	}

	v.SetDefault("out", "./data/events.jsonl")
	v.SetDefault("batch-size", 100)
	v.SetDefault("fund-each", uint64(0))
	v.SetDefault("log-level", "info")

	cfg := SimulateConfig{
		Trades:    v.GetString("trades"),
		Out:       v.GetString("out"),
		PGDSN:     v.GetString("pg-dsn"),
		StateFile: v.GetString("state-file"),
		BatchSize: v.GetInt("batch-size"),
		FundEach:  v.GetUint64("fund-each"),
		LogLevel:  v.GetString("log-level"),
	}

	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("LAUNCHPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}
