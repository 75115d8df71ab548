// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the trendarb CLI.
// See docs/ARCHITECTURE § Command Surface, § Project Structure.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lafarch/trendArbitrage/internal/engine"
	"github.com/lafarch/trendArbitrage/internal/logging"
	"github.com/lafarch/trendArbitrage/internal/source"
	"github.com/lafarch/trendArbitrage/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the trendarb CLI.
var rootCmd = &cobra.Command{
	Use:   "trendarb",
	Short: "Rank product keywords by demand-versus-supply opportunity",
	Long: `trendarb combines search-interest history with marketplace listing counts
to score product keywords: high and rising interest against a thin supply of
listings scores well, saturated markets score poorly.

Analyze explicit keywords with 'analyze', discover candidates with 'trending',
browse past runs with 'runs', or run the HTTP API with 'serve'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Optional; provider cookies or proxy settings live here.
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading .env: %w", err)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./trendarb.yaml or ~/.config/trendarb/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("trendarb")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "trendarb"))
		}
	}

	setConfigDefaults()

	viper.SetEnvPrefix("TRENDARB")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setConfigDefaults() {
	viper.SetDefault("fetch.timeout", 30*time.Second)
	viper.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	viper.SetDefault("fetch.max_concurrency", 4)
	viper.SetDefault("fetch.max_retries", 3)
	viper.SetDefault("fetch.retry_base_delay", 2*time.Second)
	viper.SetDefault("fetch.max_backoff", time.Minute)

	defaults := types.DefaultScoring()
	viper.SetDefault("scoring.mode", string(defaults.Mode))
	viper.SetDefault("scoring.baseline_monthly_searches", defaults.BaselineMonthlySearches)
	viper.SetDefault("scoring.normalizer", defaults.Normalizer)
	viper.SetDefault("scoring.momentum_bonus", defaults.MomentumBonus)

	viper.SetDefault("trends.geo", "US")
	viper.SetDefault("trends.timeframe", "today 3-m")
	viper.SetDefault("trends.rate_per_minute", 10)

	viper.SetDefault("supply.enable_ebay", true)
	viper.SetDefault("supply.enable_amazon", true)
	viper.SetDefault("supply.amazon_domain", "amazon.com")
	viper.SetDefault("supply.rate_per_minute", 12)

	viper.SetDefault("store.data_dir", "data")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.request_timeout", 5*time.Minute)
}

// loadConfig materializes the full configuration from viper.
func loadConfig() (types.Config, error) {
	var cfg types.Config

	cfg.Fetch = types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("fetch.timeout"),
			UserAgent: viper.GetString("fetch.user_agent"),
		},
		MaxConcurrency: viper.GetInt("fetch.max_concurrency"),
		MaxRetries:     viper.GetInt("fetch.max_retries"),
		RetryBaseDelay: viper.GetDuration("fetch.retry_base_delay"),
		MaxBackoff:     viper.GetDuration("fetch.max_backoff"),
	}

	cfg.Scoring = types.DefaultScoring()
	cfg.Scoring.Mode = types.ScoringMode(viper.GetString("scoring.mode"))
	cfg.Scoring.BaselineMonthlySearches = viper.GetFloat64("scoring.baseline_monthly_searches")
	cfg.Scoring.Normalizer = viper.GetFloat64("scoring.normalizer")
	cfg.Scoring.MomentumBonus = viper.GetFloat64("scoring.momentum_bonus")
	if viper.IsSet("scoring.saturation_penalties") {
		cfg.Scoring.SaturationPenalties = nil
		if err := viper.UnmarshalKey("scoring.saturation_penalties", &cfg.Scoring.SaturationPenalties); err != nil {
			return cfg, fmt.Errorf("parsing scoring.saturation_penalties: %w", err)
		}
	}

	cfg.Trends = types.TrendsConfig{
		Geo:           viper.GetString("trends.geo"),
		Timeframe:     viper.GetString("trends.timeframe"),
		RatePerMinute: viper.GetInt("trends.rate_per_minute"),
	}

	cfg.Supply = types.SupplyConfig{
		EnableEbay:    viper.GetBool("supply.enable_ebay"),
		EnableAmazon:  viper.GetBool("supply.enable_amazon"),
		AmazonDomain:  viper.GetString("supply.amazon_domain"),
		RatePerMinute: viper.GetInt("supply.rate_per_minute"),
	}

	cfg.Store = types.StoreConfig{DataDir: viper.GetString("store.data_dir")}

	cfg.Server = types.ServerConfig{
		Addr:           viper.GetString("server.addr"),
		RequestTimeout: viper.GetDuration("server.request_timeout"),
	}

	return cfg, nil
}

// buildEngine constructs the providers and engine from cfg. The returned
// trends source also serves the trending subcommand and endpoint.
func buildEngine(cfg types.Config) (*engine.Engine, *source.GoogleTrends, error) {
	client := &http.Client{Timeout: cfg.Fetch.Timeout}

	trends := source.NewGoogleTrends(client, cfg.Trends, cfg.Fetch.HTTPConfig)

	var supply []source.SupplySource
	if cfg.Supply.EnableEbay {
		supply = append(supply, source.NewEbay(client, cfg.Supply, cfg.Fetch.HTTPConfig))
	}
	if cfg.Supply.EnableAmazon {
		supply = append(supply, source.NewAmazon(client, cfg.Supply, cfg.Fetch.HTTPConfig))
	}

	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logFormat, _ := rootCmd.PersistentFlags().GetString("log-format")
	log, err := logging.New(logLevel, logFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}

	eng, err := engine.New(trends, supply, cfg.Fetch, cfg.Scoring, log)
	if err != nil {
		return nil, nil, err
	}
	return eng, trends, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
