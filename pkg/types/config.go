package types

import "time"

// HTTPConfig holds shared HTTP settings for components that talk to
// external providers.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with provider requests
	// (e.g. "trendarb/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds the orchestrator's concurrency and retry settings.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxConcurrency bounds the number of in-flight fetches across the
	// whole batch, not per keyword (default 4). External providers share
	// rate limits, so the bound is global.
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`

	// MaxRetries is the number of retry attempts for a fetch that fails
	// with a transient error (default 3). Permanent errors never retry.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryBaseDelay is the starting backoff delay (default 2s). Each
	// retry doubles it and adds jitter.
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`

	// MaxBackoff caps the backoff delay (default 60s).
	MaxBackoff time.Duration `json:"max_backoff" yaml:"max_backoff"`
}

// ScoringMode selects the opportunity scoring formula variant.
type ScoringMode string

const (
	// ModeRatio multiplies the demand signal by (1 + momentum). The
	// default: most numerically stable at extreme supply values.
	ModeRatio ScoringMode = "ratio"

	// ModeBonus adds a configured momentum bonus to the demand signal
	// instead of multiplying.
	ModeBonus ScoringMode = "bonus"
)

// SaturationPenalty subtracts Penalty points from the raw score once
// TotalSupply reaches MinSupply. Only the highest crossed threshold applies.
type SaturationPenalty struct {
	MinSupply int     `json:"min_supply" yaml:"min_supply" mapstructure:"min_supply"`
	Penalty   float64 `json:"penalty" yaml:"penalty" mapstructure:"penalty"`
}

// ScoringConfig holds the scoring constants. The formula itself is a pure
// function of its inputs and this struct; no defaults hide inside the
// score package.
type ScoringConfig struct {
	// Mode selects the formula variant (default ratio).
	Mode ScoringMode `json:"mode" yaml:"mode"`

	// BaselineMonthlySearches converts the 0-100 interest scale into an
	// absolute monthly-search estimate (default 50000). Must be positive.
	BaselineMonthlySearches float64 `json:"baseline_monthly_searches" yaml:"baseline_monthly_searches"`

	// Normalizer divides the raw score into the 0-100 band (default 500).
	// Must be positive.
	Normalizer float64 `json:"normalizer" yaml:"normalizer"`

	// MomentumBonus weights momentum in bonus mode (default 5000).
	MomentumBonus float64 `json:"momentum_bonus" yaml:"momentum_bonus"`

	// SaturationPenalties lists supply thresholds and their penalties.
	SaturationPenalties []SaturationPenalty `json:"saturation_penalties" yaml:"saturation_penalties"`
}

// DefaultScoring returns the documented default scoring constants.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		Mode:                    ModeRatio,
		BaselineMonthlySearches: 50000,
		Normalizer:              500,
		MomentumBonus:           5000,
		SaturationPenalties: []SaturationPenalty{
			{MinSupply: 10000, Penalty: 10},
			{MinSupply: 20000, Penalty: 15},
		},
	}
}

// TrendsConfig holds settings for the demand provider.
type TrendsConfig struct {
	// Geo is the default region for interest queries (default "US").
	Geo string `json:"geo" yaml:"geo"`

	// Timeframe is the default history window (default "today 3-m").
	Timeframe string `json:"timeframe" yaml:"timeframe"`

	// RatePerMinute caps requests to the trends endpoint (default 10).
	RatePerMinute int `json:"rate_per_minute" yaml:"rate_per_minute"`
}

// SupplyConfig holds settings for the marketplace supply providers.
type SupplyConfig struct {
	// EnableEbay controls whether the eBay listing counter is used.
	EnableEbay bool `json:"enable_ebay" yaml:"enable_ebay"`

	// EnableAmazon controls whether the Amazon listing counter is used.
	EnableAmazon bool `json:"enable_amazon" yaml:"enable_amazon"`

	// AmazonDomain selects the Amazon storefront (default "amazon.com").
	AmazonDomain string `json:"amazon_domain" yaml:"amazon_domain"`

	// RatePerMinute caps requests per marketplace (default 12).
	RatePerMinute int `json:"rate_per_minute" yaml:"rate_per_minute"`
}

// StoreConfig holds settings for the run-history store.
type StoreConfig struct {
	// DataDir is the base directory for the SQLite database (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr"`

	// RequestTimeout bounds one /api/analyze run (default 5m).
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// Config groups all component configurations.
type Config struct {
	Fetch   FetchConfig   `json:"fetch" yaml:"fetch"`
	Scoring ScoringConfig `json:"scoring" yaml:"scoring"`
	Trends  TrendsConfig  `json:"trends" yaml:"trends"`
	Supply  SupplyConfig  `json:"supply" yaml:"supply"`
	Store   StoreConfig   `json:"store" yaml:"store"`
	Server  ServerConfig  `json:"server" yaml:"server"`
}
