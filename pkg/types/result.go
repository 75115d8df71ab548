// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CompetitionTier classifies market saturation from the total listing count.
type CompetitionTier string

const (
	TierBlueOcean CompetitionTier = "blue_ocean" // < 100 listings
	TierLow       CompetitionTier = "low"        // < 500
	TierModerate  CompetitionTier = "moderate"   // < 2000
	TierHigh      CompetitionTier = "high"       // < 10000
	TierExtreme   CompetitionTier = "extreme"
)

// Verdict is the coarse buy/avoid recommendation derived from the score.
type Verdict string

const (
	VerdictStrongBuy        Verdict = "strong_buy" // score >= 70
	VerdictConsider         Verdict = "consider"   // score >= 50
	VerdictRisky            Verdict = "risky"      // score >= 30
	VerdictAvoid            Verdict = "avoid"
	VerdictInsufficientData Verdict = "insufficient_data"
)

// OpportunityResult is the scored outcome for one keyword. Results are
// immutable once placed in a Batch.
type OpportunityResult struct {
	// Keyword is the trimmed, case-preserved input keyword. Unique
	// within a Batch.
	Keyword string `json:"keyword" yaml:"keyword"`

	// Stats holds the derived demand statistics for History.
	Stats DemandStats `json:"stats" yaml:"stats"`

	// Supply maps marketplace name (e.g. "ebay", "amazon") to its
	// listing count. A marketplace absent from the map contributed 0;
	// marketplaces that failed permanently are listed in SupplyUnknown
	// instead, never silently recorded as 0.
	Supply map[string]int `json:"supply" yaml:"supply"`

	// SupplyUnknown names marketplaces whose fetch failed permanently,
	// sorted for determinism. Their counts are excluded from TotalSupply.
	SupplyUnknown []string `json:"supply_unknown,omitempty" yaml:"supply_unknown,omitempty"`

	// TotalSupply is the sum of the known Supply counts.
	TotalSupply int `json:"total_supply" yaml:"total_supply"`

	// Score is the opportunity score, clamped to [0, 100].
	Score float64 `json:"score" yaml:"score"`

	// Tier classifies competition from TotalSupply.
	Tier CompetitionTier `json:"tier" yaml:"tier"`

	// Verdict is the recommendation band for Score.
	Verdict Verdict `json:"verdict" yaml:"verdict"`

	// Diagnosis is a one-line explanation naming the dominant limiting
	// factor (saturation, weak demand, or stagnant momentum).
	Diagnosis string `json:"diagnosis" yaml:"diagnosis"`

	// DegradedSupply marks results whose TotalSupply is missing at least
	// one marketplace (reduced confidence).
	DegradedSupply bool `json:"degraded_supply" yaml:"degraded_supply"`

	// History is the raw interest series, kept for chart rendering.
	History TimeSeries `json:"history" yaml:"history"`
}

// Degraded reports whether the result is missing demand or supply data.
func (r OpportunityResult) Degraded() bool {
	return r.Stats.InsufficientData || r.DegradedSupply
}

// Batch is the ranked output of one analysis run: results sorted by
// descending score, ties broken by ascending keyword.
type Batch struct {
	RunID      string              `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time           `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time           `json:"finished_at" yaml:"finished_at"`
	Results    []OpportunityResult `json:"results" yaml:"results"`

	// Partial is set when the run was cancelled before every keyword
	// settled; Results then holds the keywords that completed in time.
	Partial bool `json:"partial" yaml:"partial"`

	// Degraded counts results with missing demand or supply data.
	Degraded int `json:"degraded" yaml:"degraded"`
}

// RunRequest describes one invocation of the analysis engine, as produced
// by the CLI or HTTP collaborators.
type RunRequest struct {
	// Keywords to analyze, in input order. Blank entries are dropped and
	// duplicates (after trimming and case-folding) collapse to one.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// Timeframe is the demand provider's history window (e.g. "today 3-m").
	Timeframe string `json:"timeframe" yaml:"timeframe"`

	// Geo is the two-letter region for the demand provider (e.g. "US").
	Geo string `json:"geo" yaml:"geo"`
}
