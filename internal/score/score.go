// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score computes the bounded opportunity score and its
// human-readable verdict from demand statistics and a supply count.
// Scoring is a pure function of its inputs and the injected constants;
// it never fails and never emits NaN or infinities.
// See docs/ARCHITECTURE § Scoring.
package score

import (
	"fmt"
	"math"

	"github.com/lafarch/trendArbitrage/pkg/types"
)

// ConfigurationError reports invalid scoring constants. It fails a run
// before any fetch starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("scoring config: %s %s", e.Field, e.Reason)
}

// Validate checks the scoring constants. It returns a *ConfigurationError
// describing the first violation found.
func Validate(cfg types.ScoringConfig) error {
	switch cfg.Mode {
	case types.ModeRatio, types.ModeBonus:
	case "":
		return &ConfigurationError{Field: "mode", Reason: "is required"}
	default:
		return &ConfigurationError{Field: "mode", Reason: fmt.Sprintf("%q is not a known scoring mode", cfg.Mode)}
	}
	if cfg.BaselineMonthlySearches <= 0 {
		return &ConfigurationError{Field: "baseline_monthly_searches", Reason: "must be positive"}
	}
	if cfg.Normalizer <= 0 {
		return &ConfigurationError{Field: "normalizer", Reason: "must be positive"}
	}
	if cfg.Mode == types.ModeBonus && cfg.MomentumBonus < 0 {
		return &ConfigurationError{Field: "momentum_bonus", Reason: "must not be negative"}
	}
	for _, p := range cfg.SaturationPenalties {
		if p.MinSupply < 0 || p.Penalty < 0 {
			return &ConfigurationError{Field: "saturation_penalties", Reason: "thresholds and penalties must not be negative"}
		}
	}
	return nil
}

// Assessment is the scored outcome for one (demand, supply) pair.
type Assessment struct {
	Score     float64
	Tier      types.CompetitionTier
	Verdict   types.Verdict
	Diagnosis string
}

// Competition tier breakpoints on the total listing count.
const (
	tierBlueOceanMax = 100
	tierLowMax       = 500
	tierModerateMax  = 2000
	tierHighMax      = 10000
)

// Verdict breakpoints on the final score.
const (
	verdictStrongBuyMin = 70
	verdictConsiderMin  = 50
	verdictRiskyMin     = 30
)

// momentumStagnant is the floor under which momentum counts as stagnation
// in the diagnosis.
const momentumStagnant = 0.05

// Score maps demand statistics and a total supply count to a clamped
// opportunity score, competition tier, and verdict. cfg must have passed
// Validate; totalSupply must not be negative (callers record failed
// supply sources as unknown, never as a negative count).
//
// supplyPressure = log10(totalSupply + 10) is at least 1 by construction,
// so a zero-supply market cannot produce an unbounded score.
func Score(stats types.DemandStats, totalSupply int, cfg types.ScoringConfig) Assessment {
	tier := tierFor(totalSupply)

	if stats.InsufficientData {
		return Assessment{
			Score:     0,
			Tier:      tier,
			Verdict:   types.VerdictInsufficientData,
			Diagnosis: "no interest history available for this keyword",
		}
	}

	pressure := math.Log10(float64(totalSupply) + 10)
	demand := stats.MeanInterest / 100 * cfg.BaselineMonthlySearches

	var viability float64
	switch cfg.Mode {
	case types.ModeBonus:
		viability = demand + cfg.MomentumBonus*stats.Momentum
	default:
		viability = demand * (1 + stats.Momentum)
	}

	base := viability / pressure / cfg.Normalizer
	penalty := saturationPenalty(totalSupply, cfg.SaturationPenalties)
	final := clamp(base-penalty, 0, 100)

	// The unconstrained score is what the same demand would earn in a
	// pressure-free market (pressure fixed at its log10(10) = 1 floor).
	unconstrained := viability / cfg.Normalizer
	diag := diagnose(stats, unconstrained, base, penalty)

	return Assessment{
		Score:     final,
		Tier:      tier,
		Verdict:   verdictFor(final),
		Diagnosis: diag,
	}
}

func tierFor(totalSupply int) types.CompetitionTier {
	switch {
	case totalSupply < tierBlueOceanMax:
		return types.TierBlueOcean
	case totalSupply < tierLowMax:
		return types.TierLow
	case totalSupply < tierModerateMax:
		return types.TierModerate
	case totalSupply < tierHighMax:
		return types.TierHigh
	default:
		return types.TierExtreme
	}
}

func verdictFor(score float64) types.Verdict {
	switch {
	case score >= verdictStrongBuyMin:
		return types.VerdictStrongBuy
	case score >= verdictConsiderMin:
		return types.VerdictConsider
	case score >= verdictRiskyMin:
		return types.VerdictRisky
	default:
		return types.VerdictAvoid
	}
}

// saturationPenalty returns the penalty of the highest threshold the
// supply count has crossed.
func saturationPenalty(totalSupply int, penalties []types.SaturationPenalty) float64 {
	var best float64
	bestMin := -1
	for _, p := range penalties {
		if totalSupply >= p.MinSupply && p.MinSupply > bestMin {
			best = p.Penalty
			bestMin = p.MinSupply
		}
	}
	return best
}

// diagnose names the dominant limiting factor. When supply pressure and
// penalties account for more than half of the reduction from the
// unconstrained score, saturation gets the blame; otherwise the demand
// side does, split between stagnant momentum and weak base interest.
func diagnose(stats types.DemandStats, unconstrained, base, penalty float64) string {
	supplyReduction := (unconstrained - base) + penalty
	if unconstrained > 0 && supplyReduction > unconstrained/2 {
		return "market saturation: existing supply absorbs most of the demand signal"
	}
	if stats.Momentum < momentumStagnant {
		return "stagnant momentum: interest is not growing"
	}
	return "weak demand: mean search interest is the limiting factor"
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
