// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the trendArbitrage
// pipeline: search-interest time series, demand statistics, supply
// breakdowns, and scored opportunity results.
// See docs/ARCHITECTURE § Data Structures.
package types

import "time"

// TimeSeriesPoint is a single search-interest observation. Value is the
// normalized interest the demand provider reports for that date, on a
// 0-100 scale.
type TimeSeriesPoint struct {
	Date  time.Time `json:"date" yaml:"date"`
	Value float64   `json:"value" yaml:"value"`
}

// TimeSeries is an ordered-by-date sequence of interest observations.
// It may be empty when the provider has no history for a keyword; all
// consumers must handle the empty case without failing.
type TimeSeries []TimeSeriesPoint

// Values returns the raw interest values in series order.
func (s TimeSeries) Values() []float64 {
	vals := make([]float64, len(s))
	for i, p := range s {
		vals[i] = p.Value
	}
	return vals
}

// DemandStats summarizes a keyword's interest history. Stats degrade to
// zero values rather than failing: an empty series yields the zero stats
// with InsufficientData set, and callers must not read MeanInterest == 0
// as a real signal in that case.
type DemandStats struct {
	// MeanInterest is the arithmetic mean of all series values (0-100).
	MeanInterest float64 `json:"mean_interest" yaml:"mean_interest"`

	// Momentum is the normalized growth of the late window over the
	// early window. Decline is floored at zero so weak momentum never
	// penalizes a keyword beyond its base demand signal.
	Momentum float64 `json:"momentum" yaml:"momentum"`

	// Velocity is the normalized least-squares slope of the series. A
	// flat series yields 0; a full-range 0→100 ramp yields roughly 1.
	// Signed, unlike Momentum.
	Velocity float64 `json:"velocity" yaml:"velocity"`

	// InsufficientData marks stats derived from an empty series.
	InsufficientData bool `json:"insufficient_data" yaml:"insufficient_data"`
}
