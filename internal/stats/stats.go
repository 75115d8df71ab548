// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stats derives demand statistics from search-interest series.
// Every function is pure and total: missing or insufficient data degrades
// to neutral zero values, never to an error.
// See docs/ARCHITECTURE § Demand Statistics.
package stats

import (
	"github.com/lafarch/trendArbitrage/pkg/types"
)

// Compute derives DemandStats from a series. An empty series yields the
// zero stats with InsufficientData set.
func Compute(series types.TimeSeries) types.DemandStats {
	if len(series) == 0 {
		return types.DemandStats{InsufficientData: true}
	}

	vals := series.Values()
	return types.DemandStats{
		MeanInterest: mean(vals),
		Momentum:     momentum(vals),
		Velocity:     velocity(vals),
	}
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// momentum compares the average of the last quarter of the series against
// the first quarter. Each window holds at least one point so series
// shorter than four points still produce a value. Decline floors at zero,
// and a zero early average defines momentum as zero rather than dividing
// by it.
func momentum(vals []float64) float64 {
	window := len(vals) / 4
	if window < 1 {
		window = 1
	}

	early := mean(vals[:window])
	recent := mean(vals[len(vals)-window:])

	if early == 0 {
		return 0
	}

	m := (recent - early) / early
	if m < 0 {
		return 0
	}
	return m
}

// velocity fits a least-squares line through (index, value) and scales the
// slope by (n-1)/100: a flat series maps to 0 and a monotone 0→100 ramp
// over the window maps to roughly 1.
func velocity(vals []float64) float64 {
	n := len(vals)
	if n < 2 {
		return 0
	}

	// Index mean is (n-1)/2 by construction.
	xMean := float64(n-1) / 2
	yMean := mean(vals)

	var num, den float64
	for i, v := range vals {
		dx := float64(i) - xMean
		num += dx * (v - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}

	slope := num / den
	return slope * float64(n-1) / 100
}
