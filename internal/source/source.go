// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source defines the demand and supply provider capabilities and
// their production implementations. Each provider is a one-method
// strategy so the orchestrator and tests can swap in fixed-data fakes.
// See docs/ARCHITECTURE § Source Adapters.
package source

import (
	"context"

	"github.com/lafarch/trendArbitrage/pkg/types"
)

// DemandSource fetches the search-interest history for one keyword.
// Implementations must be safe for concurrent use.
type DemandSource interface {
	Name() string
	Fetch(ctx context.Context, keyword, timeframe string) (types.TimeSeries, error)
}

// SupplySource counts marketplace listings matching one keyword.
// Implementations must be safe for concurrent use.
type SupplySource interface {
	Name() string
	Fetch(ctx context.Context, keyword string) (int, error)
}

// TrendingSource discovers currently trending search keywords; implemented
// by demand providers that expose a trending feed.
type TrendingSource interface {
	Trending(ctx context.Context, geo string) ([]string, error)
}
