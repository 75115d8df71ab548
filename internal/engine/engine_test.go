package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lafarch/trendArbitrage/internal/score"
	"github.com/lafarch/trendArbitrage/internal/source"
	"github.com/lafarch/trendArbitrage/pkg/types"
)

// --- fakes ---

type fakeDemand struct {
	fn func(ctx context.Context, keyword, timeframe string) (types.TimeSeries, error)
}

func (f *fakeDemand) Name() string { return "fake_demand" }

func (f *fakeDemand) Fetch(ctx context.Context, keyword, timeframe string) (types.TimeSeries, error) {
	return f.fn(ctx, keyword, timeframe)
}

type fakeSupply struct {
	name string
	fn   func(ctx context.Context, keyword string) (int, error)
}

func (f *fakeSupply) Name() string { return f.name }

func (f *fakeSupply) Fetch(ctx context.Context, keyword string) (int, error) {
	return f.fn(ctx, keyword)
}

func staticDemand(vals ...float64) *fakeDemand {
	return &fakeDemand{fn: func(context.Context, string, string) (types.TimeSeries, error) {
		start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
		s := make(types.TimeSeries, len(vals))
		for i, v := range vals {
			s[i] = types.TimeSeriesPoint{Date: start.AddDate(0, 0, i), Value: v}
		}
		return s, nil
	}}
}

func staticSupply(name string, count int) *fakeSupply {
	return &fakeSupply{name: name, fn: func(context.Context, string) (int, error) {
		return count, nil
	}}
}

func testFetchCfg() types.FetchConfig {
	return types.FetchConfig{
		MaxConcurrency: 8,
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func newTestEngine(t *testing.T, demand source.DemandSource, supply ...source.SupplySource) *Engine {
	t.Helper()
	e, err := New(demand, supply, testFetchCfg(), types.DefaultScoring(), nil)
	require.NoError(t, err)
	return e
}

// --- construction ---

func TestNewRejectsInvalidScoring(t *testing.T) {
	bad := types.DefaultScoring()
	bad.Normalizer = 0

	_, err := New(staticDemand(50), nil, testFetchCfg(), bad, nil)
	require.Error(t, err)

	var cfgErr *score.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewRequiresDemandSource(t *testing.T) {
	_, err := New(nil, nil, testFetchCfg(), types.DefaultScoring(), nil)
	assert.Error(t, err)
}

// --- happy path ---

func TestRunProducesOneResultPerKeyword(t *testing.T) {
	e := newTestEngine(t, staticDemand(40, 50, 60, 70),
		staticSupply("ebay", 120), staticSupply("amazon", 80))

	batch, err := e.Run(context.Background(), types.RunRequest{
		Keywords: []string{"bluey toys", "pokemon plush", "roblox toy"},
	})
	require.NoError(t, err)

	require.Len(t, batch.Results, 3)
	assert.False(t, batch.Partial)
	assert.Zero(t, batch.Degraded)
	assert.NotEmpty(t, batch.RunID)

	for _, r := range batch.Results {
		assert.Equal(t, 200, r.TotalSupply)
		assert.Equal(t, map[string]int{"ebay": 120, "amazon": 80}, r.Supply)
		assert.Empty(t, r.SupplyUnknown)
		assert.InDelta(t, 55.0, r.Stats.MeanInterest, 1e-9)
		assert.Len(t, r.History, 4)
	}
}

func TestRunEmptyKeywordsReturnsEmptyBatch(t *testing.T) {
	e := newTestEngine(t, staticDemand(50))

	batch, err := e.Run(context.Background(), types.RunRequest{})
	require.NoError(t, err)

	assert.NotNil(t, batch.Results)
	assert.Empty(t, batch.Results)
	assert.False(t, batch.Partial)
}

func TestRunCollapsesDuplicateKeywords(t *testing.T) {
	e := newTestEngine(t, staticDemand(50), staticSupply("ebay", 10))

	batch, err := e.Run(context.Background(), types.RunRequest{
		Keywords: []string{" Bluey Toys ", "bluey toys", "bluey plush", "BLUEY TOYS"},
	})
	require.NoError(t, err)

	// Two distinct keywords after trimming and case-folding.
	require.Len(t, batch.Results, 2)
	keywords := []string{batch.Results[0].Keyword, batch.Results[1].Keyword}
	assert.Contains(t, keywords, "Bluey Toys")
	assert.Contains(t, keywords, "bluey plush")
}

func TestRunRanksByScoreThenKeyword(t *testing.T) {
	// Same demand everywhere; supply drives the score apart.
	supplies := map[string]int{"scarce": 20, "mid": 900, "crowded": 40000}
	supply := &fakeSupply{name: "ebay", fn: func(_ context.Context, kw string) (int, error) {
		return supplies[kw], nil
	}}
	e := newTestEngine(t, staticDemand(50, 60, 70, 80), supply)

	batch, err := e.Run(context.Background(), types.RunRequest{
		Keywords: []string{"crowded", "scarce", "mid"},
	})
	require.NoError(t, err)

	require.Len(t, batch.Results, 3)
	assert.Equal(t, "scarce", batch.Results[0].Keyword)
	assert.Equal(t, "mid", batch.Results[1].Keyword)
	assert.Equal(t, "crowded", batch.Results[2].Keyword)
	for i := 1; i < len(batch.Results); i++ {
		assert.GreaterOrEqual(t, batch.Results[i-1].Score, batch.Results[i].Score)
	}
}

// --- partial failure ---

func TestRunSupplySourceFailsPermanently(t *testing.T) {
	blocked := &fakeSupply{name: "amazon", fn: func(context.Context, string) (int, error) {
		return 0, fmt.Errorf("challenge page: %w", source.ErrBlocked)
	}}
	e := newTestEngine(t, staticDemand(60, 70, 80),
		staticSupply("ebay", 45), staticSupply("etsy", 30), blocked)

	batch, err := e.Run(context.Background(), types.RunRequest{Keywords: []string{"poppy playtime toy"}})
	require.NoError(t, err)

	require.Len(t, batch.Results, 1)
	r := batch.Results[0]

	// The failed marketplace is recorded as unknown, not as zero.
	assert.Equal(t, []string{"amazon"}, r.SupplyUnknown)
	assert.Equal(t, 75, r.TotalSupply)
	assert.True(t, r.DegradedSupply)
	assert.Equal(t, 1, batch.Degraded)
	assert.Greater(t, r.Score, 0.0)
	assert.NotEqual(t, types.VerdictInsufficientData, r.Verdict)
}

func TestRunDemandFailsPermanently(t *testing.T) {
	deadDemand := &fakeDemand{fn: func(context.Context, string, string) (types.TimeSeries, error) {
		return nil, fmt.Errorf("no data: %w", source.ErrNotFound)
	}}
	e := newTestEngine(t, deadDemand, staticSupply("ebay", 500))

	batch, err := e.Run(context.Background(), types.RunRequest{Keywords: []string{"mystery gadget"}})
	require.NoError(t, err)

	// The keyword is never dropped; it degrades to insufficient data.
	require.Len(t, batch.Results, 1)
	r := batch.Results[0]
	assert.True(t, r.Stats.InsufficientData)
	assert.Zero(t, r.Score)
	assert.Equal(t, types.VerdictInsufficientData, r.Verdict)
	assert.Equal(t, 500, r.TotalSupply)
	assert.Equal(t, 1, batch.Degraded)
}

// --- retry policy ---

func TestRunRetriesTransientFailures(t *testing.T) {
	var calls int32
	flaky := &fakeSupply{name: "ebay", fn: func(context.Context, string) (int, error) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			return 0, fmt.Errorf("throttled: %w", source.ErrRateLimited)
		}
		return 64, nil
	}}
	e := newTestEngine(t, staticDemand(50), flaky)

	batch, err := e.Run(context.Background(), types.RunRequest{Keywords: []string{"toy"}})
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	require.Len(t, batch.Results, 1)
	assert.Equal(t, 64, batch.Results[0].TotalSupply)
	assert.False(t, batch.Results[0].DegradedSupply)
}

func TestRunDoesNotRetryPermanentFailures(t *testing.T) {
	var calls int32
	blocked := &fakeSupply{name: "amazon", fn: func(context.Context, string) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, source.ErrBlocked
	}}
	e := newTestEngine(t, staticDemand(50), blocked)

	batch, err := e.Run(context.Background(), types.RunRequest{Keywords: []string{"toy"}})
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, []string{"amazon"}, batch.Results[0].SupplyUnknown)
}

func TestRunExhaustsRetriesThenDegrades(t *testing.T) {
	var calls int32
	alwaysThrottled := &fakeSupply{name: "ebay", fn: func(context.Context, string) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, source.ErrRateLimited
	}}
	cfg := testFetchCfg()
	cfg.MaxRetries = 2
	e, err := New(staticDemand(50), []source.SupplySource{alwaysThrottled}, cfg, types.DefaultScoring(), nil)
	require.NoError(t, err)

	batch, err := e.Run(context.Background(), types.RunRequest{Keywords: []string{"toy"}})
	require.NoError(t, err)

	// 1 initial + 2 retries.
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.True(t, batch.Results[0].DegradedSupply)
}

// --- concurrency ---

func TestRunBoundsConcurrency(t *testing.T) {
	const bound = 2
	var inFlight, peak int32
	var mu sync.Mutex

	track := func() func() {
		n := atomic.AddInt32(&inFlight, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(3 * time.Millisecond)
		return func() { atomic.AddInt32(&inFlight, -1) }
	}

	demand := &fakeDemand{fn: func(context.Context, string, string) (types.TimeSeries, error) {
		defer track()()
		return types.TimeSeries{{Value: 50}}, nil
	}}
	supply := &fakeSupply{name: "ebay", fn: func(context.Context, string) (int, error) {
		defer track()()
		return 10, nil
	}}

	cfg := testFetchCfg()
	cfg.MaxConcurrency = bound
	e, err := New(demand, []source.SupplySource{supply}, cfg, types.DefaultScoring(), nil)
	require.NoError(t, err)

	keywords := make([]string, 10)
	for i := range keywords {
		keywords[i] = fmt.Sprintf("keyword %d", i)
	}
	_, err = e.Run(context.Background(), types.RunRequest{Keywords: keywords})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int32(bound))
}

// --- cancellation ---

func TestRunCancellationReturnsPartialBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fastSettled := make(chan struct{})

	demand := &fakeDemand{fn: func(ctx context.Context, kw, _ string) (types.TimeSeries, error) {
		if kw == "fast" {
			defer close(fastSettled)
			return types.TimeSeries{{Value: 70}}, nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	e := newTestEngine(t, demand)

	go func() {
		<-fastSettled
		cancel()
	}()

	batch, err := e.Run(ctx, types.RunRequest{Keywords: []string{"fast", "slow"}})

	require.ErrorIs(t, err, ErrPartialRun)
	assert.True(t, batch.Partial)
	require.Len(t, batch.Results, 1)
	assert.Equal(t, "fast", batch.Results[0].Keyword)
}

// --- helpers ---

func TestNormalizeKeywords(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, nil},
		{"blank entries dropped", []string{"", "  ", "toy"}, []string{"toy"}},
		{"trimmed", []string{"  bluey toys  "}, []string{"bluey toys"}},
		{"case-insensitive dedup keeps first casing", []string{"Bluey", "bluey", "BLUEY"}, []string{"Bluey"}},
		{"order preserved", []string{"b", "a", "B"}, []string{"b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeKeywords(tt.in))
		})
	}
}

func TestRankOrdering(t *testing.T) {
	results := []types.OpportunityResult{
		{Keyword: "zebra", Score: 40},
		{Keyword: "apple", Score: 40},
		{Keyword: "mango", Score: 90},
		{Keyword: "kiwi", Score: 10},
	}

	ranked := Rank(results)

	want := []string{"mango", "apple", "zebra", "kiwi"}
	for i, r := range ranked {
		assert.Equal(t, want[i], r.Keyword, "position %d", i)
	}

	// Input order is untouched.
	assert.Equal(t, "zebra", results[0].Keyword)
}
