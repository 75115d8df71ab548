// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine orchestrates the analysis run: it fans out rate-limited
// demand and supply fetches per keyword under a global concurrency bound,
// retries transient failures with jittered backoff, degrades gracefully
// on permanent ones, and assembles the ranked opportunity batch.
// See docs/ARCHITECTURE § Orchestrator.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lafarch/trendArbitrage/internal/score"
	"github.com/lafarch/trendArbitrage/internal/source"
	"github.com/lafarch/trendArbitrage/internal/stats"
	"github.com/lafarch/trendArbitrage/pkg/types"
)

// ErrPartialRun marks a run cancelled before every keyword settled. The
// returned Batch still carries the keywords that completed in time.
var ErrPartialRun = errors.New("run cancelled before all keywords settled")

// Observer receives fetch outcomes; the HTTP server plugs Prometheus
// counters in here. Implementations must be safe for concurrent use.
type Observer interface {
	FetchCompleted(provider, outcome string)
}

type nopObserver struct{}

func (nopObserver) FetchCompleted(string, string) {}

// Engine runs opportunity analyses against the injected providers.
type Engine struct {
	demand  source.DemandSource
	supply  []source.SupplySource
	fetch   types.FetchConfig
	scoring types.ScoringConfig
	log     *zap.Logger
	obs     Observer
}

// New validates the scoring constants and builds an Engine. Invalid
// constants fail here, before any fetch starts.
func New(demand source.DemandSource, supply []source.SupplySource, fetch types.FetchConfig, scoring types.ScoringConfig, log *zap.Logger) (*Engine, error) {
	if demand == nil {
		return nil, errors.New("engine: a demand source is required")
	}
	if err := score.Validate(scoring); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	applyFetchDefaults(&fetch)

	return &Engine{
		demand:  demand,
		supply:  supply,
		fetch:   fetch,
		scoring: scoring,
		log:     log,
		obs:     nopObserver{},
	}, nil
}

// Observe registers obs for fetch outcomes. Call before Run.
func (e *Engine) Observe(obs Observer) {
	if obs != nil {
		e.obs = obs
	}
}

func applyFetchDefaults(cfg *types.FetchConfig) {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = time.Minute
	}
}

// Run analyzes every keyword in req and returns the ranked Batch. The
// caller always gets one result per distinct input keyword unless the
// context is cancelled first; in that case Run returns the settled
// results together with ErrPartialRun. An empty keyword list yields an
// empty Batch and no error.
func (e *Engine) Run(ctx context.Context, req types.RunRequest) (types.Batch, error) {
	batch := types.Batch{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Results:   []types.OpportunityResult{},
	}

	keywords := NormalizeKeywords(req.Keywords)
	if len(keywords) == 0 {
		batch.FinishedAt = time.Now().UTC()
		return batch, nil
	}

	e.log.Info("starting analysis run",
		zap.String("run_id", batch.RunID),
		zap.Int("keywords", len(keywords)),
		zap.Int("supply_sources", len(e.supply)),
		zap.Int("max_concurrency", e.fetch.MaxConcurrency))

	sem := make(chan struct{}, e.fetch.MaxConcurrency)

	type outcome struct {
		result  types.OpportunityResult
		aborted bool
	}
	ch := make(chan outcome, len(keywords))

	var wg sync.WaitGroup
	for _, kw := range keywords {
		wg.Add(1)
		go func(kw string) {
			defer wg.Done()
			result, aborted := e.analyzeKeyword(ctx, sem, kw, req.Timeframe)
			ch <- outcome{result: result, aborted: aborted}
		}(kw)
	}
	wg.Wait()
	close(ch)

	var results []types.OpportunityResult
	aborted := 0
	for o := range ch {
		if o.aborted {
			aborted++
			continue
		}
		results = append(results, o.result)
	}

	batch.Results = Rank(results)
	for _, r := range batch.Results {
		if r.Degraded() {
			batch.Degraded++
		}
	}
	batch.FinishedAt = time.Now().UTC()

	if aborted > 0 {
		batch.Partial = true
		e.log.Warn("run cancelled before completion",
			zap.String("run_id", batch.RunID),
			zap.Int("settled", len(results)),
			zap.Int("aborted", aborted))
		return batch, fmt.Errorf("%w (%d of %d keywords settled): %w",
			ErrPartialRun, len(results), len(keywords), ctx.Err())
	}

	e.log.Info("analysis run complete",
		zap.String("run_id", batch.RunID),
		zap.Int("results", len(batch.Results)),
		zap.Int("degraded", batch.Degraded),
		zap.Duration("elapsed", batch.FinishedAt.Sub(batch.StartedAt)))
	return batch, nil
}

// analyzeKeyword fetches demand and supply for one keyword concurrently
// and assembles its scored result. The aborted return is true when
// cancellation interrupted a fetch, meaning the keyword never settled.
func (e *Engine) analyzeKeyword(ctx context.Context, sem chan struct{}, keyword, timeframe string) (types.OpportunityResult, bool) {
	var inner sync.WaitGroup

	var series types.TimeSeries
	var demandErr error
	inner.Add(1)
	go func() {
		defer inner.Done()
		demandErr = e.withRetry(ctx, sem, e.demand.Name(), keyword, func(ctx context.Context) error {
			var err error
			series, err = e.demand.Fetch(ctx, keyword, timeframe)
			return err
		})
	}()

	type supplyOutcome struct {
		name  string
		count int
		err   error
	}
	outcomes := make([]supplyOutcome, len(e.supply))
	for i, s := range e.supply {
		inner.Add(1)
		go func(i int, s source.SupplySource) {
			defer inner.Done()
			var count int
			err := e.withRetry(ctx, sem, s.Name(), keyword, func(ctx context.Context) error {
				var err error
				count, err = s.Fetch(ctx, keyword)
				return err
			})
			outcomes[i] = supplyOutcome{name: s.Name(), count: count, err: err}
		}(i, s)
	}
	inner.Wait()

	if cancelled(demandErr) {
		return types.OpportunityResult{}, true
	}
	for _, o := range outcomes {
		if cancelled(o.err) {
			return types.OpportunityResult{}, true
		}
	}

	// A dead demand source degrades to the empty series: the keyword
	// still produces a result, with an honest zero score.
	if demandErr != nil {
		e.log.Warn("demand fetch failed permanently",
			zap.String("keyword", keyword), zap.Error(demandErr))
		series = nil
	}
	demandStats := stats.Compute(series)

	supply := make(map[string]int, len(outcomes))
	var unknown []string
	total := 0
	for _, o := range outcomes {
		if o.err != nil {
			e.log.Warn("supply fetch failed permanently",
				zap.String("keyword", keyword),
				zap.String("marketplace", o.name),
				zap.Error(o.err))
			unknown = append(unknown, o.name)
			continue
		}
		supply[o.name] = o.count
		total += o.count
	}
	sort.Strings(unknown)

	assessment := score.Score(demandStats, total, e.scoring)

	return types.OpportunityResult{
		Keyword:        keyword,
		Stats:          demandStats,
		Supply:         supply,
		SupplyUnknown:  unknown,
		TotalSupply:    total,
		Score:          assessment.Score,
		Tier:           assessment.Tier,
		Verdict:        assessment.Verdict,
		Diagnosis:      assessment.Diagnosis,
		DegradedSupply: len(unknown) > 0,
		History:        series,
	}, false
}

// withRetry runs one fetch under the global concurrency bound, retrying
// transient failures with exponential backoff and jitter. The semaphore
// slot is released during backoff sleeps so waiting fetches do not starve
// the pool.
func (e *Engine) withRetry(ctx context.Context, sem chan struct{}, provider, keyword string, fn func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		err := fn(ctx)
		<-sem

		e.obs.FetchCompleted(provider, outcomeLabel(err))

		if err == nil || !source.Retryable(err) || attempt >= e.fetch.MaxRetries {
			return err
		}

		delay := e.backoff(attempt)
		e.log.Warn("transient fetch failure, backing off",
			zap.String("provider", provider),
			zap.String("keyword", keyword),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", e.fetch.MaxRetries),
			zap.Duration("backoff", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// backoff doubles the base delay per attempt, caps it at MaxBackoff, and
// jitters the result into [d/2, d] so synchronized retries spread out.
func (e *Engine) backoff(attempt int) time.Duration {
	d := e.fetch.RetryBaseDelay << uint(attempt)
	if d <= 0 || d > e.fetch.MaxBackoff {
		d = e.fetch.MaxBackoff
	}
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + time.Duration(rand.Int64N(int64(half)+1))
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case source.Retryable(err):
		return "transient"
	default:
		return "permanent"
	}
}

func cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
