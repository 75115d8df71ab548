// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lafarch/trendArbitrage/internal/httputil"
	"github.com/lafarch/trendArbitrage/pkg/types"
)

// Trends endpoints. Declared as vars so tests can substitute an httptest
// server.
var (
	trendsExploreURL   = "https://trends.google.com/trends/api/explore"
	trendsMultilineURL = "https://trends.google.com/trends/api/widgetdata/multiline"
	trendsDailyURL     = "https://trends.google.com/trends/api/dailytrends"
)

// GoogleTrends is the production DemandSource. Interest history comes
// from the two-step trends API: an explore call issues a widget token,
// and the multiline widget call returns the 0-100 series for that token.
// It also implements TrendingSource via the daily-trends feed.
type GoogleTrends struct {
	client  *http.Client
	limiter *rate.Limiter
	geo     string
	ua      string
}

// NewGoogleTrends builds the production demand provider. A zero or
// negative rate leaves requests unthrottled.
func NewGoogleTrends(client *http.Client, cfg types.TrendsConfig, hc types.HTTPConfig) *GoogleTrends {
	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RatePerMinute))
	}
	return &GoogleTrends{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		geo:     cfg.Geo,
		ua:      hc.UserAgent,
	}
}

// Name returns the provider identifier.
func (g *GoogleTrends) Name() string { return "google_trends" }

// Fetch returns the interest-over-time series for keyword. A keyword the
// provider has no history for yields an empty series and no error.
func (g *GoogleTrends) Fetch(ctx context.Context, keyword, timeframe string) (types.TimeSeries, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("empty keyword: %w", ErrMalformedKeyword)
	}

	widget, err := g.exploreWidget(ctx, keyword, timeframe)
	if err != nil {
		return nil, err
	}
	return g.fetchTimeline(ctx, widget)
}

// Trending returns the titles of the provider's daily trending searches
// for the given region.
func (g *GoogleTrends) Trending(ctx context.Context, geo string) ([]string, error) {
	if geo == "" {
		geo = g.geo
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := trendsDailyURL + "?" + url.Values{
		"hl":  {"en-US"},
		"tz":  {"360"},
		"geo": {geo},
	}.Encode()

	body, status, err := httputil.Get(ctx, g.client, reqURL, g.ua)
	if err != nil {
		return nil, fmt.Errorf("daily trends request: %w", err)
	}
	if err := FromStatus(status); err != nil {
		return nil, fmt.Errorf("daily trends: %w", err)
	}

	var daily dailyTrendsResponse
	if err := json.Unmarshal(stripJSONPrefix(body), &daily); err != nil {
		return nil, fmt.Errorf("parsing daily trends: %w", err)
	}

	var keywords []string
	for _, day := range daily.Default.TrendingSearchesDays {
		for _, t := range day.TrendingSearches {
			if q := strings.TrimSpace(t.Title.Query); q != "" {
				keywords = append(keywords, q)
			}
		}
	}
	return keywords, nil
}

// exploreWidget issues the explore call and returns the TIMESERIES widget
// holding the token for the timeline fetch.
func (g *GoogleTrends) exploreWidget(ctx context.Context, keyword, timeframe string) (*trendsWidget, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	exploreReq, err := json.Marshal(exploreRequest{
		ComparisonItem: []comparisonItem{{Keyword: keyword, Geo: g.geo, Time: timeframe}},
		Category:       0,
		Property:       "",
	})
	if err != nil {
		return nil, fmt.Errorf("encoding explore request: %w", err)
	}

	reqURL := trendsExploreURL + "?" + url.Values{
		"hl":  {"en-US"},
		"tz":  {"360"},
		"req": {string(exploreReq)},
	}.Encode()

	body, status, err := httputil.Get(ctx, g.client, reqURL, g.ua)
	if err != nil {
		return nil, fmt.Errorf("trends explore request: %w", err)
	}
	if err := FromStatus(status); err != nil {
		return nil, fmt.Errorf("trends explore: %w", err)
	}

	var explore exploreResponse
	if err := json.Unmarshal(stripJSONPrefix(body), &explore); err != nil {
		return nil, fmt.Errorf("parsing explore response: %w", err)
	}

	for i := range explore.Widgets {
		if explore.Widgets[i].ID == "TIMESERIES" {
			return &explore.Widgets[i], nil
		}
	}
	return nil, fmt.Errorf("explore response for %q has no timeseries widget: %w", keyword, ErrNotFound)
}

func (g *GoogleTrends) fetchTimeline(ctx context.Context, widget *trendsWidget) (types.TimeSeries, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := trendsMultilineURL + "?" + url.Values{
		"hl":    {"en-US"},
		"tz":    {"360"},
		"req":   {string(widget.Request)},
		"token": {widget.Token},
	}.Encode()

	body, status, err := httputil.Get(ctx, g.client, reqURL, g.ua)
	if err != nil {
		return nil, fmt.Errorf("trends timeline request: %w", err)
	}
	if err := FromStatus(status); err != nil {
		return nil, fmt.Errorf("trends timeline: %w", err)
	}

	var timeline multilineResponse
	if err := json.Unmarshal(stripJSONPrefix(body), &timeline); err != nil {
		return nil, fmt.Errorf("parsing timeline response: %w", err)
	}

	var series types.TimeSeries
	for _, p := range timeline.Default.TimelineData {
		if len(p.Value) == 0 {
			continue
		}
		secs, err := strconv.ParseInt(p.Time, 10, 64)
		if err != nil {
			continue
		}
		series = append(series, types.TimeSeriesPoint{
			Date:  time.Unix(secs, 0).UTC(),
			Value: float64(p.Value[0]),
		})
	}
	return series, nil
}

// stripJSONPrefix removes the anti-hijacking garbage prefix (")]}',")
// the trends endpoints prepend to every JSON payload.
func stripJSONPrefix(body []byte) []byte {
	if i := bytes.IndexAny(body, "{["); i > 0 {
		return body[i:]
	}
	return body
}

// Trends API wire structures.

type exploreRequest struct {
	ComparisonItem []comparisonItem `json:"comparisonItem"`
	Category       int              `json:"category"`
	Property       string           `json:"property"`
}

type comparisonItem struct {
	Keyword string `json:"keyword"`
	Geo     string `json:"geo"`
	Time    string `json:"time"`
}

type exploreResponse struct {
	Widgets []trendsWidget `json:"widgets"`
}

type trendsWidget struct {
	ID      string          `json:"id"`
	Token   string          `json:"token"`
	Request json.RawMessage `json:"request"`
}

type multilineResponse struct {
	Default struct {
		TimelineData []struct {
			Time  string    `json:"time"`
			Value []float64 `json:"value"`
		} `json:"timelineData"`
	} `json:"default"`
}

type dailyTrendsResponse struct {
	Default struct {
		TrendingSearchesDays []struct {
			TrendingSearches []struct {
				Title struct {
					Query string `json:"query"`
				} `json:"title"`
			} `json:"trendingSearches"`
		} `json:"trendingSearchesDays"`
	} `json:"default"`
}
