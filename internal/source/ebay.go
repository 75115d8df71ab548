// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lafarch/trendArbitrage/internal/httputil"
	"github.com/lafarch/trendArbitrage/pkg/types"
)

// ebaySearchURL is the eBay search page. Declared as a var so tests can
// substitute an httptest server.
var ebaySearchURL = "https://www.ebay.com/sch/i.html"

// ebayCountPattern matches the result-count header, e.g. "1,204 results"
// or "50+ results".
var ebayCountPattern = regexp.MustCompile(`(?i)([\d,]+)\+?\s+results?`)

// Ebay counts marketplace listings from the eBay search page.
type Ebay struct {
	client  *http.Client
	limiter *rate.Limiter
	ua      string
}

// NewEbay builds the eBay supply provider.
func NewEbay(client *http.Client, cfg types.SupplyConfig, hc types.HTTPConfig) *Ebay {
	return &Ebay{
		client:  client,
		limiter: supplyLimiter(cfg.RatePerMinute),
		ua:      hc.UserAgent,
	}
}

// Name returns the marketplace identifier.
func (e *Ebay) Name() string { return "ebay" }

// Fetch returns the number of eBay listings matching keyword. A search
// page without a result-count header counts as zero listings.
func (e *Ebay) Fetch(ctx context.Context, keyword string) (int, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return 0, fmt.Errorf("empty keyword: %w", ErrMalformedKeyword)
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	reqURL := ebaySearchURL + "?" + url.Values{"_nkw": {keyword}}.Encode()
	body, status, err := httputil.Get(ctx, e.client, reqURL, e.ua)
	if err != nil {
		return 0, fmt.Errorf("ebay search request: %w", err)
	}
	if err := FromStatus(status); err != nil {
		return 0, fmt.Errorf("ebay search: %w", err)
	}
	if isInterstitial(body) {
		return 0, fmt.Errorf("ebay served a challenge page: %w", ErrBlocked)
	}

	return parseListingCount(body, ebayCountPattern), nil
}

// supplyLimiter builds a per-marketplace rate limiter; zero or negative
// rates leave requests unthrottled.
func supplyLimiter(perMinute int) *rate.Limiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return rate.NewLimiter(limit, 1)
}

// parseListingCount extracts the first result count matching pattern,
// tolerating thousands separators. No match means the page rendered with
// no result header, which the marketplaces show for zero results.
func parseListingCount(body []byte, pattern *regexp.Regexp) int {
	m := pattern.FindSubmatch(body)
	if m == nil {
		return 0
	}
	digits := strings.NewReplacer(",", "", ".", "").Replace(string(m[1]))
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// isInterstitial detects captcha and bot-check pages that come back with
// HTTP 200 but carry no search results.
func isInterstitial(body []byte) bool {
	page := strings.ToLower(string(body))
	return strings.Contains(page, "captcha") ||
		strings.Contains(page, "pardon our interruption") ||
		strings.Contains(page, "verify you are a human")
}
