// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/time/rate"

	"github.com/lafarch/trendArbitrage/internal/httputil"
	"github.com/lafarch/trendArbitrage/pkg/types"
)

// amazonSearchBase overrides the storefront URL in tests; when empty the
// configured domain is used.
var amazonSearchBase = ""

// amazonCountPattern matches the result-count banner, e.g.
// "1-48 of over 2,000 results" or "de más de 643 resultados".
var amazonCountPattern = regexp.MustCompile(`(?i)(?:of|de)\s+(?:over\s+|más de\s+)?([\d,.]+)\s+(?:results|resultados)`)

// amazonCountFallback catches redesigned banners that drop the "of" part.
var amazonCountFallback = regexp.MustCompile(`(?i)([\d,.]+)\s+(?:results|resultados)`)

// Amazon counts marketplace listings from the Amazon search page.
type Amazon struct {
	client  *http.Client
	limiter *rate.Limiter
	domain  string
	ua      string
}

// NewAmazon builds the Amazon supply provider for the configured
// storefront domain (default "amazon.com").
func NewAmazon(client *http.Client, cfg types.SupplyConfig, hc types.HTTPConfig) *Amazon {
	domain := cfg.AmazonDomain
	if domain == "" {
		domain = "amazon.com"
	}
	return &Amazon{
		client:  client,
		limiter: supplyLimiter(cfg.RatePerMinute),
		domain:  domain,
		ua:      hc.UserAgent,
	}
}

// Name returns the marketplace identifier.
func (a *Amazon) Name() string { return "amazon" }

// Fetch returns the number of Amazon listings matching keyword. Amazon
// answers bot traffic with 503, which stays retryable; a captcha page
// behind a 200 is a permanent block.
func (a *Amazon) Fetch(ctx context.Context, keyword string) (int, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return 0, fmt.Errorf("empty keyword: %w", ErrMalformedKeyword)
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	base := amazonSearchBase
	if base == "" {
		base = "https://www." + a.domain + "/s"
	}
	reqURL := base + "?" + url.Values{"k": {keyword}}.Encode()

	body, status, err := httputil.Get(ctx, a.client, reqURL, a.ua)
	if err != nil {
		return 0, fmt.Errorf("amazon search request: %w", err)
	}
	if err := FromStatus(status); err != nil {
		return 0, fmt.Errorf("amazon search: %w", err)
	}
	if isInterstitial(body) {
		return 0, fmt.Errorf("amazon served a challenge page: %w", ErrBlocked)
	}

	if n := parseListingCount(body, amazonCountPattern); n > 0 {
		return n, nil
	}
	return parseListingCount(body, amazonCountFallback), nil
}
