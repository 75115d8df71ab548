package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lafarch/trendArbitrage/pkg/types"
)

func supplyCfg() types.SupplyConfig {
	return types.SupplyConfig{RatePerMinute: 0} // unthrottled in tests
}

func httpCfg() types.HTTPConfig {
	return types.HTTPConfig{UserAgent: "trendarb-test/0.1"}
}

func withEbayServer(t *testing.T, handler http.HandlerFunc) *Ebay {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	old := ebaySearchURL
	ebaySearchURL = ts.URL
	t.Cleanup(func() { ebaySearchURL = old })

	return NewEbay(ts.Client(), supplyCfg(), httpCfg())
}

func withAmazonServer(t *testing.T, handler http.HandlerFunc) *Amazon {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	old := amazonSearchBase
	amazonSearchBase = ts.URL
	t.Cleanup(func() { amazonSearchBase = old })

	return NewAmazon(ts.Client(), supplyCfg(), httpCfg())
}

// --- eBay ---

func TestEbayFetchParsesResultCount(t *testing.T) {
	e := withEbayServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "clash royale plush", r.URL.Query().Get("_nkw"))
		w.Write([]byte(`<html><h1 class="srp-controls__count-heading">1,204 results for clash royale plush</h1></html>`))
	})

	n, err := e.Fetch(context.Background(), "clash royale plush")
	require.NoError(t, err)
	assert.Equal(t, 1204, n)
}

func TestEbayFetchPlusSuffix(t *testing.T) {
	e := withEbayServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>50+ results</html>`))
	})

	n, err := e.Fetch(context.Background(), "niche toy")
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}

func TestEbayFetchNoCountHeaderIsZero(t *testing.T) {
	e := withEbayServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><p>Try a different search term.</p></html>`))
	})

	n, err := e.Fetch(context.Background(), "zzzz nonsense")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEbayFetchRateLimited(t *testing.T) {
	e := withEbayServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := e.Fetch(context.Background(), "toy")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestEbayFetchChallengePageIsBlocked(t *testing.T) {
	e := withEbayServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>Pardon our interruption — please verify you are a human.</html>`))
	})

	_, err := e.Fetch(context.Background(), "toy")
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestEbayFetchEmptyKeyword(t *testing.T) {
	e := withEbayServer(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected for an empty keyword")
	})

	_, err := e.Fetch(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrMalformedKeyword)
}

// --- Amazon ---

func TestAmazonFetchParsesResultBanner(t *testing.T) {
	a := withAmazonServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "poppy playtime toy", r.URL.Query().Get("k"))
		w.Write([]byte(`<span>1-48 of over 2,000 results for "poppy playtime toy"</span>`))
	})

	n, err := a.Fetch(context.Background(), "poppy playtime toy")
	require.NoError(t, err)
	assert.Equal(t, 2000, n)
}

func TestAmazonFetchSpanishBanner(t *testing.T) {
	a := withAmazonServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<span>1 a 48 de más de 643 resultados</span>`))
	})

	n, err := a.Fetch(context.Background(), "peluche")
	require.NoError(t, err)
	assert.Equal(t, 643, n)
}

func TestAmazonFetchFallbackBanner(t *testing.T) {
	a := withAmazonServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<span>327 results</span>`))
	})

	n, err := a.Fetch(context.Background(), "toy")
	require.NoError(t, err)
	assert.Equal(t, 327, n)
}

func TestAmazonFetch503IsTransient(t *testing.T) {
	a := withAmazonServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := a.Fetch(context.Background(), "toy")
	assert.ErrorIs(t, err, ErrTransient)
	assert.True(t, Retryable(err))
}

func TestAmazonFetchCaptchaIsBlocked(t *testing.T) {
	a := withAmazonServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>Type the characters you see in this CAPTCHA image.</html>`))
	})

	_, err := a.Fetch(context.Background(), "toy")
	assert.ErrorIs(t, err, ErrBlocked)
	assert.False(t, Retryable(err))
}

// --- count parsing ---

func TestParseListingCount(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"plain", "72 results", 72},
		{"separator", "1,000 results", 1000},
		{"singular", "1 result", 1},
		{"no match", "nothing to see", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseListingCount([]byte(tt.body), ebayCountPattern)
			if got != tt.want {
				t.Errorf("parseListingCount(%q) = %d, want %d", tt.body, got, tt.want)
			}
		})
	}
}
