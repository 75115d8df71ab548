// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Provider error taxonomy. Transient errors may be retried with backoff;
// permanent errors must not be, and the orchestrator records the affected
// signal as unknown instead.
var (
	// ErrRateLimited marks a provider throttling response (transient).
	ErrRateLimited = errors.New("rate limited by provider")

	// ErrTransient marks a provider or network failure worth retrying.
	ErrTransient = errors.New("transient provider error")

	// ErrBlocked marks a provider refusing to serve the client, e.g. a
	// captcha interstitial or a 403 (permanent).
	ErrBlocked = errors.New("blocked by provider")

	// ErrNotFound marks a keyword the provider has no data for (permanent).
	ErrNotFound = errors.New("keyword not found")

	// ErrMalformedKeyword marks input the provider cannot query (permanent).
	ErrMalformedKeyword = errors.New("malformed keyword")
)

// Retryable reports whether err is worth another attempt. Context
// cancellation is never retryable.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}

// FromStatus maps an HTTP status code to the provider error taxonomy.
// 2xx codes map to nil.
func FromStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("HTTP %d: %w", code, ErrRateLimited)
	case code == http.StatusForbidden:
		return fmt.Errorf("HTTP %d: %w", code, ErrBlocked)
	case code == http.StatusNotFound:
		return fmt.Errorf("HTTP %d: %w", code, ErrNotFound)
	case code == http.StatusRequestTimeout || code >= 500:
		return fmt.Errorf("HTTP %d: %w", code, ErrTransient)
	default:
		return fmt.Errorf("unexpected HTTP %d", code)
	}
}
