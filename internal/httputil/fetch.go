// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the provider adapters.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes caps how much of a provider response is read into memory.
// Marketplace search pages run to a few hundred kB; anything past this is
// not where the result count lives.
const maxBodyBytes = 4 << 20

// Get issues a GET request with the given User-Agent and returns the
// response body and status code. The body is fully read (up to a fixed
// cap) and closed before returning, so callers never leak connections.
// Retry policy belongs to the caller; Get reports exactly one attempt.
func Get(ctx context.Context, client *http.Client, url, userAgent string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response body: %w", err)
	}
	return body, resp.StatusCode, nil
}
