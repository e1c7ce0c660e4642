// SPDX-License-Identifier: MPL-2.0

package registrar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// maxFetchBytes caps the size of a downloaded key or descriptor (1 MB).
	maxFetchBytes = 1 << 20

	defaultFetchTimeout = 30 * time.Second
)

type (
	// Fetcher downloads small vendor artifacts over HTTP(S). Requests are
	// never retried.
	Fetcher struct {
		httpClient *http.Client
		userAgent  string
		maxBytes   int64
	}

	// FetcherOption configures a Fetcher.
	FetcherOption func(*Fetcher)

	// StatusError is returned when the server answers with a non-200 status.
	StatusError struct {
		URL        string
		StatusCode int
	}
)

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBytes overrides the response size cap.
func WithMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxBytes = n
	}
}

// NewFetcher creates a Fetcher with a 30s timeout and a 1 MB response cap.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{Timeout: defaultFetchTimeout},
		userAgent:  "odbcprov",
		maxBytes:   maxFetchBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the body of url. Responses larger than the cap are an error
// rather than being silently truncated.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", url, f.maxBytes)
	}
	return body, nil
}
