// Package crawler retrieves pages and detects transport-level and
// environment signals (HTTPS, robots.txt, sitemap, llms.txt, markup
// signals such as structured data and viewport).
package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; LLMO-Checker/1.0)"

// FetchError wraps a page retrieval failure: network error, timeout,
// or a non-success status after redirects.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FetchResult is the raw material for a diagnosis run.
type FetchResult struct {
	HTML       string
	StatusCode int
	LoadTimeMs int
	ByteSize   int
}

// Options control a single fetch.
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

func (o Options) withDefaults() Options {
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	return o
}

// Fetcher retrieves a page for diagnosis.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts Options) (*FetchResult, error)
}

// HTTPFetcher fetches pages with a tuned net/http client. It is the
// default fetcher; JS-rendered pages need the browser fetcher instead.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher with connection pooling and
// keep-alive tuned for repeated diagnosis runs.
func NewHTTPFetcher() *HTTPFetcher {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{Transport: transport},
	}
}

// Fetch retrieves the page and measures load latency and byte size.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, opts Options) (*FetchResult, error) {
	opts = opts.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", opts.UserAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	loadTime := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	return &FetchResult{
		HTML:       buf.String(),
		StatusCode: resp.StatusCode,
		LoadTimeMs: int(loadTime.Milliseconds()),
		ByteSize:   buf.Len(),
	}, nil
}
