// Package fetcher retrieves page HTML over plain HTTP for offline rendering.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/purgedom/idgen"
)

// DefaultMaxBody caps a response body.
const DefaultMaxBody = 10 << 20

// Result is the outcome of an HTTP fetch.
type Result struct {
	ID         string
	URL        string // final URL after redirects
	HTML       []byte
	StatusCode int
	Sufficient bool // false when the body looks like a script-rendered shell
}

// Fetcher performs HTTP GETs.
type Fetcher struct {
	client  *http.Client
	ua      string
	maxBody int64
	logger  *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.ua = ua }
}

// WithMaxBody sets the largest body Fetch accepts.
func WithMaxBody(n int64) Option {
	return func(f *Fetcher) { f.maxBody = n }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		ua:      "Mozilla/5.0 (compatible; purgedom/1.0)",
		maxBody: DefaultMaxBody,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch GETs pageURL. Non-2xx statuses are errors.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	if err := checkURL(pageURL); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetcher: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetcher: do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetcher: %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := readLimited(resp.Body, f.maxBody)
	if err != nil {
		return nil, fmt.Errorf("fetcher: read body: %w", err)
	}

	res := &Result{
		ID:         idgen.New(),
		URL:        resp.Request.URL.String(),
		HTML:       body,
		StatusCode: resp.StatusCode,
		Sufficient: IsSufficient(body),
	}
	f.logger.Debug("fetcher: fetched",
		"url", res.URL, "status", resp.StatusCode,
		"size", len(body), "sufficient", res.Sufficient)
	return res, nil
}
