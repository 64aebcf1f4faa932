// Package fetcher retrieves course pages and reduces each response to the
// status code, final URL and a plain-text snippet of the body.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"

	"coursescout/internal/logger"
	"coursescout/internal/models"
	"coursescout/internal/retry"
)

// Options configures a Fetcher.
type Options struct {
	UserAgent     string
	Timeout       time.Duration
	MaxRetries    int           // additional attempts after the first one
	RetryBackoff  time.Duration // wait before the first retry, doubled for each one after
	SnippetLength int
	MaxRedirects  int
	MaxBodyBytes  int64
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		UserAgent:     "CourseScoutAgent/0.1",
		Timeout:       10 * time.Second,
		MaxRetries:    2,
		RetryBackoff:  500 * time.Millisecond,
		SnippetLength: 2000,
		MaxRedirects:  10,
		MaxBodyBytes:  5 << 20,
	}
}

// Fetcher performs page fetches with retry and backoff on transport failures.
type Fetcher struct {
	client *http.Client
	opts   Options
	log    logger.Logger
}

// New creates a Fetcher. Unset user agent, timeout, snippet length, redirect
// and body limits fall back to DefaultOptions; MaxRetries and RetryBackoff are
// taken as given.
func New(opts Options, log logger.Logger) *Fetcher {
	def := DefaultOptions()
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.SnippetLength <= 0 {
		opts.SnippetLength = def.SnippetLength
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = def.MaxRedirects
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = def.MaxBodyBytes
	}
	if log == nil {
		log = logger.NewNop()
	}

	maxRedirects := opts.MaxRedirects
	return &Fetcher{
		opts: opts,
		log:  log,
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
}

// Fetch GETs rawURL. Any HTTP response, whatever its status, is a result.
// Transport failures are retried; once retries are exhausted the returned
// outcome has no status, no final URL and an empty snippet.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) models.FetchOutcome {
	var outcome models.FetchOutcome

	cfg := retry.Config{
		MaxAttempts:  f.opts.MaxRetries + 1,
		InitialDelay: f.opts.RetryBackoff,
		Multiplier:   2,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			f.log.Debug("fetch attempt failed, retrying",
				logger.String("url", rawURL),
				logger.Int("attempt", attempt),
				logger.Duration("backoff", delay),
				logger.Error(err),
			)
		},
	}

	err := retry.Do(ctx, cfg, func(int) error {
		o, err := f.attempt(ctx, rawURL)
		if err != nil {
			return err
		}
		outcome = o
		return nil
	})
	if err != nil {
		f.log.Warn("fetch failed", logger.String("url", rawURL), logger.Error(err))
		return models.FetchOutcome{}
	}
	return outcome
}

func (f *Fetcher) attempt(ctx context.Context, rawURL string) (models.FetchOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return models.FetchOutcome{}, retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return models.FetchOutcome{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return models.FetchOutcome{}, fmt.Errorf("read body: %w", err)
	}

	status := resp.StatusCode
	finalURL := resp.Request.URL.String()
	return models.FetchOutcome{
		HTTPStatus:  &status,
		FinalURL:    &finalURL,
		BodySnippet: ExtractPlainText(decodeBody(raw, resp.Header.Get("Content-Type")), f.opts.SnippetLength),
	}, nil
}

// decodeBody converts the body to UTF-8 using the declared or sniffed charset.
func decodeBody(raw []byte, contentType string) string {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return string(raw)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
