// Package validator runs a batch of URLs through fetch, classify and the
// verdict cache, and reports what it found.
package validator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"coursescout/internal/classifier"
	"coursescout/internal/logger"
	"coursescout/internal/models"
	"coursescout/internal/storage"
)

// DefaultTTL is how long a cached verdict is reused.
const DefaultTTL = 24 * time.Hour

const (
	sourceFresh  = "fresh"
	sourceCached = "cached"
)

// Fetcher fetches a single URL. Network failures are reported in the
// outcome, never as an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) models.FetchOutcome
}

// Orchestrator validates URLs one at a time against a verdict cache.
type Orchestrator struct {
	fetcher Fetcher
	cache   storage.VerdictCache
	rules   *classifier.Rules
	now     func() time.Time
	ttl     time.Duration
	log     logger.Logger
	metrics *Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithTTL sets how long cached verdicts stay fresh.
func WithTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) { o.ttl = ttl }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithMetrics enables metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithRules replaces the default classification rules.
func WithRules(r *classifier.Rules) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.rules = r
		}
	}
}

// New creates an Orchestrator.
func New(fetcher Fetcher, cache storage.VerdictCache, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher: fetcher,
		cache:   cache,
		rules:   classifier.DefaultRules(),
		now:     time.Now,
		ttl:     DefaultTTL,
		log:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ValidateAll validates each distinct URL in sorted order. A verdict checked
// less than the TTL ago is reused; anything else is fetched, classified and
// written back. A cache failure stops the batch and is returned together
// with the counts gathered so far.
func (o *Orchestrator) ValidateAll(ctx context.Context, urls []string) (models.Summary, error) {
	unique := dedupe(urls)
	summary := models.Summary{Total: len(unique)}
	if o.metrics != nil {
		o.metrics.BatchSize.Observe(float64(len(unique)))
	}

	for _, url := range unique {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		v, cached, err := o.validate(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return summary, err
			}
			if o.metrics != nil {
				o.metrics.StoreErrors.Inc()
			}
			o.log.Error("verdict cache failure", logger.String("url", url), logger.Error(err))
			return summary, err
		}

		source := sourceFresh
		if cached {
			summary.Cached++
			source = sourceCached
		} else {
			summary.Fresh++
		}
		summary.Add(v.Status)
		if o.metrics != nil {
			o.metrics.Verdicts.WithLabelValues(v.Status.String(), source).Inc()
		}

		o.log.Debug("url validated",
			logger.String("url", url),
			logger.String("status", v.Status.String()),
			logger.String("reason", v.Reason),
			logger.String("source", source),
		)
	}
	return summary, nil
}

func (o *Orchestrator) validate(ctx context.Context, url string) (models.Verdict, bool, error) {
	existing, err := o.cache.GetVerdict(ctx, url)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return models.Verdict{}, false, fmt.Errorf("read cached verdict: %w", err)
	case o.isFresh(*existing):
		return *existing, true, nil
	}

	start := time.Now()
	outcome := o.fetcher.Fetch(ctx, url)
	if o.metrics != nil {
		o.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}
	// An interrupted fetch says nothing about the URL; keep the old entry.
	if err := ctx.Err(); err != nil {
		return models.Verdict{}, false, err
	}

	v := o.rules.Classify(url, outcome, o.now())
	if err := o.cache.UpsertVerdict(ctx, v); err != nil {
		return models.Verdict{}, false, fmt.Errorf("store verdict: %w", err)
	}
	return v, false, nil
}

func (o *Orchestrator) isFresh(v models.Verdict) bool {
	age := o.now().Unix() - v.CheckedAt
	return age < int64(o.ttl/time.Second)
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
