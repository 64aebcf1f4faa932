// Package pipeline ties collection, candidate selection and validation
// together over one store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"coursescout/internal/logger"
	"coursescout/internal/models"
	"coursescout/internal/storage"
	"coursescout/internal/urlutil"
)

// Collector returns the posts currently visible in a feed.
type Collector interface {
	Collect(ctx context.Context) []models.Post
}

// Validator validates a batch of URLs.
type Validator interface {
	ValidateAll(ctx context.Context, urls []string) (models.Summary, error)
}

// CollectStats counts the outcome of one collection.
type CollectStats struct {
	Fetched    int `json:"fetched"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
}

// Options selects which stored links are validated.
type Options struct {
	// URLFilter keeps outbound URLs containing it, ignoring case.
	URLFilter string
	// FallbackURLs are validated when no stored link passes the filter.
	FallbackURLs []string
}

// Pipeline runs collect and validate against a post store.
type Pipeline struct {
	collector Collector
	posts     storage.PostStore
	validator Validator
	opts      Options
	log       logger.Logger
}

// New creates a Pipeline.
func New(collector Collector, posts storage.PostStore, validator Validator, opts Options, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{
		collector: collector,
		posts:     posts,
		validator: validator,
		opts:      opts,
		log:       log,
	}
}

// Collect fetches posts and stores the ones not seen before.
func (p *Pipeline) Collect(ctx context.Context) (CollectStats, error) {
	posts := p.collector.Collect(ctx)
	stats := CollectStats{Fetched: len(posts)}

	for i := range posts {
		err := p.posts.CreatePost(ctx, &posts[i])
		switch {
		case err == nil:
			stats.Inserted++
		case errors.Is(err, storage.ErrDuplicateKey):
			stats.Duplicates++
		default:
			p.log.Error("failed to store post", logger.String("post_id", posts[i].PostID), logger.Error(err))
			return stats, fmt.Errorf("store post %s: %w", posts[i].PostID, err)
		}
	}

	p.log.Info("collection finished",
		logger.Int("fetched", stats.Fetched),
		logger.Int("inserted", stats.Inserted),
		logger.Int("duplicates", stats.Duplicates),
	)
	return stats, nil
}

// CandidateURLs returns the stored outbound URLs that pass the filter, or the
// fallback list when none do.
func (p *Pipeline) CandidateURLs(ctx context.Context) ([]string, error) {
	posts, err := p.posts.GetAllPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}

	var all []string
	for _, post := range posts {
		all = append(all, post.OutboundURLs...)
	}
	urls := urlutil.FilterContaining(all, p.opts.URLFilter)
	if len(urls) == 0 {
		p.log.Info("no stored links match filter, using fallback list",
			logger.String("filter", p.opts.URLFilter),
			logger.Int("fallback", len(p.opts.FallbackURLs)),
		)
		return p.usableFallback(), nil
	}
	return urls, nil
}

// usableFallback drops fallback entries that are not absolute http(s) URLs.
func (p *Pipeline) usableFallback() []string {
	out := make([]string, 0, len(p.opts.FallbackURLs))
	for _, u := range p.opts.FallbackURLs {
		if err := urlutil.ValidateHTTP(u); err != nil {
			p.log.Warn("skipping fallback url", logger.String("url", u), logger.Error(err))
			continue
		}
		out = append(out, u)
	}
	return out
}

// Validate validates the current candidate URLs.
func (p *Pipeline) Validate(ctx context.Context) (models.Summary, error) {
	urls, err := p.CandidateURLs(ctx)
	if err != nil {
		return models.Summary{}, err
	}
	return p.validator.ValidateAll(ctx, urls)
}

// Run collects and then validates.
func (p *Pipeline) Run(ctx context.Context) (CollectStats, models.Summary, error) {
	stats, err := p.Collect(ctx)
	if err != nil {
		return stats, models.Summary{}, err
	}
	summary, err := p.Validate(ctx)
	return stats, summary, err
}

// WriteCollectReport prints collection counts, one per line.
func WriteCollectReport(w io.Writer, s CollectStats) error {
	_, err := fmt.Fprintf(w, "Total fetched: %d\nInserted: %d\nDuplicates: %d\n", s.Fetched, s.Inserted, s.Duplicates)
	return err
}

// WriteValidationReport prints validation counts, one per line.
func WriteValidationReport(w io.Writer, s models.Summary) error {
	_, err := fmt.Fprintf(w, "Total URLs: %d\nFreshly checked: %d\nFrom cache: %d\nVALID: %d\nINVALID: %d\nUNKNOWN: %d\n",
		s.Total, s.Fresh, s.Cached, s.Valid, s.Invalid, s.Unknown)
	return err
}
