// Package collector pulls posts from public community feeds.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"coursescout/internal/logger"
	"coursescout/internal/models"
	"coursescout/internal/retry"
	"coursescout/internal/urlutil"
)

const (
	// SourceReddit tags posts collected from reddit.
	SourceReddit = "reddit"

	redditBaseURL = "https://www.reddit.com"
	deletedAuthor = "[deleted]"
)

// RedditOptions configures a Reddit collector.
type RedditOptions struct {
	BaseURL      string
	UserAgent    string
	Subreddits   []string
	PostLimit    int
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// DefaultRedditOptions returns the public listing endpoints and the
// 1s, 2s retry schedule.
func DefaultRedditOptions() RedditOptions {
	return RedditOptions{
		BaseURL:      redditBaseURL,
		UserAgent:    "CourseScoutAgent/0.1",
		Subreddits:   []string{"udemyfreebies", "FreeUdemyCoupons"},
		PostLimit:    50,
		Timeout:      10 * time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Second,
	}
}

// Reddit reads the newest posts of each configured subreddit through the
// public JSON listings, no OAuth.
type Reddit struct {
	client *http.Client
	opts   RedditOptions
	log    logger.Logger
}

// NewReddit creates a Reddit collector.
func NewReddit(opts RedditOptions, log logger.Logger) *Reddit {
	def := DefaultRedditOptions()
	if opts.BaseURL == "" {
		opts.BaseURL = def.BaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.PostLimit <= 0 {
		opts.PostLimit = def.PostLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Reddit{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		log:    log,
	}
}

type listing struct {
	Data struct {
		Children []struct {
			Data *redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Author     string  `json:"author"`
	CreatedUTC float64 `json:"created_utc"`
	Permalink  string  `json:"permalink"`
	URL        string  `json:"url"`
}

// Collect returns the posts of every subreddit in order. A subreddit whose
// listing cannot be fetched after retries is logged and skipped.
func (r *Reddit) Collect(ctx context.Context) []models.Post {
	var posts []models.Post
	for _, sub := range r.opts.Subreddits {
		endpoint := r.endpoint(sub)
		l, err := r.fetchListing(ctx, endpoint)
		if err != nil {
			r.log.Warn("skipping subreddit",
				logger.String("subreddit", sub),
				logger.String("endpoint", endpoint),
				logger.Error(err),
			)
			continue
		}
		for _, child := range l.Data.Children {
			if child.Data == nil || *child.Data == (redditPost{}) {
				continue
			}
			posts = append(posts, toPost(*child.Data, sub))
		}
		r.log.Info("collected subreddit", logger.String("subreddit", sub), logger.Int("posts", len(l.Data.Children)))
	}
	return posts
}

func (r *Reddit) endpoint(subreddit string) string {
	return fmt.Sprintf("%s/r/%s/new.json?limit=%d", r.opts.BaseURL, url.PathEscape(subreddit), r.opts.PostLimit)
}

func (r *Reddit) fetchListing(ctx context.Context, endpoint string) (*listing, error) {
	var l listing
	cfg := retry.Config{
		MaxAttempts:  r.opts.MaxRetries + 1,
		InitialDelay: r.opts.RetryBackoff,
		Multiplier:   2,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			r.log.Debug("listing fetch failed, retrying",
				logger.String("endpoint", endpoint),
				logger.Int("attempt", attempt),
				logger.Duration("backoff", delay),
				logger.Error(err),
			)
		},
	}
	err := retry.Do(ctx, cfg, func(int) error {
		l = listing{}
		return r.get(ctx, endpoint, &l)
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Reddit) get(ctx context.Context, endpoint string, into *listing) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", r.opts.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode listing: %w", err)
	}
	return nil
}

func toPost(p redditPost, subreddit string) models.Post {
	permalink := p.Permalink
	if permalink != "" && !strings.HasPrefix(permalink, "http") {
		permalink = redditBaseURL + permalink
	}

	outbound := urlutil.ExtractURLs(p.Selftext)
	if p.URL != "" && !urlutil.IsRedditLink(p.URL) && !slices.Contains(outbound, p.URL) {
		outbound = append(outbound, p.URL)
	}
	if outbound == nil {
		outbound = []string{}
	}

	author := p.Author
	if author == "" {
		author = deletedAuthor
	}

	return models.Post{
		PostID:       p.ID,
		Source:       SourceReddit,
		Subreddit:    subreddit,
		Title:        p.Title,
		Content:      p.Selftext,
		OutboundURLs: outbound,
		Author:       author,
		CreatedUTC:   int64(p.CreatedUTC),
		Permalink:    permalink,
	}
}
