package storage

import (
	"context"
	"errors"

	"coursescout/internal/models"
)

var (
	// ErrDuplicateKey is returned when attempting to create a duplicate resource
	ErrDuplicateKey = errors.New("duplicate")
	// ErrNotFound is returned when a requested resource is not found
	ErrNotFound = errors.New("not found")
)

// ListVerdictsParams filters and paginates cached verdicts. Results are
// ordered by URL; AfterURL is the exclusive cursor.
type ListVerdictsParams struct {
	Status   *models.Status
	AfterURL string
	Limit    int
}

// ListPostsParams filters stored posts, newest first.
type ListPostsParams struct {
	Subreddit string
	Limit     int
}

// VerdictCache is a URL-keyed store of the latest verdict per URL.
// It has no notion of freshness; callers decide what is stale.
type VerdictCache interface {
	GetVerdict(ctx context.Context, url string) (*models.Verdict, error)
	UpsertVerdict(ctx context.Context, v models.Verdict) error
	ListVerdicts(ctx context.Context, params ListVerdictsParams) ([]models.Verdict, error)
}

// PostStore persists collected posts.
type PostStore interface {
	// CreatePost inserts post unless its PostID exists, in which case it
	// returns ErrDuplicateKey and leaves the stored row untouched.
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	ListPosts(ctx context.Context, params ListPostsParams) ([]models.Post, error)
	GetAllPosts(ctx context.Context) ([]models.Post, error)
}

// Storer is implemented by every storage backend.
type Storer interface {
	VerdictCache
	PostStore
	Close() error
}
