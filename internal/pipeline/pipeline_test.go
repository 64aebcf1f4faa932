package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursescout/internal/models"
	"coursescout/internal/storage"
	"coursescout/internal/storage/sqlite"
)

type staticCollector []models.Post

func (c staticCollector) Collect(ctx context.Context) []models.Post {
	out := make([]models.Post, len(c))
	copy(out, c)
	return out
}

type recordingValidator struct {
	got []string
	err error
}

func (v *recordingValidator) ValidateAll(ctx context.Context, urls []string) (models.Summary, error) {
	v.got = urls
	return models.Summary{Total: len(urls)}, v.err
}

func newStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()
	s, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var posts = staticCollector{
	{PostID: "p1", Source: "reddit", OutboundURLs: []string{"https://www.udemy.com/course/a/", "https://example.com/"}},
	{PostID: "p2", Source: "reddit", OutboundURLs: []string{"https://WWW.UDEMY.COM/course/b/"}},
}

func TestCollect_CountsInsertedAndDuplicates(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	p := New(posts, store, &recordingValidator{}, Options{URLFilter: "udemy.com"}, nil)

	stats, err := p.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, CollectStats{Fetched: 2, Inserted: 2}, stats)

	stats, err = p.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, CollectStats{Fetched: 2, Duplicates: 2}, stats)
}

func TestCandidateURLs_FilterAndFallback(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	fallback := []string{"https://www.udemy.com/course/fallback/"}

	p := New(posts, store, &recordingValidator{}, Options{URLFilter: "udemy.com", FallbackURLs: fallback}, nil)

	urls, err := p.CandidateURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, fallback, urls)

	_, err = p.Collect(ctx)
	require.NoError(t, err)

	urls, err = p.CandidateURLs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"https://www.udemy.com/course/a/", "https://WWW.UDEMY.COM/course/b/"}, urls)
}

func TestCandidateURLs_SkipsBadFallbackEntries(t *testing.T) {
	fallback := []string{"udemy.com/course/bare/", "https://www.udemy.com/course/ok/", "ftp://udemy.com/x"}
	p := New(staticCollector{}, newStore(t), &recordingValidator{}, Options{URLFilter: "udemy.com", FallbackURLs: fallback}, nil)

	urls, err := p.CandidateURLs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.udemy.com/course/ok/"}, urls)
}

func TestRun_PassesCandidatesToValidator(t *testing.T) {
	ctx := context.Background()
	v := &recordingValidator{}
	p := New(posts, newStore(t), v, Options{URLFilter: "example.com"}, nil)

	stats, summary, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, []string{"https://example.com/"}, v.got)
	assert.Equal(t, 1, summary.Total)
}

func TestValidate_PropagatesError(t *testing.T) {
	v := &recordingValidator{err: errors.New("store closed")}
	p := New(posts, newStore(t), v, Options{FallbackURLs: []string{"https://x.example/"}}, nil)

	_, err := p.Validate(context.Background())
	assert.EqualError(t, err, "store closed")
}

type failingPostStore struct{ storage.PostStore }

func (failingPostStore) CreatePost(ctx context.Context, post *models.Post) error {
	return errors.New("readonly database")
}

func TestCollect_StoreErrorIsFatal(t *testing.T) {
	p := New(posts, failingPostStore{}, &recordingValidator{}, Options{}, nil)

	stats, err := p.Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "p1")
	assert.Equal(t, 0, stats.Inserted)
}

func TestReports(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCollectReport(&buf, CollectStats{Fetched: 100, Inserted: 40, Duplicates: 60}))
	assert.Equal(t, "Total fetched: 100\nInserted: 40\nDuplicates: 60\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteValidationReport(&buf, models.Summary{Total: 6, Fresh: 4, Cached: 2, Valid: 3, Invalid: 2, Unknown: 1}))
	assert.Equal(t, "Total URLs: 6\nFreshly checked: 4\nFrom cache: 2\nVALID: 3\nINVALID: 2\nUNKNOWN: 1\n", buf.String())
}
