package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"coursescout/internal/models"
	"coursescout/internal/storage"
	"coursescout/internal/storage/migrations"
)

// SQLiteStore implements the storage.Storer interface for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database file (or ":memory:") and brings the schema up to date.
// The pool holds a single connection: one writer at a time, and an in-memory
// database stays the same database for the life of the store.
func New(ctx context.Context, dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", withPragmas(dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	if err := migrations.Up(ctx, db, goose.DialectSQLite3); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

const verdictColumns = `url, status, reason, http_status, final_url, checked_at`

func scanVerdict(row rowScanner) (*models.Verdict, error) {
	var v models.Verdict
	var status string
	if err := row.Scan(&v.URL, &status, &v.Reason, &v.HTTPStatus, &v.FinalURL, &v.CheckedAt); err != nil {
		return nil, err
	}
	parsed, err := models.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	v.Status = parsed
	return &v, nil
}

// GetVerdict returns the cached verdict for url.
func (s *SQLiteStore) GetVerdict(ctx context.Context, url string) (*models.Verdict, error) {
	query := `SELECT ` + verdictColumns + ` FROM url_validations WHERE url = ?`
	v, err := scanVerdict(s.db.QueryRowContext(ctx, query, url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verdict: %w", err)
	}
	return v, nil
}

// UpsertVerdict inserts v or overwrites every column of the existing row.
func (s *SQLiteStore) UpsertVerdict(ctx context.Context, v models.Verdict) error {
	query := `
INSERT INTO url_validations (` + verdictColumns + `)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
	status      = excluded.status,
	reason      = excluded.reason,
	http_status = excluded.http_status,
	final_url   = excluded.final_url,
	checked_at  = excluded.checked_at`
	_, err := s.db.ExecContext(ctx, query, v.URL, v.Status.String(), v.Reason, v.HTTPStatus, v.FinalURL, v.CheckedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert verdict: %w", err)
	}
	return nil
}

// ListVerdicts retrieves a page of cached verdicts ordered by URL.
func (s *SQLiteStore) ListVerdicts(ctx context.Context, params storage.ListVerdictsParams) ([]models.Verdict, error) {
	var args []interface{}
	qb := strings.Builder{}
	qb.WriteString("SELECT " + verdictColumns + " FROM url_validations WHERE 1=1")
	if params.Status != nil {
		args = append(args, params.Status.String())
		qb.WriteString(" AND status = ?")
	}
	if params.AfterURL != "" {
		args = append(args, params.AfterURL)
		qb.WriteString(" AND url > ?")
	}
	qb.WriteString(" ORDER BY url LIMIT ?")
	args = append(args, storage.PageLimit(params.Limit))

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list verdicts: %w", err)
	}
	defer rows.Close()

	var verdicts []models.Verdict
	for rows.Next() {
		v, err := scanVerdict(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verdict row: %w", err)
		}
		verdicts = append(verdicts, *v)
	}
	return verdicts, rows.Err()
}

const postColumns = `post_id, source, subreddit, title, content, url_list, author, created_utc, permalink, inserted_at`

func scanPost(row rowScanner) (*models.Post, error) {
	var p models.Post
	var subreddit, title, content, author, permalink sql.NullString
	var createdUTC sql.NullInt64
	var urlList string
	if err := row.Scan(&p.PostID, &p.Source, &subreddit, &title, &content, &urlList, &author, &createdUTC, &permalink, &p.InsertedAt); err != nil {
		return nil, err
	}
	p.Subreddit, p.Title, p.Content = subreddit.String, title.String, content.String
	p.Author, p.Permalink, p.CreatedUTC = author.String, permalink.String, createdUTC.Int64
	urls, err := storage.DecodeURLList(urlList)
	if err != nil {
		return nil, err
	}
	p.OutboundURLs = urls
	return &p, nil
}

// CreatePost saves post unless a post with the same ID is already stored.
func (s *SQLiteStore) CreatePost(ctx context.Context, post *models.Post) error {
	if post.InsertedAt == 0 {
		post.InsertedAt = time.Now().Unix()
	}
	urlList, err := storage.EncodeURLList(post.OutboundURLs)
	if err != nil {
		return err
	}

	query := `
INSERT INTO posts (` + postColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(post_id) DO NOTHING`
	res, err := s.db.ExecContext(ctx, query,
		post.PostID, post.Source, post.Subreddit, post.Title, post.Content,
		urlList, post.Author, post.CreatedUTC, post.Permalink, post.InsertedAt)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		return storage.ErrDuplicateKey
	}
	return nil
}

// GetPost retrieves a single post by its ID.
func (s *SQLiteStore) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE post_id = ?`
	p, err := scanPost(s.db.QueryRowContext(ctx, query, postID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

// ListPosts retrieves posts newest first. A non-positive limit returns all.
func (s *SQLiteStore) ListPosts(ctx context.Context, params storage.ListPostsParams) ([]models.Post, error) {
	var args []interface{}
	qb := strings.Builder{}
	qb.WriteString("SELECT " + postColumns + " FROM posts WHERE 1=1")
	if params.Subreddit != "" {
		args = append(args, params.Subreddit)
		qb.WriteString(" AND subreddit = ?")
	}
	qb.WriteString(" ORDER BY created_utc DESC, post_id")
	if params.Limit > 0 {
		args = append(args, params.Limit)
		qb.WriteString(" LIMIT ?")
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// GetAllPosts retrieves every stored post.
func (s *SQLiteStore) GetAllPosts(ctx context.Context) ([]models.Post, error) {
	return s.ListPosts(ctx, storage.ListPostsParams{})
}

var _ storage.Storer = (*SQLiteStore)(nil)

