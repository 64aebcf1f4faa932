package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"coursescout/internal/models"
	"coursescout/internal/storage"
	"coursescout/internal/storage/migrations"
)

// PostgresStore implements the storage.Storer interface for PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// New creates a new PostgresStore and establishes a connection to the database.
// It also runs migrations to ensure the schema is up to date.
func New(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	// goose needs database/sql; borrow the pool for the duration of the migration.
	sqlDB := stdlib.OpenDBFromPool(pool)
	err = migrations.Up(ctx, sqlDB, goose.DialectPostgres)
	_ = sqlDB.Close()
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{db: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

const verdictColumns = `url, status, reason, http_status, final_url, checked_at`

func scanVerdict(row pgx.Row) (*models.Verdict, error) {
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

// GetVerdict implements the Storer interface.
func (s *PostgresStore) GetVerdict(ctx context.Context, url string) (*models.Verdict, error) {
	query := `SELECT ` + verdictColumns + ` FROM url_validations WHERE url = $1`
	v, err := scanVerdict(s.db.QueryRow(ctx, query, url))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verdict: %w", err)
	}
	return v, nil
}

// UpsertVerdict implements the Storer interface.
func (s *PostgresStore) UpsertVerdict(ctx context.Context, v models.Verdict) error {
	query := `
	INSERT INTO url_validations (` + verdictColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (url) DO UPDATE SET
		status      = EXCLUDED.status,
		reason      = EXCLUDED.reason,
		http_status = EXCLUDED.http_status,
		final_url   = EXCLUDED.final_url,
		checked_at  = EXCLUDED.checked_at`
	_, err := s.db.Exec(ctx, query, v.URL, v.Status.String(), v.Reason, v.HTTPStatus, v.FinalURL, v.CheckedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert verdict: %w", err)
	}
	return nil
}

// ListVerdicts implements the Storer interface.
func (s *PostgresStore) ListVerdicts(ctx context.Context, params storage.ListVerdictsParams) ([]models.Verdict, error) {
	var args []interface{}
	qb := strings.Builder{}
	qb.WriteString("SELECT " + verdictColumns + " FROM url_validations WHERE 1=1")
	if params.Status != nil {
		args = append(args, params.Status.String())
		fmt.Fprintf(&qb, " AND status = $%d", len(args))
	}
	if params.AfterURL != "" {
		args = append(args, params.AfterURL)
		fmt.Fprintf(&qb, " AND url > $%d", len(args))
	}
	args = append(args, storage.PageLimit(params.Limit))
	fmt.Fprintf(&qb, " ORDER BY url LIMIT $%d", len(args))

	rows, err := s.db.Query(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list verdicts: %w", err)
	}
	defer rows.Close()

	var verdicts []models.Verdict
	for rows.Next() {
		v, err := scanVerdict(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		verdicts = append(verdicts, *v)
	}
	return verdicts, rows.Err()
}

const postColumns = `post_id, source, subreddit, title, content, url_list, author, created_utc, permalink, inserted_at`

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	var subreddit, title, content, author, permalink *string
	var createdUTC *int64
	var urlList string
	if err := row.Scan(&p.PostID, &p.Source, &subreddit, &title, &content, &urlList, &author, &createdUTC, &permalink, &p.InsertedAt); err != nil {
		return nil, err
	}
	p.Subreddit, p.Title, p.Content = deref(subreddit), deref(title), deref(content)
	p.Author, p.Permalink = deref(author), deref(permalink)
	if createdUTC != nil {
		p.CreatedUTC = *createdUTC
	}
	urls, err := storage.DecodeURLList(urlList)
	if err != nil {
		return nil, err
	}
	p.OutboundURLs = urls
	return &p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CreatePost implements the Storer interface.
func (s *PostgresStore) CreatePost(ctx context.Context, post *models.Post) error {
	if post.InsertedAt == 0 {
		post.InsertedAt = time.Now().Unix()
	}
	urlList, err := storage.EncodeURLList(post.OutboundURLs)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO posts (` + postColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (post_id) DO NOTHING`
	tag, err := s.db.Exec(ctx, query,
		post.PostID, post.Source, post.Subreddit, post.Title, post.Content,
		urlList, post.Author, post.CreatedUTC, post.Permalink, post.InsertedAt)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrDuplicateKey
	}
	return nil
}

// GetPost implements the Storer interface.
func (s *PostgresStore) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE post_id = $1`
	p, err := scanPost(s.db.QueryRow(ctx, query, postID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

// ListPosts implements the Storer interface.
func (s *PostgresStore) ListPosts(ctx context.Context, params storage.ListPostsParams) ([]models.Post, error) {
	var args []interface{}
	qb := strings.Builder{}
	qb.WriteString("SELECT " + postColumns + " FROM posts WHERE 1=1")
	if params.Subreddit != "" {
		args = append(args, params.Subreddit)
		fmt.Fprintf(&qb, " AND subreddit = $%d", len(args))
	}
	qb.WriteString(" ORDER BY created_utc DESC, post_id")
	if params.Limit > 0 {
		args = append(args, params.Limit)
		fmt.Fprintf(&qb, " LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// GetAllPosts implements the Storer interface.
func (s *PostgresStore) GetAllPosts(ctx context.Context) ([]models.Post, error) {
	return s.ListPosts(ctx, storage.ListPostsParams{})
}

var _ storage.Storer = (*PostgresStore)(nil)
