// Package store persists a record of each completed review for operational
// visibility. Nothing in the review pipeline reads these records back; they
// exist so an operator can answer "what did we post on PR X last Tuesday"
// without re-querying Bitbucket.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, CGO-free

	"github.com/miracodeai/mira/internal/diffreview/domain"
)

// ReviewRecord is one persisted review outcome, keyed by the PR identity it
// ran against.
type ReviewRecord struct {
	ID         string
	ProjectKey string
	RepoSlug   string
	PRNumber   int
	Result     *domain.ReviewResult
	CreatedAt  time.Time
	DurationMs int64
	Status     string // success, error
}

// Store persists ReviewRecords.
type Store interface {
	SaveReview(ctx context.Context, record *ReviewRecord) error
	ListReviewsByPR(ctx context.Context, projectKey, repoSlug string, prNumber int) ([]*ReviewRecord, error)
	ListRecentReviews(ctx context.Context, limit int) ([]*ReviewRecord, error)
	Close() error
}

// SQLiteStore is the production Store, backed by a single local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite-backed Store at dsn.
func Open(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable wal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reviews (
			id          TEXT PRIMARY KEY,
			project_key TEXT NOT NULL,
			repo_slug   TEXT NOT NULL,
			pr_number   INTEGER NOT NULL,
			result_data TEXT NOT NULL,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
			duration_ms INTEGER,
			status      TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_reviews_pr ON reviews(project_key, repo_slug, pr_number);
		CREATE INDEX IF NOT EXISTS idx_reviews_created ON reviews(created_at);
	`)
	return err
}

// SaveReview inserts record.
func (s *SQLiteStore) SaveReview(ctx context.Context, record *ReviewRecord) error {
	resultData, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("store: marshal result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, project_key, repo_slug, pr_number, result_data, duration_ms, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.ProjectKey, record.RepoSlug, record.PRNumber, string(resultData),
		record.DurationMs, record.Status, record.CreatedAt)
	return err
}

// ListReviewsByPR returns every stored review for a given PR, newest first.
func (s *SQLiteStore) ListReviewsByPR(ctx context.Context, projectKey, repoSlug string, prNumber int) ([]*ReviewRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_key, repo_slug, pr_number, result_data, created_at, duration_ms, status
		FROM reviews WHERE project_key = ? AND repo_slug = ? AND pr_number = ?
		ORDER BY created_at DESC
	`, projectKey, repoSlug, prNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

// ListRecentReviews returns the most recent limit reviews across all PRs.
func (s *SQLiteStore) ListRecentReviews(ctx context.Context, limit int) ([]*ReviewRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_key, repo_slug, pr_number, result_data, created_at, duration_ms, status
		FROM reviews ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanAll(rows *sql.Rows) ([]*ReviewRecord, error) {
	var out []*ReviewRecord
	for rows.Next() {
		var r ReviewRecord
		var resultData string
		if err := rows.Scan(&r.ID, &r.ProjectKey, &r.RepoSlug, &r.PRNumber, &resultData, &r.CreatedAt, &r.DurationMs, &r.Status); err != nil {
			return nil, err
		}
		var result domain.ReviewResult
		if err := json.Unmarshal([]byte(resultData), &result); err != nil {
			return nil, fmt.Errorf("store: unmarshal result: %w", err)
		}
		r.Result = &result
		out = append(out, &r)
	}
	return out, rows.Err()
}
