// Package sqlite persists the download history.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ytdbot/ytd-bot/internal/domain"
)

// Repository provides database operations for the download history.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (creating if needed) the history database under
// dataDir.
func NewRepository(dataDir string) (*Repository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "history.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := configureDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	slog.Info("history database initialized", "path", dbPath)

	return &Repository{db: db}, nil
}

func configureDB(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=10000",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS history (
			job_id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			url TEXT NOT NULL,
			title TEXT,
			mode TEXT NOT NULL,
			state TEXT NOT NULL,
			file_name TEXT,
			size_bytes INTEGER DEFAULT 0,
			public_url TEXT,
			error TEXT,
			created_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_history_user ON history(user_id, finished_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Record inserts one finished job.
func (r *Repository) Record(ctx context.Context, entry *domain.HistoryEntry) error {
	query := `
		INSERT INTO history (job_id, user_id, url, title, mode, state, file_name, size_bytes, public_url, error, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.JobID,
		entry.UserID,
		entry.URL,
		entry.Title,
		entry.Mode,
		entry.State,
		entry.FileName,
		entry.SizeBytes,
		entry.PublicURL,
		entry.Error,
		entry.CreatedAt,
		entry.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record history entry: %w", err)
	}

	return nil
}

// RecentByUser returns the user's most recent entries, newest first.
func (r *Repository) RecentByUser(ctx context.Context, userID int64, limit int) ([]*domain.HistoryEntry, error) {
	query := `
		SELECT job_id, user_id, url, title, mode, state, file_name, size_bytes, public_url, error, created_at, finished_at
		FROM history
		WHERE user_id = ?
		ORDER BY finished_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []*domain.HistoryEntry
	for rows.Next() {
		entry := &domain.HistoryEntry{}
		var title, fileName, publicURL, errMsg sql.NullString

		err := rows.Scan(
			&entry.JobID,
			&entry.UserID,
			&entry.URL,
			&title,
			&entry.Mode,
			&entry.State,
			&fileName,
			&entry.SizeBytes,
			&publicURL,
			&errMsg,
			&entry.CreatedAt,
			&entry.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		entry.Title = title.String
		entry.FileName = fileName.String
		entry.PublicURL = publicURL.String
		entry.Error = errMsg.String
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// CountByUser returns how many entries a user has.
func (r *Repository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM history WHERE user_id = ?", userID).Scan(&count)
	return count, err
}

// DeleteOlderThan removes entries finished before now-age and returns how
// many were dropped.
func (r *Repository) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	threshold := time.Now().Add(-age)

	result, err := r.db.ExecContext(ctx, `DELETE FROM history WHERE finished_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old history entries: %w", err)
	}

	return result.RowsAffected()
}
