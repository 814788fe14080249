// Package records stores finished games in SQLite for leaderboards.
package records

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/wricardo/mcp-training/cubesweeper/game/service"
)

// DefaultLimit caps list queries that pass a non-positive limit
const DefaultLimit = 10

// MaxLimit caps list queries
const MaxLimit = 100

// Store persists finished games in SQLite
type Store struct {
	db *sql.DB
}

// Open creates a SQLite-backed store at path and runs migrations
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *Store) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			config_id TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			depth INTEGER NOT NULL,
			mine_count INTEGER NOT NULL,
			won INTEGER NOT NULL,
			revealed INTEGER NOT NULL,
			flags INTEGER NOT NULL,
			moves INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_config ON records(config_id, won, duration_ms)`,
		`CREATE INDEX IF NOT EXISTS idx_records_finished ON records(finished_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Save stores a finished game, assigning an ID when missing
func (s *Store) Save(ctx context.Context, r *service.Record) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}

	query := `INSERT INTO records (
		id, session_id, config_id, width, height, depth, mine_count,
		won, revealed, flags, moves, duration_ms, finished_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.SessionID, r.ConfigID, r.Width, r.Height, r.Depth, r.MineCount,
		boolToInt(r.Won), r.Revealed, r.Flags, r.Moves, r.DurationMS, r.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Top returns the fastest wins for a configuration
func (s *Store) Top(ctx context.Context, configID string, limit int) ([]*service.Record, error) {
	query := selectRecords + ` WHERE config_id = ? AND won = 1
		ORDER BY duration_ms ASC, moves ASC, finished_at ASC LIMIT ?`
	return s.query(ctx, query, configID, clampLimit(limit))
}

// Recent returns the most recently finished games, won or lost
func (s *Store) Recent(ctx context.Context, limit int) ([]*service.Record, error) {
	query := selectRecords + ` ORDER BY finished_at DESC, id ASC LIMIT ?`
	return s.query(ctx, query, clampLimit(limit))
}

// Summary aggregates the records of one configuration
type Summary struct {
	ConfigID string `json:"config_id"`
	Played   int    `json:"played"`
	Won      int    `json:"won"`
	BestMS   int64  `json:"best_ms"`
}

// Summarize returns per-configuration totals
func (s *Store) Summarize(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT config_id, COUNT(*), SUM(won),
		COALESCE(MIN(CASE WHEN won = 1 THEN duration_ms END), 0)
		FROM records GROUP BY config_id ORDER BY config_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize records: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ConfigID, &sum.Played, &sum.Won, &sum.BestMS); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

const selectRecords = `SELECT id, session_id, config_id, width, height, depth, mine_count,
	won, revealed, flags, moves, duration_ms, finished_at FROM records`

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*service.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []*service.Record{}
	for rows.Next() {
		var r service.Record
		var won int
		var finished int64
		if err := rows.Scan(&r.ID, &r.SessionID, &r.ConfigID, &r.Width, &r.Height, &r.Depth, &r.MineCount,
			&won, &r.Revealed, &r.Flags, &r.Moves, &r.DurationMS, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.Won = won == 1
		r.FinishedAt = time.UnixMilli(finished).UTC()
		records = append(records, &r)
	}
	return records, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
