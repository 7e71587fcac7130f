package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ukydev/carmemo/internal/models"
	_ "modernc.org/sqlite"
)

const baselineSchema = `
CREATE TABLE IF NOT EXISTS baselines (
	key TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// SQLiteBaselineStore stores each baseline as a JSON payload row.
type SQLiteBaselineStore struct {
	db *sql.DB
}

// OpenSQLiteBaselineStore opens (creating if needed) the database at path.
func OpenSQLiteBaselineStore(path string) (*SQLiteBaselineStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps :memory: databases coherent and writes serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(baselineSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteBaselineStore{db: db}, nil
}

func (s *SQLiteBaselineStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteBaselineStore) Get(ctx context.Context, key string) (*models.BaselineSchedule, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM baselines WHERE key = ?", key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var schedule models.BaselineSchedule
	if err := json.Unmarshal([]byte(payload), &schedule); err != nil {
		return nil, false, fmt.Errorf("decode baseline %q: %w", key, err)
	}
	return &schedule, true, nil
}

func (s *SQLiteBaselineStore) Set(ctx context.Context, key string, schedule models.BaselineSchedule) error {
	return upsertBaseline(ctx, s.db, key, schedule)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertBaseline(ctx context.Context, db execer, key string, schedule models.BaselineSchedule) error {
	payload, err := json.Marshal(schedule)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO baselines (key, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, string(payload), time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *SQLiteBaselineStore) All(ctx context.Context) (map[string]models.BaselineSchedule, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, payload FROM baselines")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]models.BaselineSchedule{}
	for rows.Next() {
		var key, payload string
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, err
		}
		var schedule models.BaselineSchedule
		if err := json.Unmarshal([]byte(payload), &schedule); err != nil {
			return nil, fmt.Errorf("decode baseline %q: %w", key, err)
		}
		out[key] = schedule
	}
	return out, rows.Err()
}

func (s *SQLiteBaselineStore) Replace(ctx context.Context, all map[string]models.BaselineSchedule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM baselines"); err != nil {
		return err
	}
	for key, schedule := range all {
		if err := upsertBaseline(ctx, tx, key, schedule); err != nil {
			return err
		}
	}
	return tx.Commit()
}
