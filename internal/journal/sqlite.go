// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver
)

// SQLiteConfig defines SQLite operational parameters.
type SQLiteConfig struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS journal (
	message_id  TEXT    NOT NULL,
	subscriber  TEXT    NOT NULL,
	sequence    INTEGER NOT NULL,
	event       TEXT    NOT NULL,
	priority    INTEGER NOT NULL,
	value       TEXT,
	created_at  INTEGER NOT NULL,
	saved_at    INTEGER NOT NULL,
	PRIMARY KEY (message_id, subscriber)
);
CREATE INDEX IF NOT EXISTS journal_sequence ON journal(sequence DESC);
`

// SQLiteStore journals into a WAL-mode SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens dbPath with mandatory pragmas and ensures the schema.
func OpenSQLiteStore(ctx context.Context, dbPath string, cfg SQLiteConfig) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	// Pragmas in the DSN apply to every pooled connection.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		dbPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	value, err := json.Marshal(rec.Value)
	if err != nil {
		return fmt.Errorf("sqlite: encode value: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO journal (message_id, subscriber, sequence, event, priority, value, created_at, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.MessageID, rec.Subscriber, int64(rec.Sequence), rec.Event, rec.Priority, string(value),
		rec.CreatedAt.UnixNano(), rec.SavedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, subscriber, sequence, event, priority, value, created_at, saved_at
		 FROM journal ORDER BY sequence DESC, subscriber DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec              Record
			seq              int64
			value            sql.NullString
			created, savedAt int64
		)
		if err := rows.Scan(&rec.MessageID, &rec.Subscriber, &seq, &rec.Event, &rec.Priority, &value, &created, &savedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		rec.Sequence = uint64(seq)
		rec.CreatedAt = time.Unix(0, created).UTC()
		rec.SavedAt = time.Unix(0, savedAt).UTC()
		if value.Valid && value.String != "null" {
			if err := json.Unmarshal([]byte(value.String), &rec.Value); err != nil {
				return nil, fmt.Errorf("sqlite: decode value: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
