// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package journal persists records of broadcast messages saved by subscribers.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/nerve/internal/resilience"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("journal: closed")

// Record is one subscriber's saved copy of a message.
type Record struct {
	MessageID  string    `json:"message_id"`
	Sequence   uint64    `json:"sequence"`
	Event      string    `json:"event"`
	Priority   int       `json:"priority"`
	Subscriber string    `json:"subscriber"`
	Value      any       `json:"value,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	SavedAt    time.Time `json:"saved_at"`
}

func (r Record) key() string {
	return fmt.Sprintf("%020d:%s:%s", r.Sequence, r.MessageID, r.Subscriber)
}

// Store is a journal backend. Saving the same (message, subscriber) twice
// overwrites the earlier record.
type Store interface {
	Save(ctx context.Context, rec Record) error
	// Recent returns up to limit records, newest sequence first.
	Recent(ctx context.Context, limit int) ([]Record, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Config selects and parameterises a backend.
type Config struct {
	Backend   string
	Path      string
	RedisAddr string
	RedisDB   int
	// MaxRecords bounds list-based backends; 0 means unbounded.
	MaxRecords int

	// BreakerThreshold consecutive failures open the breaker around
	// non-memory backends; 0 disables it.
	BreakerThreshold int
	BreakerReset     time.Duration
}

// Open creates a Store for cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(cfg.MaxRecords), nil
	case BackendSQLite:
		store, err = OpenSQLiteStore(ctx, cfg.Path, DefaultSQLiteConfig())
	case BackendBadger:
		store, err = OpenBadgerStore(cfg.Path)
	case BackendRedis:
		store, err = OpenRedisStore(ctx, RedisConfig{Addr: cfg.RedisAddr, DB: cfg.RedisDB, MaxRecords: cfg.MaxRecords})
	default:
		return nil, fmt.Errorf("unknown journal backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if cfg.BreakerThreshold > 0 {
		cb := resilience.NewCircuitBreaker("journal_"+cfg.Backend, cfg.BreakerThreshold, cfg.BreakerReset)
		return NewGuardedStore(store, cb), nil
	}
	return store, nil
}
