// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tcavaliere/coldreach/internal/outreach"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SenderStoreConfig controls the Postgres connection pool used for sender
// profile lookups.
type SenderStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// SenderStore resolves sender profiles from Postgres.
type SenderStore struct {
	pool  rowQuerier
	table string
}

// NewSenderStore creates a Postgres-backed SenderStore using the provided config.
func NewSenderStore(ctx context.Context, cfg SenderStoreConfig) (*SenderStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "sender_profiles"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &SenderStore{pool: pool, table: table}, nil
}

// NewSenderStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewSenderStoreWithPool(pool rowQuerier, table string) (*SenderStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "sender_profiles"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &SenderStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *SenderStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// GetSenderProfile loads a sender row. Services are stored as a jsonb array.
func (s *SenderStore) GetSenderProfile(ctx context.Context, id string) (outreach.SenderProfile, error) {
	if s == nil || s.pool == nil {
		return outreach.SenderProfile{}, fmt.Errorf("sender store is not configured")
	}
	query := fmt.Sprintf(`SELECT id, name, description, services FROM %s WHERE id = $1`, s.table)

	var (
		profile      outreach.SenderProfile
		servicesJSON []byte
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&profile.ID,
		&profile.Name,
		&profile.Description,
		&servicesJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return outreach.SenderProfile{}, fmt.Errorf("sender %s: %w", id, outreach.ErrNotFound)
		}
		return outreach.SenderProfile{}, fmt.Errorf("get sender profile: %w", err)
	}

	if len(servicesJSON) > 0 {
		if err := json.Unmarshal(servicesJSON, &profile.Services); err != nil {
			return outreach.SenderProfile{}, fmt.Errorf("decode sender services: %w", err)
		}
	}
	return profile, nil
}

var _ outreach.SenderStore = (*SenderStore)(nil)
