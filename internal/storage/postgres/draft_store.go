package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tcavaliere/coldreach/internal/outreach"
)

// DraftStoreConfig controls the Postgres connection pool used for draft
// archival.
type DraftStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// DraftStore archives generated drafts into Postgres.
type DraftStore struct {
	pool  execCloser
	table string
}

// NewDraftStore creates a Postgres-backed DraftStore using the provided config.
func NewDraftStore(ctx context.Context, cfg DraftStoreConfig) (*DraftStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "email_drafts"
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
	return &DraftStore{pool: pool, table: table}, nil
}

// NewDraftStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewDraftStoreWithPool(pool execCloser, table string) (*DraftStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "email_drafts"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &DraftStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *DraftStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveDraft inserts a draft row. Contact info is stored as jsonb, null when
// no contact search ran.
func (s *DraftStore) SaveDraft(ctx context.Context, rec outreach.DraftRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("draft store is not configured")
	}
	if rec.JobID == "" {
		return fmt.Errorf("draft job id is required")
	}

	var contactJSON []byte
	if rec.ContactInfo != nil {
		var err error
		contactJSON, err = json.Marshal(rec.ContactInfo)
		if err != nil {
			return fmt.Errorf("marshal contact info: %w", err)
		}
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	job_id,
	sender_id,
	target_company_name,
	target_url,
	subject,
	body,
	contact_info,
	created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)`, s.table)

	args := []any{
		rec.JobID,
		rec.SenderID,
		rec.TargetName,
		rec.TargetURL,
		rec.Subject,
		rec.Body,
		contactJSON,
		rec.CreatedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert draft: %w", err)
	}
	return nil
}

var _ outreach.DraftStore = (*DraftStore)(nil)
