// Package archive decorates a Fetcher so every fetched page is snapshotted
// into a blob store, keyed by job and content hash.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tcavaliere/coldreach/internal/outreach"
)

// Config controls snapshot placement.
type Config struct {
	Prefix      string
	ContentType string
}

// Fetcher wraps another Fetcher and archives each successful page body.
// Archival is best-effort: blob store failures are logged and the page is
// still returned to the caller.
type Fetcher struct {
	inner  outreach.Fetcher
	blobs  outreach.BlobStore
	hasher outreach.Hasher
	cfg    Config
	logger *zap.Logger

	mu    sync.RWMutex
	jobID string
}

// New builds an archiving Fetcher.
func New(inner outreach.Fetcher, blobs outreach.BlobStore, hasher outreach.Hasher, cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Prefix == "" {
		cfg.Prefix = "pages"
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		inner:  inner,
		blobs:  blobs,
		hasher: hasher,
		cfg:    cfg,
		logger: logger,
	}
}

// SetJob scopes subsequent snapshots to the given job ID.
func (f *Fetcher) SetJob(jobID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobID = jobID
}

// Fetch delegates to the wrapped Fetcher and snapshots the body on success.
func (f *Fetcher) Fetch(ctx context.Context, url string) (outreach.Page, error) {
	page, err := f.inner.Fetch(ctx, url)
	if err != nil {
		return page, err
	}
	f.snapshot(ctx, url, page.Body)
	return page, nil
}

func (f *Fetcher) snapshot(ctx context.Context, url string, body []byte) {
	if len(body) == 0 {
		return
	}

	hash, err := f.hasher.Hash(body)
	if err != nil {
		f.logger.Warn("snapshot hash failed",
			zap.String("url", url),
			zap.Error(err))
		return
	}

	f.mu.RLock()
	jobID := f.jobID
	f.mu.RUnlock()
	if jobID == "" {
		jobID = "unscoped"
	}

	path := fmt.Sprintf("%s/%s/%s.html", strings.TrimSuffix(f.cfg.Prefix, "/"), jobID, hash)
	uri, err := f.blobs.PutObject(ctx, path, f.cfg.ContentType, bytes.NewReader(body))
	if err != nil {
		f.logger.Warn("snapshot upload failed",
			zap.String("url", url),
			zap.String("path", path),
			zap.Error(err))
		return
	}

	f.logger.Debug("page snapshot stored",
		zap.String("url", url),
		zap.String("uri", uri))
}

var _ outreach.Fetcher = (*Fetcher)(nil)
