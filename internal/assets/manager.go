// Package assets owns the image asset lifecycle: the ephemeral local copy
// written per detect request, the durable upload behind it, and the timed
// eviction of the local file once the upload has landed.
//
// All three operations run as background goroutines off the request path.
// The only state they share is the per-id status entry, guarded by the
// manager's mutex; the local file for a given id has exactly one writer
// (the save) and one remover (the eviction or an explicit delete).
package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/snapseek/snapseek/internal/domain"
	"github.com/snapseek/snapseek/internal/metrics"
)

// Status is the local-cache state of an asset id.
type Status int

const (
	// StatusUnknown means the id was never seen.
	StatusUnknown Status = iota
	// StatusPending means the local write is in flight.
	StatusPending
	// StatusAvailable means the local copy can be served.
	StatusAvailable
	// StatusFailed means the local copy is gone: the write errored or
	// the retention window evicted it.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAvailable:
		return "available"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BlobStore uploads asset bytes to durable storage.
type BlobStore interface {
	Put(ctx context.Context, id string, data []byte, contentType string) error
}

// Config holds the lifecycle manager settings.
type Config struct {
	// Dir is the local directory for ephemeral copies.
	Dir string
	// Retention is how long the local copy outlives a successful upload.
	Retention time.Duration
	// UploadTimeout bounds one durable upload attempt.
	UploadTimeout time.Duration
	// DevMode disables durable uploads entirely.
	DevMode bool
}

// Manager tracks asset state and runs the background save, upload, and
// eviction work.
type Manager struct {
	cfg    Config
	blob   BlobStore
	logger *zap.Logger

	mu     sync.Mutex
	states map[string]Status
	timers map[string]*time.Timer

	wg sync.WaitGroup
}

// NewManager creates the manager and its local directory.
func NewManager(cfg Config, blob BlobStore, logger *zap.Logger) (*Manager, error) {
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 30 * time.Second
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir %s: %w", cfg.Dir, err)
	}
	return &Manager{
		cfg:    cfg,
		blob:   blob,
		logger: logger,
		states: make(map[string]Status),
		timers: make(map[string]*time.Timer),
	}, nil
}

// BeginLocalSave marks id pending and writes data to the local store in
// the background. The caller proceeds without waiting; a failed save only
// surfaces later as a not-found on the search path.
func (m *Manager) BeginLocalSave(id string, data []byte) {
	m.setStatus(id, StatusPending)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := os.WriteFile(m.path(id), data, 0o644); err != nil {
			m.setStatus(id, StatusFailed)
			metrics.AssetSavesTotal.WithLabelValues("error").Inc()
			m.logger.Error("asset save failed", zap.String("id", id), zap.Error(err))
			return
		}
		m.setStatus(id, StatusAvailable)
		metrics.AssetSavesTotal.WithLabelValues("ok").Inc()
		m.logger.Debug("asset saved", zap.String("id", id))
	}()
}

// BeginDurableUpload pushes data to the blob store in the background and,
// on success, arms the eviction timer for the local copy. A no-op in
// development mode. Failures are logged and never retried; the local copy
// stays untouched so a later search can still serve it.
func (m *Manager) BeginDurableUpload(id string, data []byte) {
	if m.cfg.DevMode || m.blob == nil {
		metrics.AssetUploadsTotal.WithLabelValues("skipped").Inc()
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.UploadTimeout)
		defer cancel()

		if err := m.blob.Put(ctx, id, data, "image/jpeg"); err != nil {
			metrics.AssetUploadsTotal.WithLabelValues("error").Inc()
			m.logger.Error("asset upload failed", zap.String("id", id), zap.Error(err))
			return
		}
		metrics.AssetUploadsTotal.WithLabelValues("ok").Inc()
		m.logger.Debug("asset uploaded", zap.String("id", id))
		m.scheduleEviction(id)
	}()
}

// Status returns the point-in-time cache state of id.
func (m *Manager) Status(id string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[id]
}

// Open serves the locally cached bytes for id. Anything other than an
// available, readable file is a not-found: the asset was never saved,
// the save failed, or the retention window already evicted it.
func (m *Manager) Open(id string) ([]byte, error) {
	if m.Status(id) != StatusAvailable {
		return nil, fmt.Errorf("asset %s: %w", id, domain.ErrAssetNotFound)
	}
	data, err := os.ReadFile(m.path(id))
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", id, domain.ErrAssetNotFound)
	}
	return data, nil
}

// Delete removes the local copy now, cancels any pending eviction timer,
/// and marks the id no longer fetchable. Idempotent: deleting an absent
// asset is not an error.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
	m.states[id] = StatusFailed
	m.mu.Unlock()

	if err := os.Remove(m.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete asset %s: %w", id, err)
	}
	return nil
}

// Close cancels outstanding eviction timers and waits for in-flight
// background work to settle.
func (m *Manager) Close() {
	m.mu.Lock()
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) scheduleEviction(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.timers[id]; ok {
		t.Stop()
	}
	m.timers[id] = time.AfterFunc(m.cfg.Retention, func() {
		metrics.AssetEvictionsTotal.Inc()
		m.logger.Debug("asset evicted", zap.String("id", id))
		if err := m.Delete(id); err != nil {
			m.logger.Error("asset eviction failed", zap.String("id", id), zap.Error(err))
		}
	})
}

func (m *Manager) setStatus(id string, s Status) {
	m.mu.Lock()
	m.states[id] = s
	m.mu.Unlock()
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.cfg.Dir, id+".jpg")
}
