package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/ameed2001/buildtrack/internal/core/domain"
	"github.com/ameed2001/buildtrack/internal/infra/telemetry"
)

// DefaultStalenessWindow bounds how long a cached snapshot is reused before
// the durable artifact is re-read.
const DefaultStalenessWindow = 100 * time.Millisecond

// Store keeps the canonical in-memory snapshot of all collections and
// mediates every read/write against a single JSON document on disk. Writes
// always replace the whole document; an advisory file lock keeps a second
// process from interleaving its own whole-document writes.
type Store struct {
	path      string
	staleness time.Duration
	lock      *flock.Flock
	logger    *zap.Logger
	metrics   *telemetry.Metrics
	now       func() time.Time

	// wmu serializes Mutate cycles; mu guards the cache itself.
	wmu sync.Mutex
	mu  sync.Mutex

	snap        *domain.Snapshot
	lastRefresh time.Time
}

// New constructs a store over the JSON artifact at path. A staleness window
// of zero or below falls back to the default.
func New(path string, staleness time.Duration, logger *zap.Logger) *Store {
	if staleness <= 0 {
		staleness = DefaultStalenessWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:      path,
		staleness: staleness,
		lock:      flock.New(path + ".lock"),
		logger:    logger,
		now:       time.Now,
	}
}

// WithMetrics attaches operation counters to the store.
func (s *Store) WithMetrics(m *telemetry.Metrics) *Store {
	s.metrics = m
	return s
}

// WithClock overrides the clock, primarily for tests.
func (s *Store) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Load returns a deep copy of the current snapshot. The cached snapshot is
// served while it is younger than the staleness window; otherwise, or when
// forceRefresh is set, the artifact is re-read and the cache replaced
// wholesale.
func (s *Store) Load(ctx context.Context, forceRefresh bool) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap != nil && !forceRefresh && s.now().Sub(s.lastRefresh) < s.staleness {
		s.metrics.StoreLoad(false)
		return s.snap.Clone(), nil
	}

	snap, err := s.read()
	if err != nil {
		return nil, err
	}

	s.snap = snap
	s.lastRefresh = s.now()
	s.metrics.StoreLoad(true)

	return snap.Clone(), nil
}

// Commit serializes the entire snapshot to the artifact and replaces the
// in-memory cache. There is no partial or per-record persistence.
func (s *Store) Commit(ctx context.Context, snap *domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("commit: snapshot is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(snap); err != nil {
		return err
	}

	s.snap = snap.Clone()
	s.lastRefresh = s.now()
	s.metrics.StoreCommit()

	return nil
}

// Mutate loads a fresh snapshot, applies fn, and commits the result, holding
// the write lock for the whole cycle so concurrent mutations serialize
// instead of overwriting each other.
func (s *Store) Mutate(ctx context.Context, fn func(*domain.Snapshot) error) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	snap, err := s.Load(ctx, true)
	if err != nil {
		return err
	}

	if err := fn(snap); err != nil {
		return err
	}

	return s.Commit(ctx, snap)
}

func (s *Store) read() (*domain.Snapshot, error) {
	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("lock artifact: %w", err)
	}
	defer s.unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	snap := domain.NewSnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return snap, nil
}

func (s *Store) write(snap *domain.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock artifact: %w", err)
	}
	defer s.unlock()

	// Write-then-rename so a crash mid-write never leaves a torn document.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}

	return nil
}

func (s *Store) unlock() {
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("unlock artifact failed", zap.String("path", s.path), zap.Error(err))
	}
}
