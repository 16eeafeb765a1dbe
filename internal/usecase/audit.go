package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ameed2001/buildtrack/internal/core/domain"
	"github.com/ameed2001/buildtrack/internal/core/port"
	"github.com/ameed2001/buildtrack/internal/infra/telemetry"
)

// AuditService owns the append-only action journal. Every other service
// records its outcomes here.
type AuditService struct {
	store   port.SnapshotStore
	logger  *zap.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// NewAuditService constructs an AuditService.
func NewAuditService(store port.SnapshotStore, logger *zap.Logger, metrics *telemetry.Metrics) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		store:   store,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// WithClock overrides the clock, primarily for tests.
func (s *AuditService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Record appends an entry to the journal. The snapshot is force-refreshed for
// the append so the high-value trail does not lose entries to a stale cache.
func (s *AuditService) Record(ctx context.Context, action string, level domain.LogLevel, message, actor string) error {
	entry := domain.LogEntry{
		ID:        uuid.NewString(),
		Timestamp: s.now().UTC(),
		Level:     level,
		Message:   message,
		Actor:     actor,
		Action:    action,
	}

	err := s.store.Mutate(ctx, func(snap *domain.Snapshot) error {
		snap.Logs = append(snap.Logs, entry)
		return nil
	})
	if err != nil {
		s.logger.Error("append audit entry failed", zap.String("action", action), zap.Error(err))
		return fmt.Errorf("%w: append audit entry", ErrPersistence)
	}

	return nil
}

// ListAll returns the full journal sorted by timestamp, newest first.
func (s *AuditService) ListAll(ctx context.Context) ([]domain.LogEntry, error) {
	snap, err := s.store.Load(ctx, false)
	if err != nil {
		s.logger.Error("load journal failed", zap.Error(err))
		return nil, fmt.Errorf("%w: load journal", ErrPersistence)
	}

	entries := snap.Logs
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	return entries, nil
}

// PurgeAll replaces the entire journal with a single entry recording the
// purge itself. The operation is deliberately irreversible.
func (s *AuditService) PurgeAll(ctx context.Context, actor string) error {
	entry := domain.LogEntry{
		ID:        uuid.NewString(),
		Timestamp: s.now().UTC(),
		Level:     domain.LogLevelWarning,
		Message:   fmt.Sprintf("audit journal purged by %s", actor),
		Actor:     actor,
		Action:    "audit.purge",
	}

	err := s.store.Mutate(ctx, func(snap *domain.Snapshot) error {
		snap.Logs = []domain.LogEntry{entry}
		return nil
	})
	if err != nil {
		s.logger.Error("purge journal failed", zap.Error(err))
		return fmt.Errorf("%w: purge journal", ErrPersistence)
	}

	s.metrics.Operation("audit.purge", nil)

	return nil
}

// record is the best-effort variant used by the other services: an audit
// failure is logged but never fails the operation it annotates.
func (s *AuditService) record(ctx context.Context, action string, level domain.LogLevel, message, actor string) {
	if err := s.Record(ctx, action, level, message, actor); err != nil {
		s.logger.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}
