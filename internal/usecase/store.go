package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ameed2001/buildtrack/internal/core/domain"
	"github.com/ameed2001/buildtrack/internal/core/port"
)

// loadStore reads a snapshot, translating I/O faults into ErrPersistence so
// raw store errors never escape to callers.
func loadStore(ctx context.Context, store port.SnapshotStore, log *zap.Logger, force bool) (*domain.Snapshot, error) {
	snap, err := store.Load(ctx, force)
	if err != nil {
		log.Error("load snapshot failed", zap.Error(err))
		return nil, fmt.Errorf("%w: load snapshot", ErrPersistence)
	}
	return snap, nil
}

// mutateStore runs fn inside a store mutation. Errors raised by fn pass
// through untouched; faults from the store itself surface as ErrPersistence.
func mutateStore(ctx context.Context, store port.SnapshotStore, log *zap.Logger, fn func(*domain.Snapshot) error) error {
	var opErr error
	err := store.Mutate(ctx, func(snap *domain.Snapshot) error {
		if e := fn(snap); e != nil {
			opErr = e
			return e
		}
		return nil
	})
	if opErr != nil {
		return opErr
	}
	if err != nil {
		log.Error("commit snapshot failed", zap.Error(err))
		return fmt.Errorf("%w: commit snapshot", ErrPersistence)
	}
	return nil
}
