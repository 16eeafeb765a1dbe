package port

import (
	"context"

	"github.com/ameed2001/buildtrack/internal/core/domain"
)

// SnapshotStore exposes whole-snapshot persistence. Load and Commit are the
// raw cache/writer pair; Mutate serializes a read-modify-write cycle so two
// concurrent writers cannot silently discard each other's changes.
type SnapshotStore interface {
	// Load returns a copy of the current snapshot. The cached snapshot is
	// reused inside the staleness window unless forceRefresh is set.
	Load(ctx context.Context, forceRefresh bool) (*domain.Snapshot, error)
	// Commit serializes the entire snapshot back to durable storage and
	// replaces the in-memory cache wholesale.
	Commit(ctx context.Context, snap *domain.Snapshot) error
	// Mutate runs fn against a freshly loaded snapshot under the store's
	// write lock and commits the result if fn returns nil.
	Mutate(ctx context.Context, fn func(*domain.Snapshot) error) error
}
