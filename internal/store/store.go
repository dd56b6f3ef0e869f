// Package store provides durable persistence for capsule version histories.
// The engine is storage-agnostic: any backend offering Load/Save plus a
// content-addressed blob side table is acceptable, provided Save is atomic
// so a crash mid-write cannot corrupt history.
package store

import (
	"context"

	"github.com/dkeller9/capver/internal/version"
)

// Store persists capsule version histories and file content blobs.
type Store interface {
	// Load returns the history for a capsule, or a NOT_FOUND error.
	// A document that fails to parse or validate yields CORRUPT_HISTORY.
	Load(ctx context.Context, capsuleID string) (*version.History, error)

	// Save atomically persists the entire history.
	Save(ctx context.Context, h *version.History) error

	// List returns every capsule id with a stored history, sorted.
	List(ctx context.Context) ([]string, error)

	// PutBlob stores file content under its hash. Writing the same hash
	// twice is a no-op (content-addressed deduplication).
	PutBlob(ctx context.Context, hash string, content []byte) error

	// GetBlob returns the content for a hash, or a NOT_FOUND error.
	GetBlob(ctx context.Context, hash string) ([]byte, error)

	// Close releases backend resources.
	Close() error
}
