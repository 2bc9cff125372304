// Package store holds the video catalog and per-user playback cursors behind
// backend-agnostic interfaces. Two implementations exist for each: an
// in-memory one (transient, used standalone or as the cache layer) and a
// Postgres one (durable). The catalog is an append-only, deduplicated set of
// channel message ids kept in ascending id order so playback cycles are
// deterministic and reproducible.
package store

import (
	"context"
	"time"
)

// VideoRecord is one discovered channel video. MessageID is the unique key;
// records are never mutated or deleted once seen.
type VideoRecord struct {
	MessageID    int
	DiscoveredAt time.Time
}

// CatalogStore is the registry of discovered video message ids.
//
// Add must be idempotent: re-adding a known id is a no-op, and that
// idempotency is the only synchronization between the background scanner and
// live channel-post events. Implementations never propagate storage errors
// to callers; a failed durable write degrades to a cache-only update.
type CatalogStore interface {
	// Load populates the in-process sequence from durable storage.
	// No-op for the transient backend.
	Load(ctx context.Context) error
	Add(ctx context.Context, messageID int, discoveredAt time.Time)
	// All returns a snapshot of the catalog in ascending message id order.
	All() []int
	Size() int
}

// PlaybackStore tracks each user's cyclic cursor into the catalog.
//
// GetIndex defaults to 0 for unseen users without creating a record; the
// record is created lazily by the first SetIndex. Out-of-range normalization
// is the dispatcher's job, not the store's.
type PlaybackStore interface {
	GetIndex(ctx context.Context, userID int64) int
	SetIndex(ctx context.Context, userID int64, index int)
}
