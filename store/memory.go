package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/onnwee/telecarousel/telemetry"
)

// MemoryCatalog is the transient CatalogStore: a sorted id slice plus a
// membership set guarded by an RWMutex.
type MemoryCatalog struct {
	mu   sync.RWMutex
	ids  []int
	seen map[int]VideoRecord
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{seen: make(map[int]VideoRecord)}
}

// Load is a no-op for the transient backend.
func (c *MemoryCatalog) Load(ctx context.Context) error { return nil }

func (c *MemoryCatalog) Add(ctx context.Context, messageID int, discoveredAt time.Time) {
	c.insert(messageID, discoveredAt)
}

// insert reports whether the id was new. Shared with the Postgres backend,
// which uses the memory catalog as its in-process sequence.
func (c *MemoryCatalog) insert(messageID int, discoveredAt time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[messageID]; ok {
		return false
	}
	c.seen[messageID] = VideoRecord{MessageID: messageID, DiscoveredAt: discoveredAt}
	i := sort.SearchInts(c.ids, messageID)
	c.ids = append(c.ids, 0)
	copy(c.ids[i+1:], c.ids[i:])
	c.ids[i] = messageID
	telemetry.SetCatalogSize(len(c.ids))
	return true
}

func (c *MemoryCatalog) All() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]int, len(c.ids))
	copy(out, c.ids)
	return out
}

func (c *MemoryCatalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}

// Record returns the stored record for an id, if known.
func (c *MemoryCatalog) Record(messageID int) (VideoRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.seen[messageID]
	return r, ok
}

// MemoryPlayback is the transient PlaybackStore.
type MemoryPlayback struct {
	mu  sync.RWMutex
	idx map[int64]int
}

func NewMemoryPlayback() *MemoryPlayback {
	return &MemoryPlayback{idx: make(map[int64]int)}
}

func (p *MemoryPlayback) GetIndex(ctx context.Context, userID int64) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.idx[userID]
}

func (p *MemoryPlayback) SetIndex(ctx context.Context, userID int64, index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idx[userID] = index
}

// has reports whether a record exists for the user (test hook for the lazy
// creation contract).
func (p *MemoryPlayback) has(userID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.idx[userID]
	return ok
}
