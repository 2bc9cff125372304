package store

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryCatalogAddDedup(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCatalog()
	now := time.Now()

	c.Add(ctx, 7, now)
	c.Add(ctx, 5, now)
	c.Add(ctx, 9, now)
	c.Add(ctx, 7, now) // duplicate

	if got := c.Size(); got != 3 {
		t.Fatalf("Size() = %d, want 3", got)
	}
	want := []int{5, 7, 9}
	got := c.All()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("All() = %v, want %v", got, want)
			break
		}
	}
}

func TestMemoryCatalogConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCatalog()
	now := time.Now()

	// Same ids raced from many goroutines: each distinct id lands exactly once.
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := 1; id <= 100; id++ {
				c.Add(ctx, id, now)
			}
		}()
	}
	wg.Wait()

	if got := c.Size(); got != 100 {
		t.Fatalf("Size() = %d, want 100", got)
	}
	ids := c.All()
	for i, id := range ids {
		if id != i+1 {
			t.Fatalf("All()[%d] = %d, want %d (catalog out of order or duplicated)", i, id, i+1)
		}
	}
}

func TestMemoryCatalogSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCatalog()
	c.Add(ctx, 1, time.Now())
	snap := c.All()
	snap[0] = 999
	if c.All()[0] != 1 {
		t.Errorf("All() snapshot is not isolated from caller mutation")
	}
}

func TestMemoryCatalogRecord(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCatalog()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.Add(ctx, 42, at)
	rec, ok := c.Record(42)
	if !ok || !rec.DiscoveredAt.Equal(at) {
		t.Errorf("Record(42) = %+v, %v", rec, ok)
	}
	if _, ok := c.Record(43); ok {
		t.Errorf("Record(43) reported a record for an unknown id")
	}
}

func TestMemoryPlaybackDefaultsToZero(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPlayback()
	if got := p.GetIndex(ctx, 12345); got != 0 {
		t.Errorf("GetIndex(unseen) = %d, want 0", got)
	}
	// GetIndex must not create a record; only SetIndex does.
	if p.has(12345) {
		t.Errorf("GetIndex created a record for an unseen user")
	}
	p.SetIndex(ctx, 12345, 4)
	if !p.has(12345) {
		t.Errorf("SetIndex did not create a record")
	}
	if got := p.GetIndex(ctx, 12345); got != 4 {
		t.Errorf("GetIndex = %d, want 4", got)
	}
}
