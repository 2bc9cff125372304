package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onnwee/telecarousel/store"
)

type fakeCopier struct {
	sent []int
	err  error
}

func (f *fakeCopier) CopyVideo(ctx context.Context, chatID int64, messageID int) error {
	f.sent = append(f.sent, messageID)
	return f.err
}

func newTestDispatcher(t *testing.T, ids ...int) (*Dispatcher, *fakeCopier) {
	t.Helper()
	catalog := store.NewMemoryCatalog()
	for _, id := range ids {
		catalog.Add(context.Background(), id, time.Now())
	}
	copier := &fakeCopier{}
	return &Dispatcher{
		Catalog: catalog,
		State:   store.NewMemoryPlayback(),
		Copier:  copier,
	}, copier
}

func TestDeliverNextCyclesInOrder(t *testing.T) {
	ctx := context.Background()
	d, copier := newTestDispatcher(t, 9, 5, 7) // stored ascending regardless of add order

	want := []int{5, 7, 9, 5} // fourth call wraps
	for i, w := range want {
		res := d.DeliverNext(ctx, 100, 100)
		if res.Outcome != OutcomeDelivered {
			t.Fatalf("call %d: outcome = %v, want Delivered", i, res.Outcome)
		}
		if res.VideoID != w {
			t.Fatalf("call %d: video = %d, want %d", i, res.VideoID, w)
		}
	}
	for i, w := range want {
		if copier.sent[i] != w {
			t.Errorf("sent[%d] = %d, want %d", i, copier.sent[i], w)
		}
	}
}

func TestDeliverNextEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	d, copier := newTestDispatcher(t)

	res := d.DeliverNext(ctx, 100, 100)
	if res.Outcome != OutcomeNoContent {
		t.Errorf("outcome = %v, want NoContent", res.Outcome)
	}
	if len(copier.sent) != 0 {
		t.Errorf("copier called on empty catalog")
	}
	if got := d.State.GetIndex(ctx, 100); got != 0 {
		t.Errorf("cursor mutated on empty catalog: %d", got)
	}
}

func TestDeliverNextNormalizesOutOfRangeCursor(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher(t, 5, 7, 9)
	d.State.SetIndex(ctx, 100, 3) // == len(catalog): wraps to 0 on next read

	res := d.DeliverNext(ctx, 100, 100)
	if res.VideoID != 5 {
		t.Errorf("video = %d, want 5 after normalization", res.VideoID)
	}
	if got := d.State.GetIndex(ctx, 100); got != 1 {
		t.Errorf("cursor = %d, want 1", got)
	}
}

func TestDeliverNextAdvancesOnPermanentFailure(t *testing.T) {
	ctx := context.Background()
	d, copier := newTestDispatcher(t, 5, 7)
	copier.err = errors.New("Bad Request: message to copy not found")

	res := d.DeliverNext(ctx, 100, 100)
	if res.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %v, want Failed", res.Outcome)
	}
	if !res.Permanent {
		t.Errorf("Permanent = false, want true for a gone video")
	}
	// Cursor advanced anyway so the user is never stuck on a dead entry.
	if got := d.State.GetIndex(ctx, 100); got != 1 {
		t.Errorf("cursor = %d, want 1 after failed delivery", got)
	}

	copier.err = nil
	res = d.DeliverNext(ctx, 100, 100)
	if res.Outcome != OutcomeDelivered || res.VideoID != 7 {
		t.Errorf("next delivery = %+v, want Delivered(7)", res)
	}
}

func TestDeliverNextAdvancesOnTransientFailure(t *testing.T) {
	ctx := context.Background()
	d, copier := newTestDispatcher(t, 5)
	copier.err = errors.New("Too Many Requests: retry after 5")

	res := d.DeliverNext(ctx, 100, 100)
	if res.Outcome != OutcomeFailed || res.Permanent {
		t.Errorf("result = %+v, want transient Failed", res)
	}
	if got := d.State.GetIndex(ctx, 100); got != 0 {
		// Single-entry catalog: advance wraps straight back to 0.
		t.Errorf("cursor = %d, want 0", got)
	}
}

func TestDeliverNextIndependentUsers(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher(t, 5, 7, 9)

	if res := d.DeliverNext(ctx, 1, 1); res.VideoID != 5 {
		t.Fatalf("user 1 first video = %d, want 5", res.VideoID)
	}
	if res := d.DeliverNext(ctx, 1, 1); res.VideoID != 7 {
		t.Fatalf("user 1 second video = %d, want 7", res.VideoID)
	}
	// A different user starts from the beginning of the cycle.
	if res := d.DeliverNext(ctx, 2, 2); res.VideoID != 5 {
		t.Errorf("user 2 first video = %d, want 5", res.VideoID)
	}
}
