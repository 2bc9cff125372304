package relay

import (
	"context"
	"log/slog"

	"github.com/onnwee/telecarousel/store"
	"github.com/onnwee/telecarousel/telemetry"
)

// Copier relays a source-channel message to a user chat. Implemented by the
// transport adapter (which also attaches the "next" button to the copy).
type Copier interface {
	CopyVideo(ctx context.Context, chatID int64, messageID int) error
}

// Outcome is the result kind of a delivery attempt.
type Outcome int

const (
	// OutcomeNoContent means the catalog is empty; nothing was mutated.
	OutcomeNoContent Outcome = iota
	// OutcomeDelivered means the video reached the user.
	OutcomeDelivered
	// OutcomeFailed means the relay attempt failed; the cursor advanced anyway.
	OutcomeFailed
)

// Result describes one DeliverNext call.
type Result struct {
	Outcome   Outcome
	VideoID   int
	Err       error
	Permanent bool // set on failure when the video is gone for good
}

// Dispatcher is the only write path that advances per-user playback state.
//
// Delivery is best-effort, not exactly-once: the cursor advances regardless
// of the delivery outcome so a dead catalog entry can never stall a user
// forever. Two concurrent calls for the same user can race the
// read-modify-write on the cursor and repeat or skip one video; accepted as
// low-probability under single-device usage. A per-user mutex or a
// compare-and-swap SetIndex would be the hardened variant.
type Dispatcher struct {
	Catalog store.CatalogStore
	State   store.PlaybackStore
	Copier  Copier
}

// DeliverNext resolves the user's next video, relays it, and advances the
// cursor. Steps: empty-catalog check, cursor read + normalization, catalog
// lookup, delivery attempt, cursor advance (mod catalog length) regardless
// of outcome.
func (d *Dispatcher) DeliverNext(ctx context.Context, userID, chatID int64) Result {
	ctx, span := telemetry.StartSpan(ctx, "dispatcher", "DeliverNext", telemetry.UserIDAttr(userID))
	defer span.End()

	ids := d.Catalog.All()
	if len(ids) == 0 {
		return Result{Outcome: OutcomeNoContent}
	}

	idx := d.State.GetIndex(ctx, userID)
	if idx < 0 || idx >= len(ids) {
		// Out-of-range cursor (fresh user after catalog reshape) wraps to 0.
		idx = 0
	}
	videoID := ids[idx]
	span.SetAttributes(telemetry.MessageIDAttr(videoID))

	var err error
	telemetry.TimeFunc(telemetry.DeliveryDuration, func() {
		err = d.Copier.CopyVideo(ctx, chatID, videoID)
	})

	next := (idx + 1) % len(ids)
	d.State.SetIndex(ctx, userID, next)

	if err != nil {
		permanent := IsPermanentDeliveryError(err)
		slog.Warn("video relay failed",
			slog.Int64("user_id", userID), slog.Int("message_id", videoID),
			slog.String("class", ClassifyDeliveryError(err).String()),
			slog.Any("err", err), slog.String("component", "dispatcher"))
		if telemetry.DeliveriesFailed != nil {
			telemetry.DeliveriesFailed.Inc()
		}
		telemetry.RecordError(span, err)
		return Result{Outcome: OutcomeFailed, VideoID: videoID, Err: err, Permanent: permanent}
	}

	if telemetry.DeliveriesSucceeded != nil {
		telemetry.DeliveriesSucceeded.Inc()
	}
	telemetry.SetSpanSuccess(span)
	return Result{Outcome: OutcomeDelivered, VideoID: videoID}
}
