// Package relay holds the core of the bot: the channel video indexer, the
// playback dispatcher, and the membership gate. The messaging transport is a
// collaborator hidden behind the Prober, Copier, and MemberLookup
// interfaces, so everything here runs against fakes in tests.
package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/onnwee/telecarousel/store"
	"github.com/onnwee/telecarousel/telemetry"
)

// ScanPolicy bounds a channel scan. All values come from configuration so
// tests can run the indexer with tiny budgets; nothing here is a correctness
// requirement beyond termination.
type ScanPolicy struct {
	// UpperBound caps the message-id space probed during bounds discovery.
	UpperBound int
	// MaxConsecutiveFailures ends the linear sweep once this many probes in
	// a row report nothing. Transient provider errors are indistinguishable
	// from absent messages, so a long failure run can end a scan early; the
	// result is best-effort, not exhaustive.
	MaxConsecutiveFailures int
	// ProbesPerSecond paces individual probes.
	ProbesPerSecond float64
	// BatchSize and BatchDelay inject an extra pause every BatchSize probes.
	BatchSize  int
	BatchDelay time.Duration
}

// ProbeResult is what a single existence probe learned about a message id.
type ProbeResult struct {
	Exists   bool
	IsVideo  bool
	PostedAt time.Time // zero when unknown; callers substitute probe time
}

// Prober is the message-existence check. Probe errors are absorbed by the
// indexer and treated the same as "message absent".
type Prober interface {
	Probe(ctx context.Context, messageID int) (ProbeResult, error)
}

// Indexer discovers the backlog of channel videos by probing message ids,
// since no history-listing capability exists. It runs as a background task:
// bounds discovery by binary search over the id space, then a descending
// sweep from the discovered bound upserting every video found. It never
// reports an error to its caller; completion is exposed as a signal.
type Indexer struct {
	Catalog store.CatalogStore
	Prober  Prober
	Policy  ScanPolicy

	limiter *rate.Limiter
	probes  int

	mu        sync.Mutex
	running   bool
	completed bool
	doneOnce  sync.Once
	done      chan struct{}
}

func NewIndexer(catalog store.CatalogStore, prober Prober, policy ScanPolicy) *Indexer {
	var limiter *rate.Limiter
	if policy.ProbesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(policy.ProbesPerSecond), 1)
	}
	return &Indexer{
		Catalog: catalog,
		Prober:  prober,
		Policy:  policy,
		limiter: limiter,
		done:    make(chan struct{}),
	}
}

// Done is closed once the first scan run finishes (successfully or not).
func (ix *Indexer) Done() <-chan struct{} { return ix.done }

// Completed reports whether at least one scan run has finished.
func (ix *Indexer) Completed() bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.completed
}

// Run executes one scan. It is safe to invoke again (rescans re-discover
// ids, which are no-ops on the catalog); a call while a scan is already in
// flight returns immediately. Run never returns an error: per-id failures
// are absorbed, and a canceled context just ends the sweep early.
func (ix *Indexer) Run(ctx context.Context) {
	ix.mu.Lock()
	if ix.running {
		ix.mu.Unlock()
		slog.Debug("scan already running, skipping", slog.String("component", "indexer"))
		return
	}
	if ix.Prober == nil {
		// No probe transport configured: live channel events are the only
		// feed. Mark complete so waiters are not stuck.
		ix.completed = true
		ix.running = false
		ix.mu.Unlock()
		ix.doneOnce.Do(func() { close(ix.done) })
		slog.Info("channel scan disabled: no probe transport", slog.String("component", "indexer"))
		return
	}
	ix.running = true
	ix.mu.Unlock()

	start := time.Now()
	slog.Info("channel scan starting",
		slog.Int("upper_bound", ix.Policy.UpperBound),
		slog.Int("max_consecutive_failures", ix.Policy.MaxConsecutiveFailures),
		slog.String("component", "indexer"))

	bound := ix.discoverUpperBound(ctx)
	found := ix.sweep(ctx, bound)

	ix.mu.Lock()
	ix.running = false
	ix.completed = true
	ix.mu.Unlock()
	ix.doneOnce.Do(func() { close(ix.done) })

	if telemetry.ScanRuns != nil {
		telemetry.ScanRuns.Inc()
	}
	slog.Info("channel scan finished",
		slog.Int("bound", bound), slog.Int("videos_found", found),
		slog.Int("catalog_size", ix.Catalog.Size()),
		slog.Duration("elapsed", time.Since(start)),
		slog.String("component", "indexer"))
}

// discoverUpperBound binary-searches [1, UpperBound] for the highest live
// message id. Channel post ids are monotonically increasing and mostly
// contiguous, so this lands at or near the newest message; the estimate only
// has to be good enough to seed the sweep.
func (ix *Indexer) discoverUpperBound(ctx context.Context) int {
	lo, hi := 1, ix.Policy.UpperBound
	for lo < hi {
		if ctx.Err() != nil {
			return lo
		}
		mid := (lo + hi + 1) / 2
		res, err := ix.probe(ctx, mid)
		if err == nil && res.Exists {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// sweep walks message ids descending from the bound, recording every video,
// until MaxConsecutiveFailures probes in a row find nothing or the context
// ends. Returns the count of video ids seen (including already-known ones).
func (ix *Indexer) sweep(ctx context.Context, from int) int {
	found := 0
	failures := 0
	for id := from; id >= 1; id-- {
		if ctx.Err() != nil {
			return found
		}
		res, err := ix.probe(ctx, id)
		if err != nil || !res.Exists {
			failures++
			if failures >= ix.Policy.MaxConsecutiveFailures {
				slog.Info("scan halted after consecutive failures",
					slog.Int("last_id", id), slog.Int("failures", failures),
					slog.String("component", "indexer"))
				return found
			}
			continue
		}
		failures = 0
		if res.IsVideo {
			at := res.PostedAt
			if at.IsZero() {
				at = time.Now()
			}
			ix.Catalog.Add(ctx, id, at)
			found++
			if telemetry.VideosDiscovered != nil {
				telemetry.VideosDiscovered.Inc()
			}
		}
	}
	return found
}

// probe issues one rate-limited existence check.
func (ix *Indexer) probe(ctx context.Context, id int) (ProbeResult, error) {
	if ix.limiter != nil {
		if err := ix.limiter.Wait(ctx); err != nil {
			return ProbeResult{}, err
		}
	}
	ix.probes++
	if ix.Policy.BatchSize > 0 && ix.Policy.BatchDelay > 0 && ix.probes%ix.Policy.BatchSize == 0 {
		select {
		case <-ctx.Done():
			return ProbeResult{}, ctx.Err()
		case <-time.After(ix.Policy.BatchDelay):
		}
	}
	if telemetry.ProbesIssued != nil {
		telemetry.ProbesIssued.Inc()
	}
	res, err := ix.Prober.Probe(ctx, id)
	if err != nil {
		slog.Debug("probe failed", slog.Int("message_id", id), slog.Any("err", err), slog.String("component", "indexer"))
	}
	return res, err
}
