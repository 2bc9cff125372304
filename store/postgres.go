package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// PostgresCatalog is the durable CatalogStore. Reads are served from an
// embedded MemoryCatalog seeded by Load; writes go to both, with the
// channel_videos upsert keyed on message_id so racing adds from the scanner
// and live events never create duplicate rows. A failed durable write is
// logged and swallowed: the in-memory sequence stays the copy of record for
// the rest of the run.
type PostgresCatalog struct {
	db  *sql.DB
	mem *MemoryCatalog
}

func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db, mem: NewMemoryCatalog()}
}

// Load seeds the in-process sequence from channel_videos.
func (c *PostgresCatalog) Load(ctx context.Context) error {
	rows, err := c.db.QueryContext(ctx, `SELECT message_id, discovered_at FROM channel_videos ORDER BY message_id ASC`)
	if err != nil {
		return err
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var id int
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return err
		}
		c.mem.insert(id, at)
	}
	return rows.Err()
}

func (c *PostgresCatalog) Add(ctx context.Context, messageID int, discoveredAt time.Time) {
	if !c.mem.insert(messageID, discoveredAt) {
		return
	}
	if _, err := c.db.ExecContext(ctx, `INSERT INTO channel_videos (message_id, discovered_at) VALUES ($1,$2)
		ON CONFLICT (message_id) DO NOTHING`, messageID, discoveredAt); err != nil {
		slog.Warn("catalog durable write failed, keeping in-memory entry",
			slog.Int("message_id", messageID), slog.Any("err", err), slog.String("component", "store"))
	}
}

func (c *PostgresCatalog) All() []int { return c.mem.All() }

func (c *PostgresCatalog) Size() int { return c.mem.Size() }

// PostgresPlayback is the durable PlaybackStore. A MemoryPlayback mirror
// absorbs per-operation database failures so a flaky connection degrades to
// session-local state instead of user-visible errors.
type PostgresPlayback struct {
	db  *sql.DB
	mem *MemoryPlayback
}

func NewPostgresPlayback(db *sql.DB) *PostgresPlayback {
	return &PostgresPlayback{db: db, mem: NewMemoryPlayback()}
}

func (p *PostgresPlayback) GetIndex(ctx context.Context, userID int64) int {
	var idx int
	err := p.db.QueryRowContext(ctx, `SELECT current_index FROM user_state WHERE user_id=$1`, userID).Scan(&idx)
	switch {
	case err == sql.ErrNoRows:
		return p.mem.GetIndex(ctx, userID)
	case err != nil:
		slog.Warn("playback state read failed, using in-memory fallback",
			slog.Int64("user_id", userID), slog.Any("err", err), slog.String("component", "store"))
		return p.mem.GetIndex(ctx, userID)
	}
	p.mem.SetIndex(ctx, userID, idx)
	return idx
}

func (p *PostgresPlayback) SetIndex(ctx context.Context, userID int64, index int) {
	p.mem.SetIndex(ctx, userID, index)
	if _, err := p.db.ExecContext(ctx, `INSERT INTO user_state (user_id, current_index, updated_at) VALUES ($1,$2,NOW())
		ON CONFLICT (user_id) DO UPDATE SET current_index=EXCLUDED.current_index, updated_at=NOW()`, userID, index); err != nil {
		slog.Warn("playback state write failed, keeping in-memory value",
			slog.Int64("user_id", userID), slog.Any("err", err), slog.String("component", "store"))
	}
}
