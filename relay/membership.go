package relay

import (
	"context"
	"log/slog"

	"github.com/onnwee/telecarousel/telemetry"
)

// ChatRef identifies a Telegram chat either by numeric id or by public username.
type ChatRef struct {
	ID       int64
	Username string
}

// MemberLookup resolves a user's membership status in a chat. Implemented by
// the transport adapter; status strings follow the Bot API chat member types
// ("creator", "administrator", "member", "restricted", "left", "kicked").
type MemberLookup interface {
	MemberStatus(ctx context.Context, chat ChatRef, userID int64) (string, error)
}

// Gate is the fail-closed authorization check. Every call performs a fresh
// lookup: no caching and no retry, so an indeterminate result can never
// grant access. It answers two questions against two different chats: is the
// user a member of the force-join channel, and is the user an admin of the
// source channel.
type Gate struct {
	Lookup    MemberLookup
	ForceJoin ChatRef
	Source    ChatRef
}

var memberStatuses = map[string]bool{
	"creator":       true,
	"administrator": true,
	"member":        true,
}

var adminStatuses = map[string]bool{
	"creator":       true,
	"administrator": true,
}

// IsMember reports whether the user may use the bot. Lookup failures,
// unknown users, and every status outside {creator, administrator, member}
// all deny.
func (g *Gate) IsMember(ctx context.Context, userID int64) bool {
	status, err := g.Lookup.MemberStatus(ctx, g.ForceJoin, userID)
	if err != nil {
		slog.Warn("membership lookup failed, denying",
			slog.Int64("user_id", userID), slog.Any("err", err), slog.String("component", "gate"))
		if telemetry.MembershipDenied != nil {
			telemetry.MembershipDenied.Inc()
		}
		return false
	}
	if !memberStatuses[status] {
		if telemetry.MembershipDenied != nil {
			telemetry.MembershipDenied.Inc()
		}
		return false
	}
	return true
}

// IsAdmin reports whether the user is a creator or administrator of the
// source channel. Same fail-closed contract as IsMember.
func (g *Gate) IsAdmin(ctx context.Context, userID int64) bool {
	status, err := g.Lookup.MemberStatus(ctx, g.Source, userID)
	if err != nil {
		slog.Warn("admin lookup failed, denying",
			slog.Int64("user_id", userID), slog.Any("err", err), slog.String("component", "gate"))
		return false
	}
	return adminStatuses[status]
}
