package relay

import (
	"context"
	"errors"
	"testing"
)

type fakeLookup struct {
	status string
	err    error
	calls  int
	chats  []ChatRef
}

func (f *fakeLookup) MemberStatus(ctx context.Context, chat ChatRef, userID int64) (string, error) {
	f.calls++
	f.chats = append(f.chats, chat)
	return f.status, f.err
}

func TestIsMemberStatuses(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"creator", true},
		{"administrator", true},
		{"member", true},
		{"restricted", false},
		{"left", false},
		{"kicked", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run("status "+tt.status, func(t *testing.T) {
			g := &Gate{Lookup: &fakeLookup{status: tt.status}, ForceJoin: ChatRef{Username: "chan"}}
			if got := g.IsMember(context.Background(), 42); got != tt.want {
				t.Errorf("IsMember with status %q = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestIsMemberFailsClosed(t *testing.T) {
	g := &Gate{
		Lookup:    &fakeLookup{err: errors.New("context deadline exceeded")},
		ForceJoin: ChatRef{Username: "chan"},
	}
	if g.IsMember(context.Background(), 42) {
		t.Errorf("IsMember = true on lookup failure, want false (fail-closed)")
	}
}

func TestIsMemberNoCaching(t *testing.T) {
	lu := &fakeLookup{status: "member"}
	g := &Gate{Lookup: lu, ForceJoin: ChatRef{Username: "chan"}}
	ctx := context.Background()
	g.IsMember(ctx, 42)
	g.IsMember(ctx, 42)
	if lu.calls != 2 {
		t.Errorf("lookup calls = %d, want 2 (every invocation re-checks)", lu.calls)
	}
}

func TestIsAdminChecksSourceChannel(t *testing.T) {
	lu := &fakeLookup{status: "administrator"}
	g := &Gate{
		Lookup:    lu,
		ForceJoin: ChatRef{Username: "join_chan"},
		Source:    ChatRef{ID: -100123},
	}
	if !g.IsAdmin(context.Background(), 42) {
		t.Fatalf("IsAdmin = false for administrator")
	}
	if len(lu.chats) != 1 || lu.chats[0].ID != -100123 {
		t.Errorf("IsAdmin queried %+v, want the source channel", lu.chats)
	}
}

func TestIsAdminRejectsPlainMember(t *testing.T) {
	g := &Gate{Lookup: &fakeLookup{status: "member"}, Source: ChatRef{ID: -1}}
	if g.IsAdmin(context.Background(), 42) {
		t.Errorf("IsAdmin = true for plain member, want false")
	}
}

func TestIsAdminFailsClosed(t *testing.T) {
	g := &Gate{Lookup: &fakeLookup{err: errors.New("boom")}, Source: ChatRef{ID: -1}}
	if g.IsAdmin(context.Background(), 42) {
		t.Errorf("IsAdmin = true on lookup failure, want false")
	}
}
