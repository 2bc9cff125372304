package bot

import (
	"context"
	"testing"
	"time"

	"github.com/onnwee/telecarousel/config"
	"github.com/onnwee/telecarousel/relay"
	"github.com/onnwee/telecarousel/store"
	"github.com/onnwee/telecarousel/testutil"
)

func testConfig() *config.Config {
	return &config.Config{
		BotToken:         "123:testtoken",
		SourceChannelID:  -100555,
		ForceJoinChannel: "joinchan",
		ProbeChatID:      42,
		ScanUpperBound:   64,
	}
}

func newTestBot(t *testing.T, srv *testutil.MockTelegramServer) *Bot {
	t.Helper()
	b, err := NewWithEndpoint(testConfig(), store.NewMemoryCatalog(), store.NewMemoryPlayback(), srv.Endpoint())
	if err != nil {
		t.Fatalf("NewWithEndpoint: %v", err)
	}
	return b
}

func TestMemberStatusLookup(t *testing.T) {
	srv := testutil.NewMockTelegramServer(t)
	srv.MockChatMember("member")
	b := newTestBot(t, srv)

	status, err := b.MemberStatus(context.Background(), relay.ChatRef{Username: "joinchan"}, 7)
	if err != nil {
		t.Fatalf("MemberStatus error: %v", err)
	}
	if status != "member" {
		t.Errorf("status = %q, want member", status)
	}
}

func TestGateDeniesOnLookupError(t *testing.T) {
	srv := testutil.NewMockTelegramServer(t)
	srv.MockChatMemberError(400, "Bad Request: user not found")
	b := newTestBot(t, srv)

	if b.gate.IsMember(context.Background(), 7) {
		t.Errorf("IsMember = true when lookup errors, want false")
	}
}

func TestGateAllowsMember(t *testing.T) {
	srv := testutil.NewMockTelegramServer(t)
	srv.MockChatMember("creator")
	b := newTestBot(t, srv)

	if !b.gate.IsMember(context.Background(), 7) {
		t.Errorf("IsMember = false for creator, want true")
	}
}

func TestCopyVideo(t *testing.T) {
	srv := testutil.NewMockTelegramServer(t)
	srv.MockCopyMessage()
	b := newTestBot(t, srv)

	if err := b.CopyVideo(context.Background(), 77, 5); err != nil {
		t.Fatalf("CopyVideo error: %v", err)
	}
	if srv.Calls["copyMessage"] != 1 {
		t.Errorf("copyMessage calls = %d, want 1", srv.Calls["copyMessage"])
	}
}

func TestCopyVideoGoneIsPermanent(t *testing.T) {
	srv := testutil.NewMockTelegramServer(t)
	srv.MockCopyMessageError(400, "Bad Request: message to copy not found")
	b := newTestBot(t, srv)

	err := b.CopyVideo(context.Background(), 77, 5)
	if err == nil {
		t.Fatalf("CopyVideo succeeded, want error")
	}
	if !relay.IsPermanentDeliveryError(err) {
		t.Errorf("gone video error not classified permanent: %v", err)
	}
}

func TestProbeFindsVideo(t *testing.T) {
	srv := testutil.NewMockTelegramServer(t)
	posted := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	srv.MockForwardMessage(true, posted.Unix())
	b := newTestBot(t, srv)

	res, err := b.Probe(context.Background(), 5)
	if err != nil {
		t.Fatalf("Probe error: %v", err)
	}
	if !res.Exists || !res.IsVideo {
		t.Errorf("Probe = %+v, want existing video", res)
	}
	if !res.PostedAt.Equal(posted) {
		t.Errorf("PostedAt = %v, want %v", res.PostedAt, posted)
	}
	// The probe copy is cleaned up.
	if srv.Calls["deleteMessage"] != 1 {
		t.Errorf("deleteMessage calls = %d, want 1", srv.Calls["deleteMessage"])
	}
}

func TestProbeNonVideo(t *testing.T) {
	srv := testutil.NewMockTelegramServer(t)
	srv.MockForwardMessage(false, time.Now().Unix())
	b := newTestBot(t, srv)

	res, err := b.Probe(context.Background(), 5)
	if err != nil {
		t.Fatalf("Probe error: %v", err)
	}
	if !res.Exists || res.IsVideo {
		t.Errorf("Probe = %+v, want existing non-video", res)
	}
}

func TestProbeMissingMessage(t *testing.T) {
	srv := testutil.NewMockTelegramServer(t)
	srv.MockForwardMessageError(400, "Bad Request: message to forward not found")
	b := newTestBot(t, srv)

	res, err := b.Probe(context.Background(), 99999)
	if err != nil {
		t.Fatalf("Probe error: %v, want absorbed not-found", err)
	}
	if res.Exists {
		t.Errorf("Probe reported existence for a missing message")
	}
}

func TestProbeTransientErrorSurfces(t *testing.T) {
	srv := testutil.NewMockTelegramServer(t)
	srv.MockForwardMessageError(429, "Too Many Requests: retry after 3")
	b := newTestBot(t, srv)

	if _, err := b.Probe(context.Background(), 5); err == nil {
		t.Errorf("Probe swallowed a transient error, want it surfaced for the indexer to count")
	}
}

func TestIndexerDisabledWithoutProbeChat(t *testing.T) {
	srv := testutil.NewMockTelegramServer(t)
	cfg := testConfig()
	cfg.ProbeChatID = 0
	b, err := NewWithEndpoint(cfg, store.NewMemoryCatalog(), store.NewMemoryPlayback(), srv.Endpoint())
	if err != nil {
		t.Fatalf("NewWithEndpoint: %v", err)
	}

	b.Indexer().Run(context.Background())
	if !b.Indexer().Completed() {
		t.Errorf("indexer did not complete when scanning is disabled")
	}
	if srv.Calls["forwardMessage"] != 0 {
		t.Errorf("probes issued with no probe chat configured")
	}
}
