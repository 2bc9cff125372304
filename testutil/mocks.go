package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// MockTelegramServer fakes the Telegram Bot API for handler tests. Handlers
// are keyed by Bot API method name (e.g. "getChatMember"); unhandled methods
// return a generic Bad Request error payload.
type MockTelegramServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
	Calls    map[string]int
}

// NewMockTelegramServer creates the fake API server with getMe pre-wired so
// tgbotapi client construction succeeds.
func NewMockTelegramServer(t *testing.T) *MockTelegramServer {
	t.Helper()
	m := &MockTelegramServer{
		Handlers: make(map[string]http.HandlerFunc),
		Calls:    make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Paths look like /bot<token>/<method>.
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
		method := parts[len(parts)-1]
		m.Calls[method]++
		if handler, ok := m.Handlers[method]; ok {
			handler(w, r)
			return
		}
		WriteError(w, 400, "Bad Request: method not mocked: "+method)
	}))
	t.Cleanup(m.Close)
	m.Handlers["getMe"] = func(w http.ResponseWriter, r *http.Request) {
		WriteResult(w, map[string]any{"id": 1, "is_bot": true, "first_name": "carousel", "username": "carousel_bot"})
	}
	return m
}

// Endpoint returns the API endpoint template for tgbotapi.NewBotAPIWithAPIEndpoint.
func (m *MockTelegramServer) Endpoint() string {
	return m.URL + "/bot%s/%s"
}

// MockChatMember wires getChatMember to return the given membership status.
func (m *MockTelegramServer) MockChatMember(status string) {
	m.Handlers["getChatMember"] = func(w http.ResponseWriter, r *http.Request) {
		WriteResult(w, map[string]any{
			"status": status,
			"user":   map[string]any{"id": 2, "is_bot": false, "first_name": "u"},
		})
	}
}

// MockChatMemberError wires getChatMember to fail with an API error.
func (m *MockTelegramServer) MockChatMemberError(code int, description string) {
	m.Handlers["getChatMember"] = func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, code, description)
	}
}

// MockCopyMessage wires copyMessage to succeed with a fresh message id.
func (m *MockTelegramServer) MockCopyMessage() {
	m.Handlers["copyMessage"] = func(w http.ResponseWriter, r *http.Request) {
		WriteResult(w, map[string]any{"message_id": 900 + m.Calls["copyMessage"]})
	}
}

// MockCopyMessageError wires copyMessage to fail with an API error.
func (m *MockTelegramServer) MockCopyMessageError(code int, description string) {
	m.Handlers["copyMessage"] = func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, code, description)
	}
}

// MockForwardMessage wires forwardMessage to return a message, optionally a video.
func (m *MockTelegramServer) MockForwardMessage(isVideo bool, forwardDate int64) {
	m.Handlers["forwardMessage"] = func(w http.ResponseWriter, r *http.Request) {
		msg := map[string]any{
			"message_id":   800 + m.Calls["forwardMessage"],
			"date":         forwardDate,
			"forward_date": forwardDate,
			"chat":         map[string]any{"id": 77, "type": "private"},
		}
		if isVideo {
			msg["video"] = map[string]any{"file_id": "f", "file_unique_id": "fu", "width": 1, "height": 1, "duration": 1}
		}
		WriteResult(w, msg)
	}
	m.Handlers["deleteMessage"] = func(w http.ResponseWriter, r *http.Request) {
		WriteResult(w, true)
	}
}

// MockForwardMessageError wires forwardMessage to fail with an API error.
func (m *MockTelegramServer) MockForwardMessageError(code int, description string) {
	m.Handlers["forwardMessage"] = func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, code, description)
	}
}

// MockSendMessage records sent texts and acknowledges them.
func (m *MockTelegramServer) MockSendMessage(sink *[]string) {
	m.Handlers["sendMessage"] = func(w http.ResponseWriter, r *http.Request) {
		if sink != nil {
			_ = r.ParseForm()
			*sink = append(*sink, r.Form.Get("text"))
		}
		WriteResult(w, map[string]any{
			"message_id": 700 + m.Calls["sendMessage"],
			"date":       0,
			"chat":       map[string]any{"id": 77, "type": "private"},
		})
	}
}

// WriteResult writes a successful Bot API envelope.
func WriteResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

// WriteError writes a failed Bot API envelope.
func WriteError(w http.ResponseWriter, code int, description string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": code, "description": description})
}
