package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/onnwee/telecarousel/relay"
	"github.com/onnwee/telecarousel/store"
)

// Handlers holds dependencies for the HTTP handlers. DB is nil when the
// service runs on the in-memory backend.
type Handlers struct {
	DB          *sql.DB
	Catalog     store.CatalogStore
	Indexer     *relay.Indexer
	StorageMode string // "postgres" or "memory"
	StartedAt   time.Time
	Webhook     http.Handler // nil outside webhook mode
}

// HandleHealthz responds to liveness probes. The process being able to
// answer is the whole check; storage health belongs to readiness.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleReadyz responds to readiness probes. In durable mode the database
// must answer a ping; in memory mode readiness equals liveness.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.PingContext(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": "database",
				"error":        err.Error(),
			})
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// HandleStatus returns a lightweight status summary.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := map[string]any{
		"status":      "ok",
		"videoCount":  h.Catalog.Size(),
		"storageMode": h.StorageMode,
		"uptime":      time.Since(h.StartedAt).Round(time.Second).String(),
	}
	if h.Indexer != nil {
		resp["scanComplete"] = h.Indexer.Completed()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
