// Package http is the Processor service's HTTP surface: a liveness
// probe only, per SPEC_FULL.md §4.12 (the processing loop has no
// external collaborators beyond the broker and the database).
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stepangreenberg/order-processor/internal/platform/broker"
)

type Handlers struct {
	Pool       *pgxpool.Pool
	BrokerConn *broker.Conn
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Pool.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	if h.BrokerConn == nil || h.BrokerConn.Connection.IsClosed() {
		writeError(w, http.StatusServiceUnavailable, "broker unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
