// Package handlers implements HTTP request handlers for the opsradar API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/opsradar-systems/opsradar/internal/store"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// Scanner triggers one scan run. The scan engine implements it; tests plug in
// fakes.
type Scanner interface {
	Run(ctx context.Context) (types.ScanResult, error)
}

// Handlers contains all HTTP handler dependencies.
type Handlers struct {
	store   store.Store
	scanner Scanner
	logger  *slog.Logger
}

// New creates a new Handlers instance.
func New(st store.Store, scanner Scanner, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{store: st, scanner: scanner, logger: logger}
}

// writeJSON encodes v with the given status.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encoding response", "error", err)
	}
}

// writeError logs the internal error and returns a sanitized JSON error to
// the client.
func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string, err error) {
	if err != nil {
		h.logger.Error(msg, "error", err, "status", status)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
