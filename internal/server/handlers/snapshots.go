package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/opsradar-systems/opsradar/internal/store"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

const defaultTrendDays = 30

func scopeFromQuery(r *http.Request) types.Scope {
	return types.Scope{
		Brand:  r.URL.Query().Get("brand"),
		Region: r.URL.Query().Get("region"),
	}
}

// LatestSnapshot returns the most recent KPI snapshot for a scope. Brand and
// region default to empty, the global roll-up.
func (h *Handlers) LatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.LatestSnapshot(r.Context(), scopeFromQuery(r))
	if errors.Is(err, store.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "no snapshot for scope", nil)
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "loading snapshot", err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// SnapshotTrend returns a scope's snapshots over the trailing N days (default
// 30), oldest first.
func (h *Handlers) SnapshotTrend(w http.ResponseWriter, r *http.Request) {
	days := defaultTrendDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "days must be a positive integer", nil)
			return
		}
		days = parsed
	}

	trend, err := h.store.SnapshotTrend(r.Context(), scopeFromQuery(r), days)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "querying snapshot trend", err)
		return
	}
	if trend == nil {
		trend = []types.KpiSnapshot{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"snapshots": trend,
		"count":     len(trend),
	})
}
