package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/opsradar-systems/opsradar/internal/store"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// filterFromQuery builds an InsightFilter from URL query parameters. Unknown
// values surface as 400s through validation below rather than silently
// matching nothing.
func filterFromQuery(r *http.Request) (types.InsightFilter, error) {
	q := r.URL.Query()
	filter := types.InsightFilter{
		Status:     types.InsightStatus(q.Get("status")),
		EntityType: types.EntityType(q.Get("entityType")),
		Region:     q.Get("region"),
		RiskType:   types.RiskType(q.Get("riskType")),
		MinLevel:   types.RiskLevel(q.Get("minLevel")),
	}
	if q.Get("includeExpired") == "true" {
		filter.IncludeExpired = true
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, errors.New("limit must be a non-negative integer")
		}
		filter.Limit = limit
	}

	switch filter.Status {
	case "", types.StatusOpen, types.StatusResolved, types.StatusIgnored:
	default:
		return filter, errors.New("unknown status " + string(filter.Status))
	}
	switch filter.MinLevel {
	case "", types.LevelLow, types.LevelMedium, types.LevelHigh, types.LevelCritical:
	default:
		return filter, errors.New("unknown minLevel " + string(filter.MinLevel))
	}
	return filter, nil
}

// ListInsights returns insights matching the query filter, highest score
// first. Status defaults to open.
func (h *Handlers) ListInsights(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	insights, err := h.store.QueryInsights(r.Context(), filter)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "querying insights", err)
		return
	}
	if insights == nil {
		insights = []types.RiskInsight{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"insights": insights,
		"count":    len(insights),
	})
}

// SummarizeInsights returns grouped counts for the same filters ListInsights
// accepts.
func (h *Handlers) SummarizeInsights(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	summary, err := h.store.Summarize(r.Context(), filter)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "summarizing insights", err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// GetInsight returns one insight by ID.
func (h *Handlers) GetInsight(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "insightID")

	insight, err := h.store.GetInsight(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "insight not found", nil)
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "loading insight", err)
		return
	}
	h.writeJSON(w, http.StatusOK, insight)
}

type statusUpdateRequest struct {
	Status types.InsightStatus `json:"status"`
}

// UpdateInsightStatus moves an open insight to resolved or ignored. Scores
// and levels are engine-owned and cannot be changed here.
func (h *Handlers) UpdateInsightStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "insightID")

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}
	if req.Status != types.StatusResolved && req.Status != types.StatusIgnored {
		h.writeError(w, http.StatusBadRequest, "status must be resolved or ignored", nil)
		return
	}

	insight, err := h.store.UpdateInsightStatus(r.Context(), id, req.Status)
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "insight not found", nil)
	case errors.Is(err, store.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, err.Error(), nil)
	case err != nil:
		h.writeError(w, http.StatusInternalServerError, "updating insight status", err)
	default:
		h.writeJSON(w, http.StatusOK, insight)
	}
}
