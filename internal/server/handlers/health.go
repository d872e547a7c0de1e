package handlers

import "net/http"

// Health reports service and store health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "store": "ok"}
	code := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("store ping failed", "error", err)
		status["status"] = "degraded"
		status["store"] = "unreachable"
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, status)
}
