package handlers

import "net/http"

// TriggerScan runs one scan synchronously and returns its result. The engine
// enforces the scan budget, so the request cannot outlive it by much.
func (h *Handlers) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		h.writeError(w, http.StatusServiceUnavailable, "scanning is not enabled on this instance", nil)
		return
	}

	result, err := h.scanner.Run(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "scan failed: activity feed unavailable", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}
