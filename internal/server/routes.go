package server

import (
	"expvar"

	"github.com/go-chi/chi/v5"

	"github.com/opsradar-systems/opsradar/internal/server/handlers"
)

func (s *Server) registerRoutes(r chi.Router, h *handlers.Handlers) {
	r.Route("/api", func(r chi.Router) {
		// Health
		r.Get("/health", h.Health)

		// Insights
		r.Get("/insights", h.ListInsights)
		r.Get("/insights/summary", h.SummarizeInsights)
		r.Get("/insights/{insightID}", h.GetInsight)
		r.Post("/insights/{insightID}/status", h.UpdateInsightStatus)

		// Scans
		r.Post("/scan", h.TriggerScan)

		// KPI snapshots
		r.Get("/snapshots/latest", h.LatestSnapshot)
		r.Get("/snapshots/trend", h.SnapshotTrend)
	})

	r.Method("GET", "/debug/vars", expvar.Handler())
}
