package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	wsAdapter "github.com/lorrc/community-hub/internal/adapters/primary/websocket"
)

// RealtimeStats reports the size of the live connection registry
type RealtimeStats interface {
	Stats() wsAdapter.RegistryStats
}

// RealtimeHandler exposes operational views of the realtime core
type RealtimeHandler struct {
	stats RealtimeStats
}

// NewRealtimeHandler creates a new RealtimeHandler
func NewRealtimeHandler(stats RealtimeStats) *RealtimeHandler {
	return &RealtimeHandler{stats: stats}
}

// RegisterRoutes registers the /realtime routes
func (h *RealtimeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.HandleStats)
}

// HandleStats handles GET /realtime/stats
func (h *RealtimeHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.stats.Stats())
}
