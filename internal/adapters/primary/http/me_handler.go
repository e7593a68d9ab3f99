package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/community-hub/internal/core/ports"
)

// MeHandler handles HTTP requests for the authenticated user.
type MeHandler struct {
	authService  ports.AuthService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewMeHandler creates a new MeHandler.
func NewMeHandler(
	authService ports.AuthService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *MeHandler {
	return &MeHandler{
		authService:  authService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "me"),
	}
}

// RegisterRoutes registers the /me routes.
func (h *MeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleGetMe)
}

// HandleGetMe handles GET /me.
func (h *MeHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	user, err := h.authService.GetUser(r.Context(), principal.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toUserDTO(user))
}
