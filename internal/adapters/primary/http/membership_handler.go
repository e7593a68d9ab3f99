package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/community-hub/internal/adapters/primary/validation"
	"github.com/lorrc/community-hub/internal/core/domain"
	"github.com/lorrc/community-hub/internal/core/ports"
)

var membershipStatuses = []string{
	string(domain.MembershipPending),
	string(domain.MembershipApproved),
}

// MembershipHandler handles joining communities
type MembershipHandler struct {
	membershipService ports.MembershipService
	errorHandler      *ErrorHandler
	logger            *slog.Logger
}

// NewMembershipHandler creates a new MembershipHandler
func NewMembershipHandler(
	membershipService ports.MembershipService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *MembershipHandler {
	return &MembershipHandler{
		membershipService: membershipService,
		errorHandler:      errorHandler,
		logger:            logger.With("handler", "membership"),
	}
}

// RegisterRoutes registers the /communities/{communityID}/members routes
func (h *MembershipHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListMembers)
	r.Post("/", h.HandleRequestMembership)
	r.Post("/{userID}/approve", h.HandleApproveMembership)
}

// HandleRequestMembership handles POST /communities/{communityID}/members
func (h *MembershipHandler) HandleRequestMembership(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	communityID, err := communityIDParam(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	membership, err := h.membershipService.RequestMembership(r.Context(), communityID, principal)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("membership requested",
		"community_id", communityID,
		"user_id", principal.UserID,
	)

	WriteCreated(w, domain.NewMembershipSnapshot(membership))
}

// HandleApproveMembership handles POST /communities/{communityID}/members/{userID}/approve
func (h *MembershipHandler) HandleApproveMembership(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	communityID, err := communityIDParam(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	userID, err := uuidParam(r, "userID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	membership, err := h.membershipService.ApproveMembership(r.Context(), communityID, userID, principal)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("membership approved",
		"community_id", communityID,
		"member_id", userID,
		"approved_by", principal.UserID,
	)

	WriteJSON(w, http.StatusOK, domain.NewMembershipSnapshot(membership))
}

// HandleListMembers handles GET /communities/{communityID}/members?status=
func (h *MembershipHandler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	communityID, err := communityIDParam(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	var status *domain.MembershipStatus
	if raw := validation.ParseStringQueryParam(r, "status"); raw != nil {
		v := validation.NewValidator().OneOf("status", *raw, membershipStatuses)
		if v.HasErrors() {
			h.errorHandler.Handle(w, r, v.Errors())
			return
		}
		parsed := domain.MembershipStatus(*raw)
		status = &parsed
	}

	memberships, err := h.membershipService.ListMembers(r.Context(), communityID, status, principal)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	data := make([]domain.MembershipSnapshot, 0, len(memberships))
	for _, membership := range memberships {
		data = append(data, domain.NewMembershipSnapshot(membership))
	}

	WriteList(w, data)
}
