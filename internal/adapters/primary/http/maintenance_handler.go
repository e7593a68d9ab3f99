package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/community-hub/internal/adapters/primary/validation"
	"github.com/lorrc/community-hub/internal/core/domain"
	"github.com/lorrc/community-hub/internal/core/ports"
)

const (
	defaultMaintenancePerPage = 20
	maxMaintenancePerPage     = 50
)

var (
	maintenanceStatuses = []string{
		string(domain.StatusOpen),
		string(domain.StatusInProgress),
		string(domain.StatusClosed),
	}
	maintenancePriorities = []string{
		string(domain.PriorityLow),
		string(domain.PriorityMedium),
		string(domain.PriorityHigh),
	}
)

// MaintenanceHandler handles HTTP requests for maintenance requests
type MaintenanceHandler struct {
	maintenanceService ports.MaintenanceService
	errorHandler       *ErrorHandler
	logger             *slog.Logger
}

// NewMaintenanceHandler creates a new MaintenanceHandler
func NewMaintenanceHandler(
	maintenanceService ports.MaintenanceService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *MaintenanceHandler {
	return &MaintenanceHandler{
		maintenanceService: maintenanceService,
		errorHandler:       errorHandler,
		logger:             logger.With("handler", "maintenance"),
	}
}

// RegisterRoutes registers the /communities/{communityID}/maintenance routes
func (h *MaintenanceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListRequests)
	r.Post("/", h.HandleCreateRequest)
	r.Patch("/{requestID}", h.HandleUpdateStatus)
}

// --- Request DTOs ---

// CreateMaintenanceRequest is the body of POST /maintenance
type CreateMaintenanceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// Validate validates the create request
func (r *CreateMaintenanceRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("title", r.Title).
		MaxLength("title", r.Title, domain.MaxTitleLength).
		MaxLength("description", r.Description, domain.MaxDescriptionLength).
		OneOf("priority", r.Priority, maintenancePriorities)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateMaintenanceStatusRequest is the body of PATCH /maintenance/{requestID}
type UpdateMaintenanceStatusRequest struct {
	Status string `json:"status"`
}

// Validate validates the status update
func (r *UpdateMaintenanceStatusRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("status", r.Status).
		OneOf("status", r.Status, maintenanceStatuses)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// --- Handlers ---

// HandleListRequests handles GET /communities/{communityID}/maintenance
func (h *MaintenanceHandler) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	communityID, err := communityIDParam(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	pagination := validation.ParsePagination(r, defaultMaintenancePerPage, maxMaintenancePerPage)

	var status *domain.MaintenanceStatus
	if raw := validation.ParseStringQueryParam(r, "status"); raw != nil {
		v := validation.NewValidator().OneOf("status", *raw, maintenanceStatuses)
		if v.HasErrors() {
			h.errorHandler.Handle(w, r, v.Errors())
			return
		}
		parsed := domain.MaintenanceStatus(*raw)
		status = &parsed
	}

	requests, err := h.maintenanceService.ListRequests(r.Context(), ports.ListMaintenanceParams{
		CommunityID: communityID,
		Viewer:      principal,
		Status:      status,
		Limit:       pagination.Limit + 1,
		Offset:      pagination.Offset,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	data := make([]domain.MaintenanceSnapshot, 0, len(requests))
	for _, request := range requests {
		data = append(data, domain.NewMaintenanceSnapshot(request))
	}

	WritePaginatedSimple(w, data, pagination.Limit, pagination.Offset)
}

// HandleCreateRequest handles POST /communities/{communityID}/maintenance
func (h *MaintenanceHandler) HandleCreateRequest(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	communityID, err := communityIDParam(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[CreateMaintenanceRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	request, err := h.maintenanceService.CreateRequest(r.Context(), ports.CreateMaintenanceParams{
		CommunityID: communityID,
		Actor:       principal,
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.MaintenancePriority(req.Priority),
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("maintenance request created",
		"community_id", communityID,
		"request_id", request.ID,
		"user_id", principal.UserID,
	)

	WriteCreated(w, domain.NewMaintenanceSnapshot(request))
}

// HandleUpdateStatus handles PATCH /communities/{communityID}/maintenance/{requestID}
func (h *MaintenanceHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	communityID, err := communityIDParam(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	requestID, err := int64Param(r, "requestID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateMaintenanceStatusRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	request, err := h.maintenanceService.UpdateStatus(r.Context(), ports.UpdateMaintenanceStatusParams{
		CommunityID: communityID,
		RequestID:   requestID,
		Actor:       principal,
		Status:      domain.MaintenanceStatus(req.Status),
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("maintenance status updated",
		"community_id", communityID,
		"request_id", requestID,
		"new_status", req.Status,
		"user_id", principal.UserID,
	)

	WriteJSON(w, http.StatusOK, domain.NewMaintenanceSnapshot(request))
}
