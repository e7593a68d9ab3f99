package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/community-hub/internal/adapters/primary/validation"
	"github.com/lorrc/community-hub/internal/core/domain"
	"github.com/lorrc/community-hub/internal/core/ports"
)

const maxMessagesLimit = 200

// ChatHandler handles community chat. Posting is the producer side of
// chat:message; listing is the pull fallback for clients that missed pushes.
type ChatHandler struct {
	chatService  ports.ChatService
	errorHandler *ErrorHandler
	postLimiter  func(http.Handler) http.Handler
	logger       *slog.Logger
}

// NewChatHandler creates a new ChatHandler. postLimiter may be nil.
func NewChatHandler(
	chatService ports.ChatService,
	errorHandler *ErrorHandler,
	postLimiter func(http.Handler) http.Handler,
	logger *slog.Logger,
) *ChatHandler {
	return &ChatHandler{
		chatService:  chatService,
		errorHandler: errorHandler,
		postLimiter:  postLimiter,
		logger:       logger.With("handler", "chat"),
	}
}

// RegisterRoutes registers the /communities/{communityID}/messages routes
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListMessages)
	if h.postLimiter != nil {
		r.With(h.postLimiter).Post("/", h.HandlePostMessage)
	} else {
		r.Post("/", h.HandlePostMessage)
	}
}

// PostMessageRequest is the body of POST /messages
type PostMessageRequest struct {
	Body string `json:"body"`
}

// Validate validates the message request
func (r *PostMessageRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("body", r.Body).
		MaxLength("body", r.Body, domain.MaxMessageBodyLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// HandlePostMessage handles POST /communities/{communityID}/messages
func (h *ChatHandler) HandlePostMessage(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	communityID, err := communityIDParam(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[PostMessageRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	message, err := h.chatService.PostMessage(r.Context(), ports.CreateMessageParams{
		CommunityID: communityID,
		Actor:       principal,
		Body:        req.Body,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Debug("chat message posted",
		"community_id", communityID,
		"message_id", message.ID,
		"user_id", principal.UserID,
	)

	WriteCreated(w, domain.NewChatMessageSnapshot(message))
}

// HandleListMessages handles GET /communities/{communityID}/messages?after=&limit=
func (h *ChatHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	communityID, err := communityIDParam(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	afterID, limit, err := parseCursorQuery(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	messages, err := h.chatService.ListMessages(r.Context(), ports.ListMessagesParams{
		CommunityID: communityID,
		Viewer:      principal,
		AfterID:     afterID,
		Limit:       limit,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	data := make([]domain.ChatMessageSnapshot, 0, len(messages))
	for _, message := range messages {
		data = append(data, domain.NewChatMessageSnapshot(message))
	}

	var nextCursor *int64
	if len(messages) > 0 {
		cursor := messages[len(messages)-1].ID
		nextCursor = &cursor
	}

	WriteJSON(w, http.StatusOK, CursorResponse[domain.ChatMessageSnapshot]{
		Data:       data,
		NextCursor: nextCursor,
	})
}

// parseCursorQuery reads ?after= and ?limit=. A zero limit lets the service
// apply its default.
func parseCursorQuery(r *http.Request) (int64, int, error) {
	v := validation.NewValidator()

	afterID := int64(0)
	if afterStr := r.URL.Query().Get("after"); afterStr != "" {
		parsed, err := strconv.ParseInt(afterStr, 10, 64)
		if err != nil || parsed < 0 {
			v.Custom("after", false, "after must be a non-negative integer")
		} else {
			afterID = parsed
		}
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			v.Custom("limit", false, "limit must be a positive integer")
		} else if parsed > maxMessagesLimit {
			v.Custom("limit", false, "limit exceeds maximum")
		} else {
			limit = parsed
		}
	}

	if v.HasErrors() {
		return 0, 0, v.Errors()
	}

	return afterID, limit, nil
}
