package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/community-hub/internal/core/domain"
)

// EventBroadcaster is the producer-facing side of the realtime core.
// Both calls are fire-and-forget: they never block on network I/O and
// a target with no live connection is a silent no-op.
type EventBroadcaster interface {
	EmitToRoom(communityID string, name domain.EventName, payload any)
	EmitToPrincipal(userID uuid.UUID, name domain.EventName, payload any)
}

// RoomAuthorizer decides whether a principal may subscribe to a community room.
type RoomAuthorizer interface {
	CanJoin(ctx context.Context, principal domain.Principal, communityID string) (bool, error)
}

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, fullName, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// CreateMessageParams defines the input for posting a chat message.
type CreateMessageParams struct {
	CommunityID string
	Actor       domain.Principal
	Body        string
}

// ListMessagesParams defines the input for the chat pull fallback.
type ListMessagesParams struct {
	CommunityID string
	Viewer      domain.Principal
	AfterID     int64
	Limit       int
}

// ChatService defines the port for community chat.
type ChatService interface {
	PostMessage(ctx context.Context, params CreateMessageParams) (*domain.ChatMessage, error)
	ListMessages(ctx context.Context, params ListMessagesParams) ([]*domain.ChatMessage, error)
}

// CreateMaintenanceParams defines the input for filing a maintenance request.
type CreateMaintenanceParams struct {
	CommunityID string
	Actor       domain.Principal
	Title       string
	Description string
	Priority    domain.MaintenancePriority
}

// UpdateMaintenanceStatusParams defines the input for changing a request's status.
type UpdateMaintenanceStatusParams struct {
	CommunityID string
	RequestID   int64
	Actor       domain.Principal
	Status      domain.MaintenanceStatus
}

// ListMaintenanceParams defines the input for listing maintenance requests.
type ListMaintenanceParams struct {
	CommunityID string
	Viewer      domain.Principal
	Status      *domain.MaintenanceStatus
	Limit       int
	Offset      int
}

// MaintenanceService defines the port for maintenance requests.
type MaintenanceService interface {
	CreateRequest(ctx context.Context, params CreateMaintenanceParams) (*domain.MaintenanceRequest, error)
	UpdateStatus(ctx context.Context, params UpdateMaintenanceStatusParams) (*domain.MaintenanceRequest, error)
	ListRequests(ctx context.Context, params ListMaintenanceParams) ([]*domain.MaintenanceRequest, error)
}

// MembershipService defines the port for joining communities.
type MembershipService interface {
	RequestMembership(ctx context.Context, communityID string, actor domain.Principal) (*domain.Membership, error)
	ApproveMembership(ctx context.Context, communityID string, userID uuid.UUID, actor domain.Principal) (*domain.Membership, error)
	ListMembers(ctx context.Context, communityID string, status *domain.MembershipStatus, viewer domain.Principal) ([]*domain.Membership, error)
	IsMember(ctx context.Context, communityID string, principal domain.Principal) (bool, error)
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NotificationParams describes an out-of-band notification to one user.
type NotificationParams struct {
	RecipientUserID uuid.UUID
	Subject         string
	Body            string
	Link            string
}

// Notifier delivers notifications outside the realtime channel, such as email.
// Implementations run asynchronously and handle their own errors.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}
