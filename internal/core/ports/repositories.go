package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/community-hub/internal/core/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type MembershipRepository interface {
	Create(ctx context.Context, membership *domain.Membership) (*domain.Membership, error)
	Get(ctx context.Context, communityID string, userID uuid.UUID) (*domain.Membership, error)
	Update(ctx context.Context, membership *domain.Membership) (*domain.Membership, error)
	List(ctx context.Context, communityID string, status *domain.MembershipStatus) ([]*domain.Membership, error)
}

type ChatMessageRepository interface {
	Create(ctx context.Context, message *domain.ChatMessage) (*domain.ChatMessage, error)
	ListAfter(ctx context.Context, communityID string, afterID int64, limit int) ([]*domain.ChatMessage, error)
}

// ListMaintenanceRepoParams defines filters for listing maintenance requests.
type ListMaintenanceRepoParams struct {
	CommunityID string
	RequesterID *uuid.UUID
	Status      *domain.MaintenanceStatus
	Limit       int
	Offset      int
}

type MaintenanceRepository interface {
	Create(ctx context.Context, request *domain.MaintenanceRequest) (*domain.MaintenanceRequest, error)
	GetByID(ctx context.Context, communityID string, id int64) (*domain.MaintenanceRequest, error)
	Update(ctx context.Context, request *domain.MaintenanceRequest) (*domain.MaintenanceRequest, error)
	List(ctx context.Context, params ListMaintenanceRepoParams) ([]*domain.MaintenanceRequest, error)
}
