package services

import (
	"context"

	"github.com/lorrc/community-hub/internal/core/domain"
	apperrors "github.com/lorrc/community-hub/internal/core/errors"
	"github.com/lorrc/community-hub/internal/core/ports"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

// ChatService implements community chat. Live delivery goes through the
// broadcaster; ListMessages is the pull fallback for clients that reconnect.
type ChatService struct {
	messageRepo ports.ChatMessageRepository
	members     ports.MembershipService
	broadcaster ports.EventBroadcaster
}

var _ ports.ChatService = (*ChatService)(nil)

// NewChatService creates a new chat service
func NewChatService(
	messageRepo ports.ChatMessageRepository,
	members ports.MembershipService,
	broadcaster ports.EventBroadcaster,
) *ChatService {
	return &ChatService{
		messageRepo: messageRepo,
		members:     members,
		broadcaster: broadcaster,
	}
}

// PostMessage stores a message and pushes it to the community room.
func (s *ChatService) PostMessage(ctx context.Context, params ports.CreateMessageParams) (*domain.ChatMessage, error) {
	message, err := domain.NewChatMessage(domain.ChatMessageParams{
		CommunityID: params.CommunityID,
		AuthorID:    params.Actor.UserID,
		Body:        params.Body,
	})
	if err != nil {
		return nil, err
	}

	if err := s.requireMember(ctx, params.CommunityID, params.Actor); err != nil {
		return nil, err
	}

	created, err := s.messageRepo.Create(ctx, message)
	if err != nil {
		return nil, err
	}

	s.broadcaster.EmitToRoom(created.CommunityID, domain.EventChatMessage, domain.NewChatMessageSnapshot(created))
	s.broadcaster.EmitToRoom(created.CommunityID, domain.EventStatsUpdated, domain.StatsUpdatedPayload{Type: domain.StatsMessages})

	return created, nil
}

// ListMessages returns messages with an id greater than AfterID, oldest first.
func (s *ChatService) ListMessages(ctx context.Context, params ports.ListMessagesParams) ([]*domain.ChatMessage, error) {
	if err := domain.ValidateCommunityID(params.CommunityID); err != nil {
		return nil, err
	}
	if params.AfterID < 0 {
		return nil, apperrors.ErrBadRequest
	}

	if err := s.requireMember(ctx, params.CommunityID, params.Viewer); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	return s.messageRepo.ListAfter(ctx, params.CommunityID, params.AfterID, limit)
}

func (s *ChatService) requireMember(ctx context.Context, communityID string, principal domain.Principal) error {
	ok, err := s.members.IsMember(ctx, communityID, principal)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrNotCommunityMember
	}
	return nil
}
