package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lorrc/community-hub/internal/core/domain"
	apperrors "github.com/lorrc/community-hub/internal/core/errors"
	"github.com/lorrc/community-hub/internal/core/ports"
)

// MembershipService implements community membership requests and approvals.
// It also answers room subscription checks for the realtime core.
type MembershipService struct {
	membershipRepo ports.MembershipRepository
	txManager      ports.TransactionManager
	broadcaster    ports.EventBroadcaster
	notifier       *notificationDispatcher
}

var (
	_ ports.MembershipService = (*MembershipService)(nil)
	_ ports.RoomAuthorizer    = (*MembershipService)(nil)
)

// NewMembershipService creates a new membership service.
// notifier may be nil when no out-of-band channel is configured.
func NewMembershipService(
	membershipRepo ports.MembershipRepository,
	txManager ports.TransactionManager,
	broadcaster ports.EventBroadcaster,
	notifier ports.Notifier,
) *MembershipService {
	return &MembershipService{
		membershipRepo: membershipRepo,
		txManager:      txManager,
		broadcaster:    broadcaster,
		notifier:       newNotificationDispatcher(broadcaster, notifier),
	}
}

// RequestMembership files a pending membership for the actor.
func (s *MembershipService) RequestMembership(ctx context.Context, communityID string, actor domain.Principal) (*domain.Membership, error) {
	membership, err := domain.NewMembership(communityID, actor.UserID)
	if err != nil {
		return nil, err
	}

	existing, err := s.membershipRepo.Get(ctx, communityID, actor.UserID)
	if err == nil && existing != nil {
		return nil, apperrors.ErrMembershipExists
	}
	if err != nil && !errors.Is(err, apperrors.ErrMembershipNotFound) {
		return nil, err
	}

	created, err := s.membershipRepo.Create(ctx, membership)
	if err != nil {
		return nil, err
	}

	s.broadcaster.EmitToRoom(communityID, domain.EventMemberPending, domain.NewMembershipSnapshot(created))
	return created, nil
}

// ApproveMembership approves a pending membership. Only managers and admins may approve.
func (s *MembershipService) ApproveMembership(ctx context.Context, communityID string, userID uuid.UUID, actor domain.Principal) (*domain.Membership, error) {
	if !actor.Role.CanModerate() {
		return nil, apperrors.ErrForbidden
	}
	if err := domain.ValidateCommunityID(communityID); err != nil {
		return nil, err
	}

	var updated *domain.Membership
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		membership, err := s.membershipRepo.Get(ctx, communityID, userID)
		if err != nil {
			return err
		}
		if err := membership.Approve(actor.UserID); err != nil {
			return err
		}
		updated, err = s.membershipRepo.Update(ctx, membership)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.broadcaster.EmitToRoom(communityID, domain.EventMemberApproved, domain.NewMembershipSnapshot(updated))
	s.broadcaster.EmitToRoom(communityID, domain.EventStatsUpdated, domain.StatsUpdatedPayload{Type: domain.StatsMembers})
	s.notifier.notify(updated.UserID, domain.NotificationPayload{
		Title: "Membership approved",
		Body:  fmt.Sprintf("You are now a member of %s.", communityID),
		Link:  "/communities/" + communityID,
	})

	return updated, nil
}

// ListMembers lists memberships of a community. Members see approved members only;
// moderators may filter by any status.
func (s *MembershipService) ListMembers(ctx context.Context, communityID string, status *domain.MembershipStatus, viewer domain.Principal) ([]*domain.Membership, error) {
	if err := domain.ValidateCommunityID(communityID); err != nil {
		return nil, err
	}
	if status != nil && !status.IsValid() {
		return nil, apperrors.ErrBadRequest
	}

	if !viewer.Role.CanModerate() {
		ok, err := s.IsMember(ctx, communityID, viewer)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.ErrNotCommunityMember
		}
		approved := domain.MembershipApproved
		status = &approved
	}

	return s.membershipRepo.List(ctx, communityID, status)
}

// IsMember reports whether the principal holds an approved membership.
// Admins are members of every community.
func (s *MembershipService) IsMember(ctx context.Context, communityID string, principal domain.Principal) (bool, error) {
	if principal.Role == domain.RoleAdmin {
		return true, nil
	}

	membership, err := s.membershipRepo.Get(ctx, communityID, principal.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrMembershipNotFound) {
			return false, nil
		}
		return false, err
	}
	return membership.IsApproved(), nil
}

// CanJoin allows a realtime subscription to a community room for approved members.
func (s *MembershipService) CanJoin(ctx context.Context, principal domain.Principal, communityID string) (bool, error) {
	return s.IsMember(ctx, communityID, principal)
}

// Shutdown waits for in-flight out-of-band notifications.
func (s *MembershipService) Shutdown() {
	s.notifier.wait()
}
