package services

import (
	"context"
	"fmt"

	"github.com/lorrc/community-hub/internal/core/domain"
	apperrors "github.com/lorrc/community-hub/internal/core/errors"
	"github.com/lorrc/community-hub/internal/core/ports"
)

const (
	defaultMaintenanceLimit = 20
	maxMaintenanceLimit     = 100
)

// MaintenanceService implements business logic for maintenance requests
type MaintenanceService struct {
	requestRepo ports.MaintenanceRepository
	txManager   ports.TransactionManager
	members     ports.MembershipService
	broadcaster ports.EventBroadcaster
	notifier    *notificationDispatcher
}

var _ ports.MaintenanceService = (*MaintenanceService)(nil)

// NewMaintenanceService creates a new maintenance service.
// notifier may be nil when no out-of-band channel is configured.
func NewMaintenanceService(
	requestRepo ports.MaintenanceRepository,
	txManager ports.TransactionManager,
	members ports.MembershipService,
	broadcaster ports.EventBroadcaster,
	notifier ports.Notifier,
) *MaintenanceService {
	return &MaintenanceService{
		requestRepo: requestRepo,
		txManager:   txManager,
		members:     members,
		broadcaster: broadcaster,
		notifier:    newNotificationDispatcher(broadcaster, notifier),
	}
}

// CreateRequest files a new maintenance request on behalf of a community member
func (s *MaintenanceService) CreateRequest(ctx context.Context, params ports.CreateMaintenanceParams) (*domain.MaintenanceRequest, error) {
	// 1. Create domain entity with validation
	request, err := domain.NewMaintenanceRequest(domain.MaintenanceParams{
		CommunityID: params.CommunityID,
		Title:       params.Title,
		Description: params.Description,
		Priority:    params.Priority,
		RequesterID: params.Actor.UserID,
	})
	if err != nil {
		return nil, err
	}

	// 2. Membership check
	ok, err := s.members.IsMember(ctx, params.CommunityID, params.Actor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrNotCommunityMember
	}

	// 3. Persist, then push to the room
	created, err := s.requestRepo.Create(ctx, request)
	if err != nil {
		return nil, err
	}

	s.broadcaster.EmitToRoom(created.CommunityID, domain.EventMaintenanceCreated, domain.NewMaintenanceSnapshot(created))
	s.broadcaster.EmitToRoom(created.CommunityID, domain.EventStatsUpdated, domain.StatsUpdatedPayload{Type: domain.StatsMaintenance})

	return created, nil
}

// UpdateStatus changes a request's status. Only managers and admins may do this.
func (s *MaintenanceService) UpdateStatus(ctx context.Context, params ports.UpdateMaintenanceStatusParams) (*domain.MaintenanceRequest, error) {
	// 1. Authorization Check
	if !params.Actor.Role.CanModerate() {
		return nil, apperrors.ErrForbidden
	}

	// 2. Fetch, apply the transition and persist in one transaction
	var updated *domain.MaintenanceRequest
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		request, err := s.requestRepo.GetByID(ctx, params.CommunityID, params.RequestID)
		if err != nil {
			return err
		}
		if err := request.UpdateStatus(params.Status); err != nil {
			return err
		}
		updated, err = s.requestRepo.Update(ctx, request)
		return err
	})
	if err != nil {
		return nil, err
	}

	// 3. Push to the room and tell the requester
	s.broadcaster.EmitToRoom(updated.CommunityID, domain.EventMaintenanceUpdated, domain.NewMaintenanceSnapshot(updated))
	if updated.RequesterID != params.Actor.UserID {
		s.notifier.notify(updated.RequesterID, domain.NotificationPayload{
			Title: fmt.Sprintf("Maintenance request #%d updated", updated.ID),
			Body:  fmt.Sprintf("The status of '%s' was changed to %s.", updated.Title, updated.Status),
			Link:  fmt.Sprintf("/communities/%s/maintenance/%d", updated.CommunityID, updated.ID),
		})
	}

	return updated, nil
}

// ListRequests lists a community's requests. Residents only see their own.
func (s *MaintenanceService) ListRequests(ctx context.Context, params ports.ListMaintenanceParams) ([]*domain.MaintenanceRequest, error) {
	if err := domain.ValidateCommunityID(params.CommunityID); err != nil {
		return nil, err
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, apperrors.ErrInvalidStatus
	}

	ok, err := s.members.IsMember(ctx, params.CommunityID, params.Viewer)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrNotCommunityMember
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultMaintenanceLimit
	}
	if limit > maxMaintenanceLimit {
		limit = maxMaintenanceLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	repoParams := ports.ListMaintenanceRepoParams{
		CommunityID: params.CommunityID,
		Status:      params.Status,
		Limit:       limit,
		Offset:      offset,
	}

	// Default: scope query to the requesting user's requests
	if !params.Viewer.Role.CanModerate() {
		viewerID := params.Viewer.UserID
		repoParams.RequesterID = &viewerID
	}

	return s.requestRepo.List(ctx, repoParams)
}

// Shutdown waits for in-flight out-of-band notifications.
func (s *MaintenanceService) Shutdown() {
	s.notifier.wait()
}
