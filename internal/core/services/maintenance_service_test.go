package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/community-hub/internal/core/domain"
	apperrors "github.com/lorrc/community-hub/internal/core/errors"
	"github.com/lorrc/community-hub/internal/core/mocks"
	"github.com/lorrc/community-hub/internal/core/ports"
	"github.com/lorrc/community-hub/internal/core/services"
)

func openRequest(requesterID uuid.UUID) *domain.MaintenanceRequest {
	return &domain.MaintenanceRequest{
		ID:          9,
		CommunityID: testCommunity,
		Title:       "Leaking tap",
		Status:      domain.StatusOpen,
		Priority:    domain.PriorityMedium,
		RequesterID: requesterID,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestMaintenanceService_CreateRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("success emits created and stats", func(t *testing.T) {
		repo := mocks.NewMockMaintenanceRepository()
		members := mocks.NewMockMembershipService()
		broadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewMaintenanceService(repo, mocks.NewMockTransactionManager(), members, broadcaster, nil)
		actor := principal(domain.RoleResident)

		members.On("IsMember", ctx, testCommunity, actor).Return(true, nil)
		repo.On("Create", ctx, mock.MatchedBy(func(r *domain.MaintenanceRequest) bool {
			return r.Priority == domain.PriorityMedium && r.Status == domain.StatusOpen
		})).Return(openRequest(actor.UserID), nil)
		broadcaster.On("EmitToRoom", testCommunity, domain.EventMaintenanceCreated, mock.AnythingOfType("domain.MaintenanceSnapshot")).Return()
		broadcaster.On("EmitToRoom", testCommunity, domain.EventStatsUpdated, domain.StatsUpdatedPayload{Type: domain.StatsMaintenance}).Return()

		request, err := svc.CreateRequest(ctx, ports.CreateMaintenanceParams{
			CommunityID: testCommunity,
			Actor:       actor,
			Title:       "Leaking tap",
		})

		require.NoError(t, err)
		assert.Equal(t, int64(9), request.ID)
		broadcaster.AssertExpectations(t)
	})

	t.Run("invalid priority", func(t *testing.T) {
		members := mocks.NewMockMembershipService()
		svc := services.NewMaintenanceService(mocks.NewMockMaintenanceRepository(), mocks.NewMockTransactionManager(), members, mocks.NewMockEventBroadcaster(), nil)

		_, err := svc.CreateRequest(ctx, ports.CreateMaintenanceParams{
			CommunityID: testCommunity,
			Actor:       principal(domain.RoleResident),
			Title:       "Broken lift",
			Priority:    "urgent",
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidPriority)
		members.AssertNotCalled(t, "IsMember")
	})

	t.Run("non-member", func(t *testing.T) {
		repo := mocks.NewMockMaintenanceRepository()
		members := mocks.NewMockMembershipService()
		broadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewMaintenanceService(repo, mocks.NewMockTransactionManager(), members, broadcaster, nil)
		actor := principal(domain.RoleResident)

		members.On("IsMember", ctx, testCommunity, actor).Return(false, nil)

		_, err := svc.CreateRequest(ctx, ports.CreateMaintenanceParams{CommunityID: testCommunity, Actor: actor, Title: "Noise"})

		assert.ErrorIs(t, err, apperrors.ErrNotCommunityMember)
		repo.AssertNotCalled(t, "Create")
		broadcaster.AssertNotCalled(t, "EmitToRoom")
	})
}

func TestMaintenanceService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("success notifies requester", func(t *testing.T) {
		repo := mocks.NewMockMaintenanceRepository()
		broadcaster := mocks.NewMockEventBroadcaster()
		notifier := mocks.NewMockNotifier()
		svc := services.NewMaintenanceService(repo, mocks.NewMockTransactionManager(), mocks.NewMockMembershipService(), broadcaster, notifier)
		manager := principal(domain.RoleManager)
		requester := uuid.New()

		repo.On("GetByID", ctx, testCommunity, int64(9)).Return(openRequest(requester), nil)
		repo.On("Update", ctx, mock.MatchedBy(func(r *domain.MaintenanceRequest) bool {
			return r.Status == domain.StatusInProgress
		})).Return(func() *domain.MaintenanceRequest {
			r := openRequest(requester)
			_ = r.UpdateStatus(domain.StatusInProgress)
			return r
		}(), nil)
		broadcaster.On("EmitToRoom", testCommunity, domain.EventMaintenanceUpdated, mock.AnythingOfType("domain.MaintenanceSnapshot")).Return()
		broadcaster.On("EmitToPrincipal", requester, domain.EventNotification, mock.MatchedBy(func(p domain.NotificationPayload) bool {
			return p.Title == "Maintenance request #9 updated" && p.Link == "/communities/maple-court/maintenance/9"
		})).Return()
		notifier.On("Notify", mock.Anything, mock.MatchedBy(func(p ports.NotificationParams) bool {
			return p.RecipientUserID == requester
		})).Return()

		request, err := svc.UpdateStatus(ctx, ports.UpdateMaintenanceStatusParams{
			CommunityID: testCommunity,
			RequestID:   9,
			Actor:       manager,
			Status:      domain.StatusInProgress,
		})
		svc.Shutdown()

		require.NoError(t, err)
		assert.Equal(t, domain.StatusInProgress, request.Status)
		broadcaster.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("self update does not notify", func(t *testing.T) {
		repo := mocks.NewMockMaintenanceRepository()
		broadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewMaintenanceService(repo, mocks.NewMockTransactionManager(), mocks.NewMockMembershipService(), broadcaster, nil)
		admin := principal(domain.RoleAdmin)

		repo.On("GetByID", ctx, testCommunity, int64(9)).Return(openRequest(admin.UserID), nil)
		repo.On("Update", ctx, mock.Anything).Return(openRequest(admin.UserID), nil)
		broadcaster.On("EmitToRoom", testCommunity, domain.EventMaintenanceUpdated, mock.Anything).Return()

		_, err := svc.UpdateStatus(ctx, ports.UpdateMaintenanceStatusParams{
			CommunityID: testCommunity, RequestID: 9, Actor: admin, Status: domain.StatusClosed,
		})

		require.NoError(t, err)
		broadcaster.AssertNotCalled(t, "EmitToPrincipal")
	})

	t.Run("residents are forbidden", func(t *testing.T) {
		repo := mocks.NewMockMaintenanceRepository()
		svc := services.NewMaintenanceService(repo, mocks.NewMockTransactionManager(), mocks.NewMockMembershipService(), mocks.NewMockEventBroadcaster(), nil)

		_, err := svc.UpdateStatus(ctx, ports.UpdateMaintenanceStatusParams{
			CommunityID: testCommunity, RequestID: 9, Actor: principal(domain.RoleResident), Status: domain.StatusClosed,
		})

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		repo.AssertNotCalled(t, "GetByID")
	})

	t.Run("invalid transition", func(t *testing.T) {
		repo := mocks.NewMockMaintenanceRepository()
		broadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewMaintenanceService(repo, mocks.NewMockTransactionManager(), mocks.NewMockMembershipService(), broadcaster, nil)
		closed := openRequest(uuid.New())
		closed.Status = domain.StatusClosed

		repo.On("GetByID", ctx, testCommunity, int64(9)).Return(closed, nil)

		_, err := svc.UpdateStatus(ctx, ports.UpdateMaintenanceStatusParams{
			CommunityID: testCommunity, RequestID: 9, Actor: principal(domain.RoleManager), Status: domain.StatusOpen,
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)
		repo.AssertNotCalled(t, "Update")
		broadcaster.AssertNotCalled(t, "EmitToRoom")
	})
}

func TestMaintenanceService_ListRequests(t *testing.T) {
	ctx := context.Background()

	t.Run("residents see their own", func(t *testing.T) {
		repo := mocks.NewMockMaintenanceRepository()
		members := mocks.NewMockMembershipService()
		svc := services.NewMaintenanceService(repo, mocks.NewMockTransactionManager(), members, mocks.NewMockEventBroadcaster(), nil)
		viewer := principal(domain.RoleResident)

		members.On("IsMember", ctx, testCommunity, viewer).Return(true, nil)
		repo.On("List", ctx, ports.ListMaintenanceRepoParams{
			CommunityID: testCommunity,
			RequesterID: &viewer.UserID,
			Limit:       20,
		}).Return([]*domain.MaintenanceRequest{}, nil)

		_, err := svc.ListRequests(ctx, ports.ListMaintenanceParams{CommunityID: testCommunity, Viewer: viewer})

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("managers see all", func(t *testing.T) {
		repo := mocks.NewMockMaintenanceRepository()
		members := mocks.NewMockMembershipService()
		svc := services.NewMaintenanceService(repo, mocks.NewMockTransactionManager(), members, mocks.NewMockEventBroadcaster(), nil)
		viewer := principal(domain.RoleManager)
		status := domain.StatusOpen

		members.On("IsMember", ctx, testCommunity, viewer).Return(true, nil)
		repo.On("List", ctx, ports.ListMaintenanceRepoParams{
			CommunityID: testCommunity,
			Status:      &status,
			Limit:       100,
			Offset:      5,
		}).Return([]*domain.MaintenanceRequest{}, nil)

		_, err := svc.ListRequests(ctx, ports.ListMaintenanceParams{
			CommunityID: testCommunity, Viewer: viewer, Status: &status, Limit: 500, Offset: 5,
		})

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("unknown status", func(t *testing.T) {
		svc := services.NewMaintenanceService(mocks.NewMockMaintenanceRepository(), mocks.NewMockTransactionManager(), mocks.NewMockMembershipService(), mocks.NewMockEventBroadcaster(), nil)
		status := domain.MaintenanceStatus("done")

		_, err := svc.ListRequests(ctx, ports.ListMaintenanceParams{CommunityID: testCommunity, Viewer: principal(domain.RoleAdmin), Status: &status})

		assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
	})
}
