package domain_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lorrc/community-hub/internal/core/domain"
	apperrors "github.com/lorrc/community-hub/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaintenancePriority_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		priority domain.MaintenancePriority
		want     bool
	}{
		{"low is valid", domain.PriorityLow, true},
		{"medium is valid", domain.PriorityMedium, true},
		{"high is valid", domain.PriorityHigh, true},
		{"empty is invalid", domain.MaintenancePriority(""), false},
		{"urgent is invalid", domain.MaintenancePriority("urgent"), false},
		{"uppercase is invalid", domain.MaintenancePriority("LOW"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.priority.IsValid())
		})
	}
}

func TestNewMaintenanceRequest(t *testing.T) {
	requesterID := uuid.New()

	tests := []struct {
		name    string
		params  domain.MaintenanceParams
		wantErr error
	}{
		{
			name: "valid request",
			params: domain.MaintenanceParams{
				CommunityID: "community-1",
				Title:       "Leaking tap",
				Description: "Kitchen tap drips all night",
				Priority:    domain.PriorityHigh,
				RequesterID: requesterID,
			},
		},
		{
			name: "missing community",
			params: domain.MaintenanceParams{
				Title:       "Leaking tap",
				RequesterID: requesterID,
			},
			wantErr: apperrors.ErrCommunityIDRequired,
		},
		{
			name: "blank title",
			params: domain.MaintenanceParams{
				CommunityID: "community-1",
				Title:       "   ",
				RequesterID: requesterID,
			},
			wantErr: apperrors.ErrTitleRequired,
		},
		{
			name: "title too long",
			params: domain.MaintenanceParams{
				CommunityID: "community-1",
				Title:       strings.Repeat("a", domain.MaxTitleLength+1),
				RequesterID: requesterID,
			},
			wantErr: apperrors.ErrTitleTooLong,
		},
		{
			name: "description too long",
			params: domain.MaintenanceParams{
				CommunityID: "community-1",
				Title:       "Leaking tap",
				Description: strings.Repeat("a", domain.MaxDescriptionLength+1),
				RequesterID: requesterID,
			},
			wantErr: apperrors.ErrDescriptionTooLong,
		},
		{
			name: "invalid priority",
			params: domain.MaintenanceParams{
				CommunityID: "community-1",
				Title:       "Leaking tap",
				Priority:    "urgent",
				RequesterID: requesterID,
			},
			wantErr: apperrors.ErrInvalidPriority,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request, err := domain.NewMaintenanceRequest(tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, request)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, domain.StatusOpen, request.Status)
			assert.Equal(t, tt.params.Priority, request.Priority)
			assert.True(t, request.IsOwnedBy(requesterID))
			assert.False(t, request.CreatedAt.IsZero())
		})
	}
}

func TestNewMaintenanceRequest_DefaultsPriority(t *testing.T) {
	request, err := domain.NewMaintenanceRequest(domain.MaintenanceParams{
		CommunityID: "community-1",
		Title:       "Broken light",
		RequesterID: uuid.New(),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.PriorityMedium, request.Priority)
}

func TestMaintenanceRequest_UpdateStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.MaintenanceStatus
		to      domain.MaintenanceStatus
		wantErr error
	}{
		{"open to in progress", domain.StatusOpen, domain.StatusInProgress, nil},
		{"open to closed", domain.StatusOpen, domain.StatusClosed, nil},
		{"in progress to open", domain.StatusInProgress, domain.StatusOpen, nil},
		{"in progress to closed", domain.StatusInProgress, domain.StatusClosed, nil},
		{"closed is terminal", domain.StatusClosed, domain.StatusOpen, apperrors.ErrInvalidStatusTransition},
		{"open to open", domain.StatusOpen, domain.StatusOpen, apperrors.ErrInvalidStatusTransition},
		{"unknown status", domain.StatusOpen, "done", apperrors.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := &domain.MaintenanceRequest{Status: tt.from}

			err := request.UpdateStatus(tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, request.Status)
				assert.Nil(t, request.UpdatedAt)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.to, request.Status)
			assert.NotNil(t, request.UpdatedAt)
			if tt.to == domain.StatusClosed {
				assert.NotNil(t, request.ClosedAt)
			}
		})
	}
}
