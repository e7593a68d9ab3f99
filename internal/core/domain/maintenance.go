package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/community-hub/internal/core/errors"
)

const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 10000
)

// MaintenanceStatus represents the possible states of a maintenance request.
type MaintenanceStatus string

const (
	StatusOpen       MaintenanceStatus = "open"
	StatusInProgress MaintenanceStatus = "in_progress"
	StatusClosed     MaintenanceStatus = "closed"
)

// IsValid reports whether the status is known.
func (s MaintenanceStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// MaintenancePriority represents the urgency of a maintenance request.
type MaintenancePriority string

const (
	PriorityLow    MaintenancePriority = "low"
	PriorityMedium MaintenancePriority = "medium"
	PriorityHigh   MaintenancePriority = "high"
)

// IsValid reports whether the priority is known.
func (p MaintenancePriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

var validTransitions = map[MaintenanceStatus][]MaintenanceStatus{
	StatusOpen:       {StatusInProgress, StatusClosed},
	StatusInProgress: {StatusOpen, StatusClosed},
	StatusClosed:     {},
}

// MaintenanceRequest is a repair ticket filed by a resident.
type MaintenanceRequest struct {
	ID          int64
	CommunityID string
	Title       string
	Description string
	Status      MaintenanceStatus
	Priority    MaintenancePriority
	RequesterID uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	ClosedAt    *time.Time
}

// MaintenanceParams holds the input for filing a maintenance request.
type MaintenanceParams struct {
	CommunityID string
	Title       string
	Description string
	Priority    MaintenancePriority
	RequesterID uuid.UUID
}

// NewMaintenanceRequest validates the params and builds an open request.
// An empty priority defaults to medium.
func NewMaintenanceRequest(params MaintenanceParams) (*MaintenanceRequest, error) {
	if err := ValidateCommunityID(params.CommunityID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, apperrors.ErrTitleRequired
	}
	if len(title) > MaxTitleLength {
		return nil, apperrors.ErrTitleTooLong
	}
	if len(params.Description) > MaxDescriptionLength {
		return nil, apperrors.ErrDescriptionTooLong
	}

	priority := params.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.IsValid() {
		return nil, apperrors.ErrInvalidPriority
	}

	return &MaintenanceRequest{
		CommunityID: params.CommunityID,
		Title:       title,
		Description: params.Description,
		Status:      StatusOpen,
		Priority:    priority,
		RequesterID: params.RequesterID,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// UpdateStatus changes the request's status, enforcing the transition table.
func (m *MaintenanceRequest) UpdateStatus(newStatus MaintenanceStatus) error {
	if !newStatus.IsValid() {
		return apperrors.ErrInvalidStatus
	}

	for _, s := range validTransitions[m.Status] {
		if s == newStatus {
			now := time.Now().UTC()
			m.Status = newStatus
			m.UpdatedAt = &now
			if newStatus == StatusClosed {
				m.ClosedAt = &now
			}
			return nil
		}
	}

	return apperrors.ErrInvalidStatusTransition
}

// IsOwnedBy checks if the given user filed this request.
func (m *MaintenanceRequest) IsOwnedBy(userID uuid.UUID) bool {
	return m.RequesterID == userID
}
