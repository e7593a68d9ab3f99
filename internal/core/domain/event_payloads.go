package domain

import (
	"strconv"
	"time"
)

// ChatMessageSnapshot matches the API response shape for chat messages.
type ChatMessageSnapshot struct {
	ID          string `json:"id"`
	CommunityID string `json:"communityId"`
	AuthorID    string `json:"authorId"`
	Body        string `json:"body"`
	CreatedAt   string `json:"createdAt"`
}

// MaintenanceSnapshot matches the API response shape for maintenance requests.
type MaintenanceSnapshot struct {
	ID          int64   `json:"id"`
	CommunityID string  `json:"communityId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	RequesterID string  `json:"requesterId"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   *string `json:"updatedAt"`
	ClosedAt    *string `json:"closedAt"`
}

// MembershipSnapshot matches the API response shape for memberships.
type MembershipSnapshot struct {
	CommunityID string  `json:"communityId"`
	UserID      string  `json:"userId"`
	Status      string  `json:"status"`
	RequestedAt string  `json:"requestedAt"`
	ApprovedAt  *string `json:"approvedAt"`
}

// NewChatMessageSnapshot builds a snapshot from a domain chat message.
func NewChatMessageSnapshot(message *ChatMessage) ChatMessageSnapshot {
	return ChatMessageSnapshot{
		ID:          strconv.FormatInt(message.ID, 10),
		CommunityID: message.CommunityID,
		AuthorID:    message.AuthorID.String(),
		Body:        message.Body,
		CreatedAt:   message.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewMaintenanceSnapshot builds a snapshot from a domain maintenance request.
func NewMaintenanceSnapshot(request *MaintenanceRequest) MaintenanceSnapshot {
	return MaintenanceSnapshot{
		ID:          request.ID,
		CommunityID: request.CommunityID,
		Title:       request.Title,
		Description: request.Description,
		Status:      string(request.Status),
		Priority:    string(request.Priority),
		RequesterID: request.RequesterID.String(),
		CreatedAt:   request.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   formatOptionalTime(request.UpdatedAt),
		ClosedAt:    formatOptionalTime(request.ClosedAt),
	}
}

// NewMembershipSnapshot builds a snapshot from a domain membership.
func NewMembershipSnapshot(membership *Membership) MembershipSnapshot {
	return MembershipSnapshot{
		CommunityID: membership.CommunityID,
		UserID:      membership.UserID.String(),
		Status:      string(membership.Status),
		RequestedAt: membership.RequestedAt.UTC().Format(time.RFC3339),
		ApprovedAt:  formatOptionalTime(membership.ApprovedAt),
	}
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	value := t.UTC().Format(time.RFC3339)
	return &value
}
