package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/community-hub/internal/core/errors"
)

// MaxCommunityIDLength bounds the identifiers accepted for rooms and REST paths.
const MaxCommunityIDLength = 128

// ValidateCommunityID checks a community identifier supplied by a client.
func ValidateCommunityID(communityID string) error {
	if strings.TrimSpace(communityID) == "" {
		return apperrors.ErrCommunityIDRequired
	}
	if len(communityID) > MaxCommunityIDLength {
		return apperrors.ErrCommunityIDTooLong
	}
	return nil
}

// MembershipStatus is the approval state of a user's membership in a community.
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipApproved MembershipStatus = "approved"
)

// IsValid reports whether the status is known.
func (s MembershipStatus) IsValid() bool {
	return s == MembershipPending || s == MembershipApproved
}

// Membership links a user to a community.
type Membership struct {
	CommunityID string
	UserID      uuid.UUID
	Status      MembershipStatus
	RequestedAt time.Time
	ApprovedAt  *time.Time
	ApprovedBy  *uuid.UUID
}

// NewMembership creates a pending membership request.
func NewMembership(communityID string, userID uuid.UUID) (*Membership, error) {
	if err := ValidateCommunityID(communityID); err != nil {
		return nil, err
	}
	return &Membership{
		CommunityID: communityID,
		UserID:      userID,
		Status:      MembershipPending,
		RequestedAt: time.Now().UTC(),
	}, nil
}

// Approve marks the membership approved by the given moderator.
// Approving an already approved membership is a conflict.
func (m *Membership) Approve(approverID uuid.UUID) error {
	if m.Status == MembershipApproved {
		return apperrors.ErrConflict
	}
	now := time.Now().UTC()
	m.Status = MembershipApproved
	m.ApprovedAt = &now
	m.ApprovedBy = &approverID
	return nil
}

// IsApproved reports whether the member may see community traffic.
func (m *Membership) IsApproved() bool {
	return m.Status == MembershipApproved
}
