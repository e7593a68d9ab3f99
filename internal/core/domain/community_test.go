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

func TestValidateCommunityID(t *testing.T) {
	assert.NoError(t, domain.ValidateCommunityID("room-1"))
	assert.ErrorIs(t, domain.ValidateCommunityID(""), apperrors.ErrCommunityIDRequired)
	assert.ErrorIs(t, domain.ValidateCommunityID("  "), apperrors.ErrCommunityIDRequired)
	assert.ErrorIs(t,
		domain.ValidateCommunityID(strings.Repeat("x", domain.MaxCommunityIDLength+1)),
		apperrors.ErrCommunityIDTooLong,
	)
}

func TestMembership_Approve(t *testing.T) {
	membership, err := domain.NewMembership("community-1", uuid.New())
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipPending, membership.Status)
	assert.False(t, membership.IsApproved())

	approver := uuid.New()
	require.NoError(t, membership.Approve(approver))
	assert.True(t, membership.IsApproved())
	require.NotNil(t, membership.ApprovedBy)
	assert.Equal(t, approver, *membership.ApprovedBy)
	assert.NotNil(t, membership.ApprovedAt)

	assert.ErrorIs(t, membership.Approve(approver), apperrors.ErrConflict)
}

func TestNewChatMessage(t *testing.T) {
	author := uuid.New()

	t.Run("trims body", func(t *testing.T) {
		message, err := domain.NewChatMessage(domain.ChatMessageParams{
			CommunityID: "community-1",
			AuthorID:    author,
			Body:        "  hello neighbours  ",
		})
		require.NoError(t, err)
		assert.Equal(t, "hello neighbours", message.Body)
		assert.Equal(t, author, message.AuthorID)
	})

	t.Run("empty body", func(t *testing.T) {
		_, err := domain.NewChatMessage(domain.ChatMessageParams{CommunityID: "community-1", AuthorID: author})
		assert.ErrorIs(t, err, apperrors.ErrMessageBodyRequired)
	})

	t.Run("body too long", func(t *testing.T) {
		_, err := domain.NewChatMessage(domain.ChatMessageParams{
			CommunityID: "community-1",
			AuthorID:    author,
			Body:        strings.Repeat("a", domain.MaxMessageBodyLength+1),
		})
		assert.ErrorIs(t, err, apperrors.ErrMessageBodyTooLong)
	})
}
