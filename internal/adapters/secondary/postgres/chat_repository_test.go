package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/community-hub/internal/core/domain"
)

func TestChatMessageRepository_ListAfter(t *testing.T) {
	ctx := context.Background()
	repo := NewChatMessageRepository(requirePool(t))
	community := "community-" + uuid.NewString()
	author := createTestUser(t, domain.RoleResident)

	ids := make([]int64, 0, 5)
	for i := 0; i < 5; i++ {
		m, err := domain.NewChatMessage(domain.ChatMessageParams{
			CommunityID: community,
			AuthorID:    author.ID,
			Body:        fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
		created, err := repo.Create(ctx, m)
		require.NoError(t, err)
		assert.Equal(t, author.ID, created.AuthorID)
		ids = append(ids, created.ID)
	}

	// Another community's traffic must not leak in.
	other, err := domain.NewChatMessage(domain.ChatMessageParams{CommunityID: "other-" + community, AuthorID: author.ID, Body: "elsewhere"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, other)
	require.NoError(t, err)

	page, err := repo.ListAfter(ctx, community, 0, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "message 0", page[0].Body)
	assert.Equal(t, ids[2], page[2].ID)

	rest, err := repo.ListAfter(ctx, community, page[2].ID, 10)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, ids[3], rest[0].ID)
	assert.Equal(t, ids[4], rest[1].ID)
}
