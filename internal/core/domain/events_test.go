package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/community-hub/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventCatalogue(t *testing.T) {
	roomScoped := []domain.EventName{
		domain.EventStatsUpdated,
		domain.EventChatMessage,
		domain.EventMaintenanceCreated,
		domain.EventMaintenanceUpdated,
		domain.EventMemberPending,
		domain.EventMemberApproved,
	}
	for _, name := range roomScoped {
		spec, ok := domain.LookupEvent(name)
		require.True(t, ok, name)
		assert.Equal(t, domain.ScopeRoom, spec.Scope, name)
		assert.LessOrEqual(t, spec.Since, domain.TaxonomyVersion)
	}

	spec, ok := domain.LookupEvent(domain.EventNotification)
	require.True(t, ok)
	assert.Equal(t, domain.ScopePrincipal, spec.Scope)

	_, ok = domain.LookupEvent("connected")
	assert.False(t, ok, "system frames are not part of the producer catalogue")

	assert.Len(t, domain.Events(), len(roomScoped)+1)
}

func TestEvents_SortedByName(t *testing.T) {
	specs := domain.Events()
	for i := 1; i < len(specs); i++ {
		assert.Less(t, specs[i-1].Name, specs[i].Name)
	}
}

func TestNewMaintenanceSnapshot(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	closed := created.Add(time.Hour)
	requester := uuid.New()

	snapshot := domain.NewMaintenanceSnapshot(&domain.MaintenanceRequest{
		ID:          7,
		CommunityID: "community-1",
		Title:       "Broken gate",
		Status:      domain.StatusClosed,
		Priority:    domain.PriorityLow,
		RequesterID: requester,
		CreatedAt:   created,
		ClosedAt:    &closed,
	})

	assert.Equal(t, int64(7), snapshot.ID)
	assert.Equal(t, "closed", snapshot.Status)
	assert.Equal(t, requester.String(), snapshot.RequesterID)
	assert.Equal(t, "2024-03-01T10:00:00Z", snapshot.CreatedAt)
	assert.Nil(t, snapshot.UpdatedAt)
	require.NotNil(t, snapshot.ClosedAt)
	assert.Equal(t, "2024-03-01T11:00:00Z", *snapshot.ClosedAt)
}
