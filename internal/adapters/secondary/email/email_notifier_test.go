package email_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/lorrc/community-hub/internal/adapters/secondary/email"
	"github.com/lorrc/community-hub/internal/core/domain"
	"github.com/lorrc/community-hub/internal/core/mocks"
	"github.com/lorrc/community-hub/internal/core/ports"
)

func TestLogNotifier_Notify(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		user    *domain.User
		repoErr error
		want    string
		notWant string
	}{
		{
			name: "logs email for active user",
			user: &domain.User{FullName: "Ada", Email: "ada@example.com", IsActive: true},
			want: "mock email sent",
		},
		{
			name:    "skips inactive user",
			user:    &domain.User{FullName: "Bo", Email: "bo@example.com", IsActive: false},
			notWant: "mock email sent",
		},
		{
			name:    "lookup failure",
			repoErr: errors.New("db down"),
			want:    "failed to get user for notification",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			repo := mocks.NewMockUserRepository()
			recipient := uuid.New()

			if tt.user != nil {
				tt.user.ID = recipient
				repo.On("GetByID", ctx, recipient).Return(tt.user, nil)
			} else {
				repo.On("GetByID", ctx, recipient).Return(nil, tt.repoErr)
			}

			email.NewLogNotifier(repo, logger).Notify(ctx, ports.NotificationParams{
				RecipientUserID: recipient,
				Subject:         "Membership approved",
			})

			if tt.want != "" {
				assert.Contains(t, buf.String(), tt.want)
			}
			if tt.notWant != "" {
				assert.NotContains(t, buf.String(), tt.notWant)
			}
			repo.AssertExpectations(t)
		})
	}
}
