package email

import (
	"context"
	"log/slog"

	"github.com/lorrc/community-hub/internal/core/ports"
)

// LogNotifier is a secondary adapter that stands in for an SMTP sender.
// It resolves the recipient and logs the email instead of sending it.
type LogNotifier struct {
	userRepo ports.UserRepository
	logger   *slog.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier that looks recipients up in userRepo.
func NewLogNotifier(userRepo ports.UserRepository, logger *slog.Logger) *LogNotifier {
	return &LogNotifier{
		userRepo: userRepo,
		logger:   logger.With("component", "email_notifier"),
	}
}

// Notify logs the notification. It is called from a background goroutine
// and handles its own errors.
func (n *LogNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	user, err := n.userRepo.GetByID(ctx, params.RecipientUserID)
	if err != nil {
		n.logger.Error("failed to get user for notification",
			"user_id", params.RecipientUserID,
			"error", err,
		)
		return
	}

	if !user.IsActive {
		n.logger.Debug("skipping notification for inactive user", "user_id", user.ID)
		return
	}

	n.logger.Info("mock email sent",
		"to_name", user.FullName,
		"to_email", user.Email,
		"subject", params.Subject,
		"link", params.Link,
	)
}
