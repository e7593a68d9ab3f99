package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/lorrc/community-hub/internal/core/domain"
	"github.com/lorrc/community-hub/internal/core/ports"
)

// notificationDispatcher pushes a notification event to the recipient's live
// connection and, when configured, hands the same notification to the
// out-of-band notifier in the background.
type notificationDispatcher struct {
	broadcaster ports.EventBroadcaster
	notifier    ports.Notifier
	wg          sync.WaitGroup
}

func newNotificationDispatcher(broadcaster ports.EventBroadcaster, notifier ports.Notifier) *notificationDispatcher {
	return &notificationDispatcher{broadcaster: broadcaster, notifier: notifier}
}

func (d *notificationDispatcher) notify(recipient uuid.UUID, payload domain.NotificationPayload) {
	d.broadcaster.EmitToPrincipal(recipient, domain.EventNotification, payload)

	if d.notifier == nil {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		// The request context may already be done.
		d.notifier.Notify(context.Background(), ports.NotificationParams{
			RecipientUserID: recipient,
			Subject:         payload.Title,
			Body:            payload.Body,
			Link:            payload.Link,
		})
	}()
}

func (d *notificationDispatcher) wait() {
	d.wg.Wait()
}
