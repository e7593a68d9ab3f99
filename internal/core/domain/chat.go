package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/community-hub/internal/core/errors"
)

// MaxMessageBodyLength is the maximum length of a chat message body.
const MaxMessageBodyLength = 4000

// ChatMessage is a message posted to a community's chat.
type ChatMessage struct {
	ID          int64
	CommunityID string
	AuthorID    uuid.UUID
	Body        string
	CreatedAt   time.Time
}

// ChatMessageParams holds the input for creating a chat message.
type ChatMessageParams struct {
	CommunityID string
	AuthorID    uuid.UUID
	Body        string
}

// NewChatMessage validates the params and builds an unsaved message.
func NewChatMessage(params ChatMessageParams) (*ChatMessage, error) {
	if err := ValidateCommunityID(params.CommunityID); err != nil {
		return nil, err
	}

	body := strings.TrimSpace(params.Body)
	if body == "" {
		return nil, apperrors.ErrMessageBodyRequired
	}
	if len(body) > MaxMessageBodyLength {
		return nil, apperrors.ErrMessageBodyTooLong
	}

	return &ChatMessage{
		CommunityID: params.CommunityID,
		AuthorID:    params.AuthorID,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
