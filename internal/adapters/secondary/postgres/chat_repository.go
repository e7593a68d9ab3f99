package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/community-hub/internal/core/domain"
	"github.com/lorrc/community-hub/internal/core/ports"
	"github.com/lorrc/community-hub/internal/core/utils"
)

const chatMessageColumns = `id, community_id, author_id, body, created_at`

// ChatMessageRepository persists community chat messages.
type ChatMessageRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ChatMessageRepository = (*ChatMessageRepository)(nil)

func NewChatMessageRepository(pool *pgxpool.Pool) ports.ChatMessageRepository {
	return &ChatMessageRepository{pool: pool}
}

func scanChatMessage(row pgx.Row) (*domain.ChatMessage, error) {
	var (
		m        domain.ChatMessage
		authorID pgtype.UUID
	)
	if err := row.Scan(&m.ID, &m.CommunityID, &authorID, &m.Body, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.AuthorID = authorID.Bytes
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

func (r *ChatMessageRepository) Create(ctx context.Context, message *domain.ChatMessage) (*domain.ChatMessage, error) {
	query := `
		INSERT INTO chat_messages (community_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + chatMessageColumns

	return scanChatMessage(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		message.CommunityID,
		utils.ToUUID(message.AuthorID),
		message.Body,
		message.CreatedAt,
	))
}

// ListAfter returns up to limit messages with id > afterID, oldest first.
func (r *ChatMessageRepository) ListAfter(ctx context.Context, communityID string, afterID int64, limit int) ([]*domain.ChatMessage, error) {
	query := `
		SELECT ` + chatMessageColumns + `
		FROM chat_messages
		WHERE community_id = $1 AND id > $2
		ORDER BY id
		LIMIT $3`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, communityID, afterID, int32(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]*domain.ChatMessage, 0, limit)
	for rows.Next() {
		m, err := scanChatMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
