package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/community-hub/internal/core/domain"
	apperrors "github.com/lorrc/community-hub/internal/core/errors"
	"github.com/lorrc/community-hub/internal/core/ports"
	"github.com/lorrc/community-hub/internal/core/utils"
)

const membershipColumns = `community_id, user_id, status, requested_at, approved_at, approved_by`

// MembershipRepository persists community memberships.
type MembershipRepository struct {
	pool *pgxpool.Pool
}

var _ ports.MembershipRepository = (*MembershipRepository)(nil)

func NewMembershipRepository(pool *pgxpool.Pool) ports.MembershipRepository {
	return &MembershipRepository{pool: pool}
}

func scanMembership(row pgx.Row) (*domain.Membership, error) {
	var (
		m          domain.Membership
		userID     pgtype.UUID
		status     string
		approvedAt pgtype.Timestamptz
		approvedBy pgtype.UUID
	)
	if err := row.Scan(&m.CommunityID, &userID, &status, &m.RequestedAt, &approvedAt, &approvedBy); err != nil {
		return nil, err
	}
	m.UserID = userID.Bytes
	m.Status = domain.MembershipStatus(status)
	m.RequestedAt = m.RequestedAt.UTC()
	m.ApprovedAt = utils.FromNullTime(approvedAt)
	m.ApprovedBy = utils.FromNullUUID(approvedBy)
	return &m, nil
}

func (r *MembershipRepository) Create(ctx context.Context, membership *domain.Membership) (*domain.Membership, error) {
	query := `
		INSERT INTO community_memberships (community_id, user_id, status, requested_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + membershipColumns

	created, err := scanMembership(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		membership.CommunityID,
		utils.ToUUID(membership.UserID),
		string(membership.Status),
		membership.RequestedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrMembershipExists
		}
		return nil, err
	}
	return created, nil
}

// Get returns the membership row. Inside a transaction the row is locked
// until the transaction ends.
func (r *MembershipRepository) Get(ctx context.Context, communityID string, userID uuid.UUID) (*domain.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM community_memberships WHERE community_id = $1 AND user_id = $2`
	if _, ok := TxFromContext(ctx); ok {
		query += ` FOR UPDATE`
	}

	membership, err := scanMembership(GetDBTX(ctx, r.pool).QueryRow(ctx, query, communityID, utils.ToUUID(userID)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMembershipNotFound
		}
		return nil, err
	}
	return membership, nil
}

func (r *MembershipRepository) Update(ctx context.Context, membership *domain.Membership) (*domain.Membership, error) {
	query := `
		UPDATE community_memberships
		SET status = $3, approved_at = $4, approved_by = $5
		WHERE community_id = $1 AND user_id = $2
		RETURNING ` + membershipColumns

	updated, err := scanMembership(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		membership.CommunityID,
		utils.ToUUID(membership.UserID),
		string(membership.Status),
		utils.ToNullTime(membership.ApprovedAt),
		utils.ToNullUUID(membership.ApprovedBy),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMembershipNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (r *MembershipRepository) List(ctx context.Context, communityID string, status *domain.MembershipStatus) ([]*domain.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM community_memberships
		WHERE community_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY requested_at, user_id`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, communityID, utils.ToNullString(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memberships := make([]*domain.Membership, 0)
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}
