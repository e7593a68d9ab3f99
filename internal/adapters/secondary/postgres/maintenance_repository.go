package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/community-hub/internal/core/domain"
	apperrors "github.com/lorrc/community-hub/internal/core/errors"
	"github.com/lorrc/community-hub/internal/core/ports"
	"github.com/lorrc/community-hub/internal/core/utils"
)

const maintenanceColumns = `id, community_id, title, description, status, priority, requester_id, created_at, updated_at, closed_at`

// MaintenanceRepository persists maintenance requests.
type MaintenanceRepository struct {
	pool *pgxpool.Pool
}

var _ ports.MaintenanceRepository = (*MaintenanceRepository)(nil)

func NewMaintenanceRepository(pool *pgxpool.Pool) ports.MaintenanceRepository {
	return &MaintenanceRepository{pool: pool}
}

func scanMaintenanceRequest(row pgx.Row) (*domain.MaintenanceRequest, error) {
	var (
		m           domain.MaintenanceRequest
		status      string
		priority    string
		requesterID pgtype.UUID
		updatedAt   pgtype.Timestamptz
		closedAt    pgtype.Timestamptz
	)
	err := row.Scan(
		&m.ID, &m.CommunityID, &m.Title, &m.Description, &status, &priority,
		&requesterID, &m.CreatedAt, &updatedAt, &closedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Status = domain.MaintenanceStatus(status)
	m.Priority = domain.MaintenancePriority(priority)
	m.RequesterID = requesterID.Bytes
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = utils.FromNullTime(updatedAt)
	m.ClosedAt = utils.FromNullTime(closedAt)
	return &m, nil
}

func (r *MaintenanceRepository) Create(ctx context.Context, request *domain.MaintenanceRequest) (*domain.MaintenanceRequest, error) {
	query := `
		INSERT INTO maintenance_requests (community_id, title, description, status, priority, requester_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + maintenanceColumns

	return scanMaintenanceRequest(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		request.CommunityID,
		request.Title,
		request.Description,
		string(request.Status),
		string(request.Priority),
		utils.ToUUID(request.RequesterID),
		request.CreatedAt,
	))
}

// GetByID fetches a request scoped to its community. Inside a transaction
// the row is locked until the transaction ends.
func (r *MaintenanceRepository) GetByID(ctx context.Context, communityID string, id int64) (*domain.MaintenanceRequest, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_requests WHERE community_id = $1 AND id = $2`
	if _, ok := TxFromContext(ctx); ok {
		query += ` FOR UPDATE`
	}

	request, err := scanMaintenanceRequest(GetDBTX(ctx, r.pool).QueryRow(ctx, query, communityID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMaintenanceNotFound
		}
		return nil, err
	}
	return request, nil
}

func (r *MaintenanceRepository) Update(ctx context.Context, request *domain.MaintenanceRequest) (*domain.MaintenanceRequest, error) {
	query := `
		UPDATE maintenance_requests
		SET title = $3, description = $4, status = $5, priority = $6, updated_at = $7, closed_at = $8
		WHERE community_id = $1 AND id = $2
		RETURNING ` + maintenanceColumns

	updated, err := scanMaintenanceRequest(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		request.CommunityID,
		request.ID,
		request.Title,
		request.Description,
		string(request.Status),
		string(request.Priority),
		utils.ToNullTime(request.UpdatedAt),
		utils.ToNullTime(request.ClosedAt),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMaintenanceNotFound
		}
		return nil, err
	}
	return updated, nil
}

// List returns requests newest first, optionally filtered by requester and status.
func (r *MaintenanceRepository) List(ctx context.Context, params ports.ListMaintenanceRepoParams) ([]*domain.MaintenanceRequest, error) {
	query := `
		SELECT ` + maintenanceColumns + `
		FROM maintenance_requests
		WHERE community_id = $1
		  AND ($2::uuid IS NULL OR requester_id = $2)
		  AND ($3::text IS NULL OR status = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query,
		params.CommunityID,
		utils.ToNullUUID(params.RequesterID),
		utils.ToNullString(params.Status),
		int32(params.Limit),
		int32(params.Offset),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]*domain.MaintenanceRequest, 0, params.Limit)
	for rows.Next() {
		m, err := scanMaintenanceRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, m)
	}
	return requests, rows.Err()
}
