package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/community-hub/internal/core/domain"
	apperrors "github.com/lorrc/community-hub/internal/core/errors"
	"github.com/lorrc/community-hub/internal/core/ports"
	"github.com/lorrc/community-hub/internal/core/utils"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const userColumns = `id, full_name, email, hashed_password, role, is_active, created_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(pool *pgxpool.Pool) ports.UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user domain.User
		id   pgtype.UUID
		role string
	)
	if err := row.Scan(&id, &user.FullName, &user.Email, &user.HashedPassword, &role, &user.IsActive, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.ID = id.Bytes
	user.Role = domain.Role(role)
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (id, full_name, email, hashed_password, role, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		utils.ToUUID(user.ID),
		user.FullName,
		user.Email,
		user.HashedPassword,
		string(user.Role),
		user.IsActive,
		user.CreatedAt,
	)

	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrUserExists
		}
		return nil, err
	}
	return created, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(GetDBTX(ctx, r.pool).QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(GetDBTX(ctx, r.pool).QueryRow(ctx, query, utils.ToUUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
