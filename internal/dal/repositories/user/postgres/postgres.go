package postgresrepo

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/denteo/labflow/internal/dal/postgres"
	"github.com/denteo/labflow/internal/service/models/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var userColumns = []string{
	"id",
	"email",
	"display_name",
	"password_hash",
	"role",
	"created_at",
}

// UserDal represents the staff account data access layer model.
type UserDal struct {
	Id           uuid.UUID          `db:"id"`
	Email        string             `db:"email"`
	DisplayName  string             `db:"display_name"`
	PasswordHash string             `db:"password_hash"`
	Role         string             `db:"role"`
	CreatedAt    pgtype.Timestamptz `db:"created_at"`
}

// ToModel converts UserDal to the service layer User model.
func (d *UserDal) ToModel() *user.User {
	return &user.User{
		ID:           d.Id,
		Email:        d.Email,
		DisplayName:  d.DisplayName,
		PasswordHash: d.PasswordHash,
		Role:         user.Role(d.Role),
		CreatedAt:    d.CreatedAt.Time,
	}
}

// PostgresUserRepository represents a Postgres staff account repository.
type PostgresUserRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresUserRepository creates a new Postgres staff account repository.
func NewPostgresUserRepository(conn postgres.GenericConn) *PostgresUserRepository {
	return &PostgresUserRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *PostgresUserRepository) getOne(ctx context.Context, pred interface{}) (user.User, error) {
	sql, args, err := r.sb.
		Select(userColumns...).
		From("users").
		Where(pred).
		ToSql()
	if err != nil {
		return user.User{}, fmt.Errorf("failed to build query: %w", err)
	}

	var dal UserDal
	err = r.conn.QueryRow(ctx, sql, args...).Scan(
		&dal.Id,
		&dal.Email,
		&dal.DisplayName,
		&dal.PasswordHash,
		&dal.Role,
		&dal.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrUserNotFound
		}

		return user.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	return *dal.ToModel(), nil
}

// GetByEmail retrieves a staff account by email.
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, sq.Eq{"email": email})
}

// GetByID retrieves a staff account by id.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

// List returns all staff accounts ordered by display name.
func (r *PostgresUserRepository) List(ctx context.Context) ([]user.User, error) {
	sql, args, err := r.sb.
		Select(userColumns...).
		From("users").
		OrderBy("display_name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		var dal UserDal
		err := rows.Scan(
			&dal.Id,
			&dal.Email,
			&dal.DisplayName,
			&dal.PasswordHash,
			&dal.Role,
			&dal.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		result = append(result, *dal.ToModel())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
