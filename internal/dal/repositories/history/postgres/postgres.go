package postgresrepo

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/denteo/labflow/internal/dal/postgres"
	"github.com/denteo/labflow/internal/service/models/history"
	"github.com/denteo/labflow/internal/service/models/status"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var historyColumns = []string{
	"id",
	"order_id",
	"old_status",
	"new_status",
	"changed_by",
	"changed_at",
	"duration_seconds",
}

// StatusChangeDal represents the status history data access layer model.
type StatusChangeDal struct {
	Id              int64              `db:"id"`
	OrderId         uuid.UUID          `db:"order_id"`
	OldStatus       *string            `db:"old_status"`
	NewStatus       string             `db:"new_status"`
	ChangedBy       uuid.UUID          `db:"changed_by"`
	ChangedAt       pgtype.Timestamptz `db:"changed_at"`
	DurationSeconds *int64             `db:"duration_seconds"`
}

// ToModel converts StatusChangeDal to the service layer StatusChange model.
func (d *StatusChangeDal) ToModel() (*history.StatusChange, error) {
	newStatus, err := status.ParseStatus(d.NewStatus)
	if err != nil {
		return nil, fmt.Errorf("history entry %d carries unknown status %q: %w", d.Id, d.NewStatus, err)
	}

	var oldStatus *status.Status
	if d.OldStatus != nil {
		parsed, err := status.ParseStatus(*d.OldStatus)
		if err != nil {
			return nil, fmt.Errorf("history entry %d carries unknown status %q: %w", d.Id, *d.OldStatus, err)
		}
		oldStatus = &parsed
	}

	return &history.StatusChange{
		ID:              d.Id,
		OrderID:         d.OrderId,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
		ChangedBy:       d.ChangedBy,
		ChangedAt:       d.ChangedAt.Time,
		DurationSeconds: d.DurationSeconds,
	}, nil
}

// PostgresHistoryRepository represents a Postgres status history repository.
type PostgresHistoryRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresHistoryRepository creates a new Postgres status history repository.
func NewPostgresHistoryRepository(conn postgres.GenericConn) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*history.StatusChange, error) {
	var dal StatusChangeDal

	err := row.Scan(
		&dal.Id,
		&dal.OrderId,
		&dal.OldStatus,
		&dal.NewStatus,
		&dal.ChangedBy,
		&dal.ChangedAt,
		&dal.DurationSeconds,
	)
	if err != nil {
		return nil, err
	}

	return dal.ToModel()
}

// Append inserts a history entry and returns it with its id.
func (r *PostgresHistoryRepository) Append(
	ctx context.Context,
	entry history.StatusChange,
) (history.StatusChange, error) {
	var oldStatus *string
	if entry.OldStatus != nil {
		raw := entry.OldStatus.String()
		oldStatus = &raw
	}

	sql, args, err := r.sb.
		Insert("status_history").
		Columns(
			"order_id",
			"old_status",
			"new_status",
			"changed_by",
			"changed_at",
			"duration_seconds",
		).
		Values(
			entry.OrderID,
			oldStatus,
			entry.NewStatus.String(),
			entry.ChangedBy,
			pgtype.Timestamptz{Time: entry.ChangedAt, Valid: true},
			entry.DurationSeconds,
		).
		Suffix("RETURNING id, order_id, old_status, new_status, changed_by, changed_at, duration_seconds").
		ToSql()
	if err != nil {
		return history.StatusChange{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	inserted, err := scanEntry(r.conn.QueryRow(ctx, sql, args...))
	if err != nil {
		return history.StatusChange{}, fmt.Errorf("failed to append history entry: %w", err)
	}

	return *inserted, nil
}

// GetLast returns the newest entry of an order or history.ErrNoStatusHistory.
func (r *PostgresHistoryRepository) GetLast(
	ctx context.Context,
	orderID uuid.UUID,
) (history.StatusChange, error) {
	sql, args, err := r.sb.
		Select(historyColumns...).
		From("status_history").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("changed_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return history.StatusChange{}, fmt.Errorf("failed to build query: %w", err)
	}

	entry, err := scanEntry(r.conn.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return history.StatusChange{}, history.ErrNoStatusHistory
		}

		return history.StatusChange{}, fmt.Errorf("failed to get last history entry: %w", err)
	}

	return *entry, nil
}

// ListByOrder returns all entries of an order ordered by changed_at ascending.
func (r *PostgresHistoryRepository) ListByOrder(
	ctx context.Context,
	orderID uuid.UUID,
) ([]history.StatusChange, error) {
	query := r.sb.
		Select(historyColumns...).
		From("status_history").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("changed_at ASC", "id ASC")

	return r.list(ctx, query)
}

// ListAll returns the full history log ordered by changed_at ascending.
func (r *PostgresHistoryRepository) ListAll(ctx context.Context) ([]history.StatusChange, error) {
	query := r.sb.
		Select(historyColumns...).
		From("status_history").
		OrderBy("changed_at ASC", "id ASC")

	return r.list(ctx, query)
}

func (r *PostgresHistoryRepository) list(
	ctx context.Context,
	query sq.SelectBuilder,
) ([]history.StatusChange, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history entries: %w", err)
	}
	defer rows.Close()

	var result []history.StatusChange
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		result = append(result, *entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
