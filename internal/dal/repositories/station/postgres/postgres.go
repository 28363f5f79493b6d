package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/denteo/labflow/internal/dal/postgres"
	"github.com/denteo/labflow/internal/service/models/station"
	"github.com/denteo/labflow/internal/service/models/status"
)

// StationDal represents the floor station data access layer model.
type StationDal struct {
	Id        string  `db:"id"`
	Label     string  `db:"label"`
	Status    string  `db:"status"`
	X         float64 `db:"x"`
	Y         float64 `db:"y"`
	Z         float64 `db:"z"`
	SortOrder int     `db:"sort_order"`
}

// ToModel converts StationDal to the service layer Station model.
func (d *StationDal) ToModel() (*station.Station, error) {
	st, err := status.ParseStatus(d.Status)
	if err != nil {
		return nil, fmt.Errorf("station %s carries unknown status %q: %w", d.Id, d.Status, err)
	}

	return &station.Station{
		ID:        d.Id,
		Label:     d.Label,
		Status:    st,
		X:         d.X,
		Y:         d.Y,
		Z:         d.Z,
		SortOrder: d.SortOrder,
	}, nil
}

// PostgresStationRepository represents a Postgres floor layout repository.
type PostgresStationRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresStationRepository creates a new Postgres floor layout repository.
func NewPostgresStationRepository(conn postgres.GenericConn) *PostgresStationRepository {
	return &PostgresStationRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// List returns the floor layout in display order.
func (r *PostgresStationRepository) List(ctx context.Context) ([]station.Station, error) {
	sql, args, err := r.sb.
		Select("id", "label", "status", "x", "y", "z", "sort_order").
		From("stations").
		OrderBy("sort_order ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	var result []station.Station
	for rows.Next() {
		var dal StationDal
		err := rows.Scan(
			&dal.Id,
			&dal.Label,
			&dal.Status,
			&dal.X,
			&dal.Y,
			&dal.Z,
			&dal.SortOrder,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}

		s, err := dal.ToModel()
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// ReplaceAll swaps the whole floor layout. Run it inside a transaction.
func (r *PostgresStationRepository) ReplaceAll(ctx context.Context, stations []station.Station) error {
	sql, args, err := r.sb.Delete("stations").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to clear stations: %w", err)
	}

	if len(stations) == 0 {
		return nil
	}

	insert := r.sb.
		Insert("stations").
		Columns("id", "label", "status", "x", "y", "z", "sort_order")

	for _, s := range stations {
		insert = insert.Values(s.ID, s.Label, s.Status.String(), s.X, s.Y, s.Z, s.SortOrder)
	}

	sql, args, err = insert.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to insert stations: %w", err)
	}

	return nil
}
