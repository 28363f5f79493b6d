package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/denteo/labflow/internal/dal/postgres"
	"github.com/denteo/labflow/internal/service/models/order"
	"github.com/denteo/labflow/internal/service/models/status"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// orderColumns is the column list every query of this repository selects.
var orderColumns = []string{
	"id",
	"number",
	"patient_name",
	"dentist_name",
	"clinic",
	"contact_email",
	"contact_phone",
	"teeth",
	"work_type",
	"material",
	"implant_type",
	"color",
	"notes",
	"status",
	"assigned_to",
	"photo_path",
	"scan_file_path",
	"created_at",
	"updated_at",
}

// OrderDal represents the order data access layer model.
type OrderDal struct {
	Id           uuid.UUID  `db:"id"`
	Number       string     `db:"number"`
	PatientName  string     `db:"patient_name"`
	DentistName  string     `db:"dentist_name"`
	Clinic       string     `db:"clinic"`
	ContactEmail string     `db:"contact_email"`
	ContactPhone string     `db:"contact_phone"`
	Teeth        []string   `db:"teeth"`
	WorkType     string     `db:"work_type"`
	Material     string     `db:"material"`
	ImplantType  string     `db:"implant_type"`
	Color        string     `db:"color"`
	Notes        string     `db:"notes"`
	Status       string     `db:"status"`
	AssignedTo   *uuid.UUID `db:"assigned_to"`
	PhotoPath    *string    `db:"photo_path"`
	ScanFilePath *string    `db:"scan_file_path"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// ToModel converts OrderDal to the service layer Order model.
func (o *OrderDal) ToModel() (*order.Order, error) {
	st, err := status.ParseStatus(o.Status)
	if err != nil {
		return nil, fmt.Errorf("order %s carries unknown status %q: %w", o.Id, o.Status, err)
	}

	return &order.Order{
		ID:           o.Id,
		Number:       o.Number,
		PatientName:  o.PatientName,
		DentistName:  o.DentistName,
		Clinic:       o.Clinic,
		ContactEmail: o.ContactEmail,
		ContactPhone: o.ContactPhone,
		Teeth:        o.Teeth,
		WorkType:     o.WorkType,
		Material:     o.Material,
		ImplantType:  o.ImplantType,
		Color:        o.Color,
		Notes:        o.Notes,
		Status:       st,
		AssignedTo:   o.AssignedTo,
		PhotoPath:    o.PhotoPath,
		ScanFilePath: o.ScanFilePath,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}, nil
}

// PostgresOrderRepository represents a Postgres order repository.
type PostgresOrderRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderRepository creates a new Postgres order repository.
func NewPostgresOrderRepository(conn postgres.GenericConn) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var dal OrderDal
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(
		&dal.Id,
		&dal.Number,
		&dal.PatientName,
		&dal.DentistName,
		&dal.Clinic,
		&dal.ContactEmail,
		&dal.ContactPhone,
		&dal.Teeth,
		&dal.WorkType,
		&dal.Material,
		&dal.ImplantType,
		&dal.Color,
		&dal.Notes,
		&dal.Status,
		&dal.AssignedTo,
		&dal.PhotoPath,
		&dal.ScanFilePath,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	dal.CreatedAt = createdAt.Time
	dal.UpdatedAt = updatedAt.Time

	return dal.ToModel()
}

// Insert creates an order. The id and the human-facing number come from the
// database, so the returned order carries both.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	sql, args, err := r.sb.
		Insert("orders").
		Columns(
			"patient_name",
			"dentist_name",
			"clinic",
			"contact_email",
			"contact_phone",
			"teeth",
			"work_type",
			"material",
			"implant_type",
			"color",
			"notes",
			"status",
			"assigned_to",
			"created_at",
			"updated_at",
		).
		Values(
			o.PatientName,
			o.DentistName,
			o.Clinic,
			o.ContactEmail,
			o.ContactPhone,
			o.Teeth,
			o.WorkType,
			o.Material,
			o.ImplantType,
			o.Color,
			o.Notes,
			o.Status.String(),
			o.AssignedTo,
			pgtype.Timestamptz{Time: o.CreatedAt, Valid: true},
			pgtype.Timestamptz{Time: o.UpdatedAt, Valid: true},
		).
		Suffix("RETURNING " + strings.Join(orderColumns, ", ")).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	inserted, err := scanOrder(r.conn.QueryRow(ctx, sql, args...))
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	return *inserted, nil
}

// Query retrieves orders based on filter criteria, newest first.
func (r *PostgresOrderRepository) Query(
	ctx context.Context,
	filter *order.QueryOrdersModel,
) ([]order.Order, error) {
	query := r.sb.
		Select(orderColumns...).
		From("orders").
		OrderBy("created_at DESC")

	if len(filter.IDs) > 0 {
		query = query.Where(sq.Eq{"id": filter.IDs})
	}

	if len(filter.Numbers) > 0 {
		query = query.Where(sq.Eq{"number": filter.Numbers})
	}

	if len(filter.Statuses) > 0 {
		raw := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			raw[i] = s.String()
		}
		query = query.Where(sq.Eq{"status": raw})
	}

	if len(filter.AssignedTo) > 0 {
		query = query.Where(sq.Eq{"assigned_to": filter.AssignedTo})
	}

	if filter.Search != "" {
		needle := "%" + filter.Search + "%"
		query = query.Where(sq.Or{
			sq.ILike{"number": needle},
			sq.ILike{"patient_name": needle},
			sq.ILike{"dentist_name": needle},
		})
	}

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		result = append(result, *o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// GetByID retrieves a single order by id.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (order.Order, error) {
	return r.getOne(ctx, id, "")
}

// GetForUpdate retrieves a single order and locks its row for the rest of
// the transaction.
func (r *PostgresOrderRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (order.Order, error) {
	return r.getOne(ctx, id, "FOR UPDATE")
}

func (r *PostgresOrderRepository) getOne(ctx context.Context, id uuid.UUID, suffix string) (order.Order, error) {
	query := r.sb.
		Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id})

	if suffix != "" {
		query = query.Suffix(suffix)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build query: %w", err)
	}

	o, err := scanOrder(r.conn.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, order.ErrOrderNotFound
		}

		return order.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	return *o, nil
}

// Update applies the non-nil fields of upd to the order and returns the
// updated row.
func (r *PostgresOrderRepository) Update(
	ctx context.Context,
	id uuid.UUID,
	upd order.UpdateOrderModel,
) (order.Order, error) {
	query := r.sb.Update("orders").Where(sq.Eq{"id": id})

	changed := false
	set := func(column string, value interface{}) {
		query = query.Set(column, value)
		changed = true
	}

	if upd.PatientName != nil {
		set("patient_name", *upd.PatientName)
	}
	if upd.DentistName != nil {
		set("dentist_name", *upd.DentistName)
	}
	if upd.Clinic != nil {
		set("clinic", *upd.Clinic)
	}
	if upd.ContactEmail != nil {
		set("contact_email", *upd.ContactEmail)
	}
	if upd.ContactPhone != nil {
		set("contact_phone", *upd.ContactPhone)
	}
	if upd.Teeth != nil {
		set("teeth", upd.Teeth)
	}
	if upd.WorkType != nil {
		set("work_type", *upd.WorkType)
	}
	if upd.Material != nil {
		set("material", *upd.Material)
	}
	if upd.ImplantType != nil {
		set("implant_type", *upd.ImplantType)
	}
	if upd.Color != nil {
		set("color", *upd.Color)
	}
	if upd.Notes != nil {
		set("notes", *upd.Notes)
	}
	if upd.AssignedToSet {
		set("assigned_to", upd.AssignedTo)
	}

	if !changed {
		return r.GetByID(ctx, id)
	}

	sql, args, err := query.
		Suffix("RETURNING " + strings.Join(orderColumns, ", ")).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build update query: %w", err)
	}

	o, err := scanOrder(r.conn.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, order.ErrOrderNotFound
		}

		return order.Order{}, fmt.Errorf("failed to update order: %w", err)
	}

	return *o, nil
}

// SetStatus updates only the status column.
func (r *PostgresOrderRepository) SetStatus(ctx context.Context, id uuid.UUID, s status.Status) error {
	sql, args, err := r.sb.
		Update("orders").
		Set("status", s.String()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to set order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrOrderNotFound
	}

	return nil
}

// SetAttachmentPath records where an uploaded attachment was stored.
func (r *PostgresOrderRepository) SetAttachmentPath(
	ctx context.Context,
	id uuid.UUID,
	kind order.AttachmentKind,
	path string,
) error {
	var column string
	switch kind {
	case order.AttachmentPhoto:
		column = "photo_path"
	case order.AttachmentScan:
		column = "scan_file_path"
	default:
		return order.ErrInvalidAttachmentKind
	}

	sql, args, err := r.sb.
		Update("orders").
		Set(column, path).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to set attachment path: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrOrderNotFound
	}

	return nil
}
