package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/denteo/labflow/internal/dal/filestore"
	"github.com/denteo/labflow/internal/dal/interfaces/ihistoryrepo"
	"github.com/denteo/labflow/internal/dal/interfaces/iorderrepo"
	"github.com/denteo/labflow/internal/dal/interfaces/ioutboxrepo"
	"github.com/denteo/labflow/internal/dal/interfaces/istationrepo"
	"github.com/denteo/labflow/internal/dal/postgres"
	"github.com/denteo/labflow/internal/dal/uow"
	"github.com/denteo/labflow/internal/service/models/history"
	"github.com/denteo/labflow/internal/service/models/order"
	"github.com/denteo/labflow/internal/service/models/outbox"
	"github.com/denteo/labflow/internal/service/models/status"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var (
	ErrAttachmentMissing   = errors.New("attachment not uploaded")
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// allowedExtensions is the per-slot extension allow-list for uploads.
var allowedExtensions = map[order.AttachmentKind][]string{
	order.AttachmentPhoto: {".jpg", ".jpeg", ".png", ".webp", ".heic"},
	order.AttachmentScan:  {".stl", ".ply", ".obj", ".dcm", ".zip"},
}

// OrderService is a service for managing lab orders.
type OrderService struct {
	pgClient   *postgres.Client
	files      fileStore
	uowFactory func() unitOfWork
	nowFunc    func() time.Time
}

func (s *OrderService) newUOW() unitOfWork {
	return s.uowFactory()
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	HistoryRepository() ihistoryrepo.IHistoryRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
	StationRepository() istationrepo.IStationRepository
}

type fileStore interface {
	Save(path string, r io.Reader) error
	SignPath(path string, now time.Time) (string, error)
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
		s.uowFactory = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithFileStore sets the attachment store for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithFileStore(files *filestore.Store) option {
	return func(s *OrderService) {
		s.files = files
	}
}

// SubmitOrder creates an order from the public intake form. The order starts
// as pending with an empty status history; only later transitions write
// history entries.
func (s *OrderService) SubmitOrder(ctx context.Context, o order.Order) (created order.Order, err error) {
	ctx, span := otel.Tracer("labflow").Start(ctx, "OrderService.SubmitOrder")
	defer span.End()

	now := s.nowFunc()
	o.Status = status.StatusPending
	o.CreatedAt = now
	o.UpdatedAt = now

	work := s.newUOW()
	if err = work.Begin(ctx); err != nil {
		return order.Order{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = work.Rollback(ctx)
		}
	}()

	created, err = work.OrderRepository().Insert(ctx, o)
	if err != nil {
		return order.Order{}, err
	}

	if err = s.enqueueChange(ctx, work, created.Number, "created", now); err != nil {
		return order.Order{}, err
	}

	if err = work.Commit(ctx); err != nil {
		return order.Order{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return created, nil
}

// GetOrders retrieves orders based on filter.
func (s *OrderService) GetOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error) {
	work := s.newUOW()

	orders, err := work.OrderRepository().Query(ctx, &filter)
	if err != nil {
		return nil, err
	}

	if orders == nil {
		orders = []order.Order{}
	}

	return orders, nil
}

// GetOrder retrieves a single order.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (order.Order, error) {
	return s.newUOW().OrderRepository().GetByID(ctx, id)
}

// UpdateOrder applies the given edits to an order.
func (s *OrderService) UpdateOrder(
	ctx context.Context,
	id uuid.UUID,
	upd order.UpdateOrderModel,
) (updated order.Order, err error) {
	ctx, span := otel.Tracer("labflow").Start(ctx, "OrderService.UpdateOrder")
	defer span.End()

	work := s.newUOW()
	if err = work.Begin(ctx); err != nil {
		return order.Order{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = work.Rollback(ctx)
		}
	}()

	updated, err = work.OrderRepository().Update(ctx, id, upd)
	if err != nil {
		return order.Order{}, err
	}

	if err = s.enqueueChange(ctx, work, updated.Number, "updated", s.nowFunc()); err != nil {
		return order.Order{}, err
	}

	if err = work.Commit(ctx); err != nil {
		return order.Order{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return updated, nil
}

// ChangeStatus moves an order to a new status. The order update, the history
// entry and the change event commit in one transaction, so the history can
// never drift from the orders table.
//
// The entry's old status comes from the newest history entry, not from the
// order row, so the first recorded change of every order has a nil old
// status and a nil duration.
func (s *OrderService) ChangeStatus(
	ctx context.Context,
	orderID uuid.UUID,
	newStatus status.Status,
	actorID uuid.UUID,
) (entry history.StatusChange, err error) {
	ctx, span := otel.Tracer("labflow").Start(ctx, "OrderService.ChangeStatus")
	defer span.End()

	now := s.nowFunc()

	work := s.newUOW()
	if err = work.Begin(ctx); err != nil {
		return history.StatusChange{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = work.Rollback(ctx)
		}
	}()

	ord, err := work.OrderRepository().GetForUpdate(ctx, orderID)
	if err != nil {
		return history.StatusChange{}, err
	}

	var oldStatus *status.Status
	var durationSeconds *int64

	last, err := work.HistoryRepository().GetLast(ctx, orderID)
	switch {
	case err == nil:
		oldStatus = &last.NewStatus
		seconds := history.SecondsBetween(last.ChangedAt, now)
		durationSeconds = &seconds
	case errors.Is(err, history.ErrNoStatusHistory):
		// First recorded change of this order.
		err = nil
	default:
		return history.StatusChange{}, fmt.Errorf("failed to read last status change: %w", err)
	}

	if err = work.OrderRepository().SetStatus(ctx, orderID, newStatus); err != nil {
		return history.StatusChange{}, err
	}

	entry, err = work.HistoryRepository().Append(ctx, history.StatusChange{
		OrderID:         orderID,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
		ChangedBy:       actorID,
		ChangedAt:       now,
		DurationSeconds: durationSeconds,
	})
	if err != nil {
		return history.StatusChange{}, err
	}

	if err = s.enqueueChange(ctx, work, ord.Number, "status_changed", now); err != nil {
		return history.StatusChange{}, err
	}

	if err = work.Commit(ctx); err != nil {
		return history.StatusChange{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return entry, nil
}

// GetOrderStatusHistory returns the full history of an order, oldest first.
// An order without history returns an empty slice.
func (s *OrderService) GetOrderStatusHistory(
	ctx context.Context,
	orderID uuid.UUID,
) ([]history.StatusChange, error) {
	entries, err := s.newUOW().HistoryRepository().ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if entries == nil {
		entries = []history.StatusChange{}
	}

	return entries, nil
}

// GetLastStatusChange returns the newest history entry of an order, or
// history.ErrNoStatusHistory when none was recorded yet.
func (s *OrderService) GetLastStatusChange(
	ctx context.Context,
	orderID uuid.UUID,
) (history.StatusChange, error) {
	return s.newUOW().HistoryRepository().GetLast(ctx, orderID)
}

// UploadAttachment stores an attachment in the object store under the
// order's number and records its path on the order.
func (s *OrderService) UploadAttachment(
	ctx context.Context,
	orderID uuid.UUID,
	kind order.AttachmentKind,
	filename string,
	data io.Reader,
) (path string, err error) {
	ctx, span := otel.Tracer("labflow").Start(ctx, "OrderService.UploadAttachment")
	defer span.End()

	ext := strings.ToLower(filepath.Ext(filename))
	if !extAllowed(kind, ext) {
		return "", ErrUnsupportedFileType
	}

	work := s.newUOW()

	ord, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}

	path = ord.Number + "/" + string(kind) + ext
	if err = s.files.Save(path, data); err != nil {
		return "", err
	}

	if err = work.Begin(ctx); err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = work.Rollback(ctx)
		}
	}()

	if err = work.OrderRepository().SetAttachmentPath(ctx, orderID, kind, path); err != nil {
		return "", err
	}

	if err = s.enqueueChange(ctx, work, ord.Number, "attachment_added", s.nowFunc()); err != nil {
		return "", err
	}

	if err = work.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return path, nil
}

// SignAttachmentURL issues a short-lived download token for one of the
// order's attachments.
func (s *OrderService) SignAttachmentURL(
	ctx context.Context,
	orderID uuid.UUID,
	kind order.AttachmentKind,
) (string, error) {
	ord, err := s.newUOW().OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}

	var path *string
	switch kind {
	case order.AttachmentPhoto:
		path = ord.PhotoPath
	case order.AttachmentScan:
		path = ord.ScanFilePath
	default:
		return "", order.ErrInvalidAttachmentKind
	}

	if path == nil {
		return "", ErrAttachmentMissing
	}

	return s.files.SignPath(*path, s.nowFunc())
}

// enqueueChange inserts a change event into the outbox inside the current
// transaction.
func (s *OrderService) enqueueChange(
	ctx context.Context,
	work unitOfWork,
	orderNumber, kind string,
	now time.Time,
) error {
	msg, err := outbox.NewOrderChanged(orderNumber, kind, now)
	if err != nil {
		return err
	}

	return work.OutboxRepository().Insert(ctx, msg)
}

func extAllowed(kind order.AttachmentKind, ext string) bool {
	for _, allowed := range allowedExtensions[kind] {
		if ext == allowed {
			return true
		}
	}

	return false
}
