package iorderrepo

import (
	"context"

	"github.com/denteo/labflow/internal/service/models/order"
	"github.com/denteo/labflow/internal/service/models/status"
	"github.com/google/uuid"
)

// IOrderRepository is an interface for the order postgres repository.
type IOrderRepository interface {
	Insert(ctx context.Context, o order.Order) (order.Order, error)
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (order.Order, error)

	// GetForUpdate locks the order row for the rest of the transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (order.Order, error)

	Update(ctx context.Context, id uuid.UUID, upd order.UpdateOrderModel) (order.Order, error)
	SetStatus(ctx context.Context, id uuid.UUID, s status.Status) error
	SetAttachmentPath(ctx context.Context, id uuid.UUID, kind order.AttachmentKind, path string) error
}
