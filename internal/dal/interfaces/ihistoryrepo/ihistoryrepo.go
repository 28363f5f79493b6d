package ihistoryrepo

import (
	"context"

	"github.com/denteo/labflow/internal/service/models/history"
	"github.com/google/uuid"
)

// IHistoryRepository is an interface for the append-only status history
// repository. History entries are never updated or deleted.
type IHistoryRepository interface {
	Append(ctx context.Context, entry history.StatusChange) (history.StatusChange, error)

	// GetLast returns the newest entry of an order. When the order has no
	// history yet it returns history.ErrNoStatusHistory; any other error is
	// a transport failure.
	GetLast(ctx context.Context, orderID uuid.UUID) (history.StatusChange, error)

	// ListByOrder returns all entries of an order ordered by changed_at
	// ascending. An empty history is a valid result.
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]history.StatusChange, error)

	// ListAll returns the full history log for analytics.
	ListAll(ctx context.Context) ([]history.StatusChange, error)
}
