package history

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/denteo/labflow/internal/service/models/status"
	"github.com/google/uuid"
)

// ErrNoStatusHistory is returned when an order has no recorded status changes yet.
var ErrNoStatusHistory = errors.New("no status history")

// StatusChange represents one entry of the append-only status history log.
// OldStatus and DurationSeconds are nil on the first entry of an order.
type StatusChange struct {
	ID              int64          `json:"id"`
	OrderID         uuid.UUID      `json:"orderId"`
	OldStatus       *status.Status `json:"oldStatus"`
	NewStatus       status.Status  `json:"newStatus"`
	ChangedBy       uuid.UUID      `json:"changedBy"`
	ChangedAt       time.Time      `json:"changedAt"`
	DurationSeconds *int64         `json:"durationSeconds"`
}

// SecondsBetween returns the whole seconds from one instant to another,
// floored toward negative infinity.
func SecondsBetween(from, to time.Time) int64 {
	return int64(math.Floor(to.Sub(from).Seconds()))
}

// TotalProductionSeconds computes the production time of an order from its
// history, ordered by changed_at ascending: from the first entry that moved
// the order into production to the first entry that marked it completed.
// Returns nil when either boundary is missing. The value can be negative
// when entries were recorded out of order; callers decide how to treat that.
func TotalProductionSeconds(entries []StatusChange) *int64 {
	var start, end *time.Time

	for i := range entries {
		if start == nil && entries[i].NewStatus.InProduction() {
			start = &entries[i].ChangedAt
		}
		if end == nil && entries[i].NewStatus == status.StatusCompleted {
			end = &entries[i].ChangedAt
		}
	}

	if start == nil || end == nil {
		return nil
	}

	seconds := SecondsBetween(*start, *end)

	return &seconds
}

// CompletedAt returns the timestamp of the first entry that marked the order
// completed, or nil when the order never completed.
func CompletedAt(entries []StatusChange) *time.Time {
	for i := range entries {
		if entries[i].NewStatus == status.StatusCompleted {
			return &entries[i].ChangedAt
		}
	}

	return nil
}

// FormatDuration renders a duration in seconds for the dashboard.
// nil renders as "-", an hour or more as "{h}h {m}min", anything shorter
// as "{m}min" (sub-minute values as "0min").
func FormatDuration(seconds *int64) string {
	if seconds == nil {
		return "-"
	}

	s := *seconds
	hours := s / 3600
	minutes := (s % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dmin", hours, minutes)
	}

	return fmt.Sprintf("%dmin", minutes)
}
