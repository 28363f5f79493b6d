package orderhistory

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/denteo/labflow/internal/service/models/history"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type service interface {
	GetOrderStatusHistory(ctx context.Context, orderID uuid.UUID) ([]history.StatusChange, error)
}

// ListHistory returns the status history of an order oldest first. An order
// that never left pending has an empty history, which is a valid response.
func ListHistory(w http.ResponseWriter, r *http.Request, service service) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing order id", "error", err)

		return
	}

	entries, err := service.GetOrderStatusHistory(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error getting order status history", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(entries); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}
