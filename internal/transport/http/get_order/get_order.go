package getorder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/denteo/labflow/internal/service/models/order"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type service interface {
	GetOrder(ctx context.Context, id uuid.UUID) (order.Order, error)
}

func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing order id", "error", err)

		return
	}

	ord, err := service.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)

			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error getting order", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(ord); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}
