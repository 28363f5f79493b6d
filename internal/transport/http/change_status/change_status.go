package changestatus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/denteo/labflow/internal/service/models/history"
	"github.com/denteo/labflow/internal/service/models/order"
	"github.com/denteo/labflow/internal/service/models/status"
	"github.com/denteo/labflow/pkg/http/middleware/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type service interface {
	ChangeStatus(ctx context.Context, orderID uuid.UUID, newStatus status.Status, actorID uuid.UUID) (history.StatusChange, error)
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Validate validates the change status request.
func (r *changeStatusRequest) Validate() error {
	return validator.New().Struct(r)
}

// ChangeStatus moves an order to a new status on behalf of the authenticated
// user. Unknown status values are rejected before anything is written.
func ChangeStatus(w http.ResponseWriter, r *http.Request, service service) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "authorization required", http.StatusUnauthorized)

		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing order id", "error", err)

		return
	}

	statusReq := changeStatusRequest{}
	if err := json.NewDecoder(r.Body).Decode(&statusReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for change status", "error", err)

		return
	}

	if err := statusReq.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for change status", "error", err)

		return
	}

	newStatus, err := status.ParseStatus(statusReq.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)

		return
	}

	entry, err := service.ChangeStatus(r.Context(), id, newStatus, claims.UserID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)

			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error changing order status", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(entry); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}
