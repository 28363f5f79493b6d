package updateorder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/denteo/labflow/internal/service/models/order"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type service interface {
	UpdateOrder(ctx context.Context, id uuid.UUID, upd order.UpdateOrderModel) (order.Order, error)
}

// updateOrderRequest represents a partial order edit. Absent fields stay
// untouched. AssignedTo is raw so an explicit null, which unassigns, can be
// told apart from the field being absent.
type updateOrderRequest struct {
	PatientName  *string         `json:"patientName"`
	DentistName  *string         `json:"dentistName"`
	Clinic       *string         `json:"clinic"`
	ContactEmail *string         `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone *string         `json:"contactPhone"`
	Teeth        []string        `json:"teeth"        validate:"omitempty,min=1,dive,required"`
	WorkType     *string         `json:"workType"`
	Material     *string         `json:"material"`
	ImplantType  *string         `json:"implantType"`
	Color        *string         `json:"color"`
	Notes        *string         `json:"notes"`
	AssignedTo   json.RawMessage `json:"assignedTo"`
}

// Validate validates the update order request.
func (r *updateOrderRequest) Validate() error {
	return validator.New().Struct(r)
}

func (r *updateOrderRequest) toModel() (*order.UpdateOrderModel, error) {
	upd := &order.UpdateOrderModel{
		PatientName:  r.PatientName,
		DentistName:  r.DentistName,
		Clinic:       r.Clinic,
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,
		Teeth:        r.Teeth,
		WorkType:     r.WorkType,
		Material:     r.Material,
		ImplantType:  r.ImplantType,
		Color:        r.Color,
		Notes:        r.Notes,
	}

	if len(r.AssignedTo) > 0 {
		upd.AssignedToSet = true
		if string(r.AssignedTo) != "null" {
			var id uuid.UUID
			if err := json.Unmarshal(r.AssignedTo, &id); err != nil {
				return nil, err
			}
			upd.AssignedTo = &id
		}
	}

	return upd, nil
}

// UpdateOrder handles a partial edit of an order from the dashboard.
func UpdateOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing order id", "error", err)

		return
	}

	updateReq := updateOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for update order", "error", err)

		return
	}

	if err := updateReq.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for update order", "error", err)

		return
	}

	upd, err := updateReq.toModel()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error converting update order request to model", "error", err)

		return
	}

	updated, err := service.UpdateOrder(r.Context(), id, *upd)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)

			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error updating order", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(updated); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}
