package createorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/denteo/labflow/internal/service/models/order"
	"github.com/go-playground/validator/v10"
)

// service is an interface for the service layer.
type service interface {
	SubmitOrder(ctx context.Context, o order.Order) (order.Order, error)
}

// toothSpecInRequest represents a per-tooth override in an intake request.
type toothSpecInRequest struct {
	Tooth       string `json:"tooth"       validate:"required"`
	WorkType    string `json:"workType"`
	ImplantType string `json:"implantType"`
	Material    string `json:"material"`
}

// createOrderRequest represents the public intake form.
type createOrderRequest struct {
	PatientName  string               `json:"patientName"  validate:"required"`
	DentistName  string               `json:"dentistName"  validate:"required"`
	Clinic       string               `json:"clinic"       validate:"required"`
	ContactEmail string               `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone string               `json:"contactPhone"`
	Teeth        []string             `json:"teeth"        validate:"required,min=1,dive,required"`
	WorkType     string               `json:"workType"     validate:"required"`
	Material     string               `json:"material"`
	ImplantType  string               `json:"implantType"`
	Color        string               `json:"color"`
	Notes        string               `json:"notes"`
	ToothSpecs   []toothSpecInRequest `json:"toothSpecs"   validate:"omitempty,dive"`
}

// Validate validates the create order request.
func (r *createOrderRequest) Validate() error {
	return validator.New().Struct(r)
}

// toModel converts createOrderRequest to order.Order. Per-tooth overrides are
// serialized into the notes field next to the free text.
func (r *createOrderRequest) toModel() (*order.Order, error) {
	specs := make([]order.ToothSpec, len(r.ToothSpecs))
	for i, s := range r.ToothSpecs {
		specs[i] = order.ToothSpec{
			Tooth:       s.Tooth,
			WorkType:    s.WorkType,
			ImplantType: s.ImplantType,
			Material:    s.Material,
		}
	}

	notes, err := order.EncodeNotes(r.Notes, specs)
	if err != nil {
		return nil, err
	}

	return &order.Order{
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
		Notes:        notes,
	}, nil
}

// CreateOrder handles the public order intake request.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	orderReq := createOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&orderReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for create order", "error", err)

		return
	}

	if err := orderReq.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for create order", "error", err)

		return
	}

	model, err := orderReq.toModel()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error converting create order request to model", "error", err)

		return
	}

	created, err := service.SubmitOrder(r.Context(), *model)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error creating order", "error", err)

		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		slog.Error("Error sending response for create order", "error", err)
	}
}
