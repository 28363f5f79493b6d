package order

import (
	"github.com/denteo/labflow/internal/service/models/status"
	"github.com/google/uuid"
)

// QueryOrdersModel represents filter parameters for querying orders
type QueryOrdersModel struct {
	IDs        []uuid.UUID     `json:"ids,omitempty"`
	Numbers    []string        `json:"numbers,omitempty"`
	Statuses   []status.Status `json:"statuses,omitempty"`
	AssignedTo []uuid.UUID     `json:"assignedTo,omitempty"`
	Search     string          `json:"search,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Offset     int             `json:"offset,omitempty"`
}

// UpdateOrderModel carries the editable fields of an order. Nil fields are
// left untouched.
type UpdateOrderModel struct {
	PatientName  *string  `json:"patientName,omitempty"`
	DentistName  *string  `json:"dentistName,omitempty"`
	Clinic       *string  `json:"clinic,omitempty"`
	ContactEmail *string  `json:"contactEmail,omitempty"`
	ContactPhone *string  `json:"contactPhone,omitempty"`
	Teeth        []string `json:"teeth,omitempty"`
	WorkType     *string  `json:"workType,omitempty"`
	Material     *string  `json:"material,omitempty"`
	ImplantType  *string  `json:"implantType,omitempty"`
	Color        *string  `json:"color,omitempty"`
	Notes        *string  `json:"notes,omitempty"`

	// AssignedTo applies only when AssignedToSet is true; nil then unassigns.
	AssignedTo    *uuid.UUID `json:"assignedTo,omitempty"`
	AssignedToSet bool       `json:"-"`
}
