package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/denteo/labflow/internal/service/models/status"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrInvalidAttachmentKind = errors.New("invalid attachment kind")
)

// Order represents a prosthesis order submitted by a dentist.
type Order struct {
	ID           uuid.UUID     `json:"id"`
	Number       string        `json:"number"`
	PatientName  string        `json:"patientName"`
	DentistName  string        `json:"dentistName"`
	Clinic       string        `json:"clinic"`
	ContactEmail string        `json:"contactEmail"`
	ContactPhone string        `json:"contactPhone"`
	Teeth        []string      `json:"teeth"`
	WorkType     string        `json:"workType"`
	Material     string        `json:"material"`
	ImplantType  string        `json:"implantType"`
	Color        string        `json:"color"`
	Notes        string        `json:"notes"`
	Status       status.Status `json:"status"`
	AssignedTo   *uuid.UUID    `json:"assignedTo"`
	PhotoPath    *string       `json:"photoPath"`
	ScanFilePath *string       `json:"scanFilePath"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// ToothSpec carries per-tooth overrides of the order-level work type,
// implant type and material.
type ToothSpec struct {
	Tooth       string `json:"tooth"`
	WorkType    string `json:"workType,omitempty"`
	ImplantType string `json:"implantType,omitempty"`
	Material    string `json:"material,omitempty"`
}

// EncodeNotes serializes per-tooth overrides into the free-text notes field,
// keeping whatever the dentist wrote above the structured block.
func EncodeNotes(freeText string, specs []ToothSpec) (string, error) {
	if len(specs) == 0 {
		return freeText, nil
	}

	raw, err := json.Marshal(specs)
	if err != nil {
		return "", fmt.Errorf("failed to encode tooth specs: %w", err)
	}

	if freeText == "" {
		return string(raw), nil
	}

	return freeText + "\n" + string(raw), nil
}

// AttachmentKind identifies one of the two attachment slots of an order.
type AttachmentKind string

const (
	AttachmentPhoto AttachmentKind = "photo"
	AttachmentScan  AttachmentKind = "scan"
)

// ParseAttachmentKind validates a raw attachment kind.
func ParseAttachmentKind(s string) (AttachmentKind, error) {
	switch AttachmentKind(strings.ToLower(s)) {
	case AttachmentPhoto:
		return AttachmentPhoto, nil
	case AttachmentScan:
		return AttachmentScan, nil
	default:
		return "", ErrInvalidAttachmentKind
	}
}
