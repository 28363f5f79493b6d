package floorlayout

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/denteo/labflow/internal/service/models/station"
	"github.com/denteo/labflow/internal/service/models/status"
	"github.com/go-playground/validator/v10"
)

type service interface {
	Layout(ctx context.Context) ([]station.Station, error)
	SaveLayout(ctx context.Context, stations []station.Station) error
}

type stationInRequest struct {
	ID        string  `json:"id"     validate:"required"`
	Label     string  `json:"label"  validate:"required"`
	Status    string  `json:"status" validate:"required"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	SortOrder int     `json:"sortOrder"`
}

type saveLayoutRequest struct {
	Stations []stationInRequest `json:"stations" validate:"required,min=1,dive"`
}

// Validate validates the save layout request.
func (r *saveLayoutRequest) Validate() error {
	return validator.New().Struct(r)
}

func (r *saveLayoutRequest) toModel() ([]station.Station, error) {
	stations := make([]station.Station, len(r.Stations))
	for i, s := range r.Stations {
		parsed, err := status.ParseStatus(s.Status)
		if err != nil {
			return nil, err
		}
		stations[i] = station.Station{
			ID:        s.ID,
			Label:     s.Label,
			Status:    parsed,
			X:         s.X,
			Y:         s.Y,
			Z:         s.Z,
			SortOrder: s.SortOrder,
		}
	}

	return stations, nil
}

// GetLayout returns the production floor scene configuration.
func GetLayout(w http.ResponseWriter, r *http.Request, service service) {
	stations, err := service.Layout(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error getting floor layout", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(map[string][]station.Station{"stations": stations}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}

// SaveLayout replaces the production floor scene configuration.
func SaveLayout(w http.ResponseWriter, r *http.Request, service service) {
	layoutReq := saveLayoutRequest{}
	if err := json.NewDecoder(r.Body).Decode(&layoutReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for save layout", "error", err)

		return
	}

	if err := layoutReq.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for save layout", "error", err)

		return
	}

	stations, err := layoutReq.toModel()
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)

		return
	}

	if err := service.SaveLayout(r.Context(), stations); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error saving floor layout", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(map[string][]station.Station{"stations": stations}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}
