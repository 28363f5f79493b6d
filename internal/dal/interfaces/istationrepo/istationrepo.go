package istationrepo

import (
	"context"

	"github.com/denteo/labflow/internal/service/models/station"
)

// IStationRepository is an interface for the production floor layout
// repository.
type IStationRepository interface {
	List(ctx context.Context) ([]station.Station, error)

	// ReplaceAll swaps the whole layout; callers run it inside a
	// transaction so the floor never renders half a layout.
	ReplaceAll(ctx context.Context, stations []station.Station) error
}
