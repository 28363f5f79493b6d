package station

import (
	"github.com/denteo/labflow/internal/service/models/status"
)

// Station represents one station of the production floor scene. Orders are
// shown at the station whose status matches theirs; the position is the
// station's spot in the 3D viewport.
type Station struct {
	ID        string        `json:"id"`
	Label     string        `json:"label"`
	Status    status.Status `json:"status"`
	X         float64       `json:"x"`
	Y         float64       `json:"y"`
	Z         float64       `json:"z"`
	SortOrder int           `json:"sortOrder"`
}
