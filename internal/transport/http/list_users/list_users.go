package listusers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/denteo/labflow/internal/service/models/user"
)

type service interface {
	ListUsers(ctx context.Context) ([]user.User, error)
}

// ListUsers returns the lab staff for assignment dropdowns and report labels.
func ListUsers(w http.ResponseWriter, r *http.Request, service service) {
	users, err := service.ListUsers(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error listing users", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(users); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}
