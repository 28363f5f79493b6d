package analyticsreport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/denteo/labflow/internal/service/models/analytics"
)

type service interface {
	BuildReport(ctx context.Context, period analytics.Period) (analytics.Report, error)
}

// BuildReport returns the production report for the requested period. The
// period defaults to daily when the query parameter is absent.
func BuildReport(w http.ResponseWriter, r *http.Request, service service) {
	raw := r.URL.Query().Get("period")
	if raw == "" {
		raw = string(analytics.PeriodDaily)
	}

	period, err := analytics.ParsePeriod(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)

		return
	}

	report, err := service.BuildReport(r.Context(), period)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error building analytics report", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(report); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}
