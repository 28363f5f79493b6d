package exportreport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"
)

type service interface {
	ExportOrders(ctx context.Context) (*excelize.File, error)
}

// ExportOrders streams the full order list as an XLSX workbook.
func ExportOrders(w http.ResponseWriter, r *http.Request, service service) {
	workbook, err := service.ExportOrders(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error exporting orders", "error", err)

		return
	}

	filename := "orders-" + time.Now().Format("2006-01-02") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")

	if err := workbook.Write(w); err != nil {
		slog.Error("Error streaming workbook", "error", err)
	}
}
