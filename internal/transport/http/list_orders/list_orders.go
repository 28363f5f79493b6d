package listorders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/denteo/labflow/internal/service/models/order"
	"github.com/denteo/labflow/internal/service/models/status"
	"github.com/google/uuid"
	"github.com/gorilla/schema"
)

type service interface {
	GetOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error)
}

type queryOrdersRequest struct {
	Ids        []string `schema:"ids,omitempty"`
	Numbers    []string `schema:"numbers,omitempty"`
	Statuses   []string `schema:"statuses,omitempty"`
	AssignedTo []string `schema:"assignedTo,omitempty"`
	Search     string   `schema:"search,omitempty"`
	Limit      int      `schema:"limit,omitempty"`
	Offset     int      `schema:"offset,omitempty"`
}

func (q *queryOrdersRequest) ToModel() (*order.QueryOrdersModel, error) {
	ids := make([]uuid.UUID, len(q.Ids))
	for i, raw := range q.Ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}

	assigned := make([]uuid.UUID, len(q.AssignedTo))
	for i, raw := range q.AssignedTo {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		assigned[i] = id
	}

	statuses := make([]status.Status, len(q.Statuses))
	for i, raw := range q.Statuses {
		parsed, err := status.ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		statuses[i] = parsed
	}

	return &order.QueryOrdersModel{
		IDs:        ids,
		Numbers:    q.Numbers,
		Statuses:   statuses,
		AssignedTo: assigned,
		Search:     q.Search,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}, nil
}

func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &queryOrdersRequest{}
	err := decoder.Decode(query, r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request", "error", err)

		return
	}

	filter, err := query.ToModel()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error converting list orders request to filter", "error", err)

		return
	}

	orders, err := service.GetOrders(r.Context(), *filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error getting orders", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(orders); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}
