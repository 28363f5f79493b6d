package analyticssvc

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/denteo/labflow/internal/dal/interfaces/ihistoryrepo"
	"github.com/denteo/labflow/internal/dal/interfaces/iorderrepo"
	"github.com/denteo/labflow/internal/dal/interfaces/iuserrepo"
	"github.com/denteo/labflow/internal/dal/postgres"
	historyRepository "github.com/denteo/labflow/internal/dal/repositories/history/postgres"
	orderRepository "github.com/denteo/labflow/internal/dal/repositories/order/postgres"
	userRepository "github.com/denteo/labflow/internal/dal/repositories/user/postgres"
	"github.com/denteo/labflow/internal/service/models/analytics"
	"github.com/denteo/labflow/internal/service/models/history"
	"github.com/denteo/labflow/internal/service/models/order"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
)

type AnalyticsService struct {
	orderRepo   iorderrepo.IOrderRepository
	historyRepo ihistoryrepo.IHistoryRepository
	userRepo    iuserrepo.IUserRepository
	nowFunc     func() time.Time
}

type option func(*AnalyticsService)

//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(client *postgres.Client) option {
	return func(s *AnalyticsService) {
		s.orderRepo = orderRepository.NewPostgresOrderRepository(client.Pool())
		s.historyRepo = historyRepository.NewPostgresHistoryRepository(client.Pool())
		s.userRepo = userRepository.NewPostgresUserRepository(client.Pool())
	}
}

func MustNewAnalyticsService(opts ...option) *AnalyticsService {
	service := &AnalyticsService{
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}

	return service
}

// BuildReport assembles the production report for the requested period from
// the full order set and the append-only status history.
func (s *AnalyticsService) BuildReport(ctx context.Context, period analytics.Period) (analytics.Report, error) {
	ctx, span := otel.Tracer("labflow").Start(ctx, "AnalyticsService.BuildReport")
	defer span.End()

	orders, err := s.orderRepo.Query(ctx, &order.QueryOrdersModel{})
	if err != nil {
		return analytics.Report{}, fmt.Errorf("failed to query orders: %w", err)
	}

	entries, err := s.historyRepo.ListAll(ctx)
	if err != nil {
		return analytics.Report{}, fmt.Errorf("failed to list status history: %w", err)
	}

	names, err := s.userDisplayNames(ctx)
	if err != nil {
		return analytics.Report{}, err
	}

	return analytics.BuildReport(orders, entries, names, period, s.nowFunc()), nil
}

func (s *AnalyticsService) userDisplayNames(ctx context.Context) (map[uuid.UUID]string, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName
	}

	return names, nil
}

var exportHeaders = []string{
	"Número", "Paciente", "Dentista", "Clínica", "Tipo de trabalho", "Material",
	"Status", "Criado em", "Concluído em", "Tempo de produção",
}

// ExportOrders renders the full order list as an XLSX workbook, one row per
// order newest first, with the production duration taken from the status
// history when the order has been completed.
func (s *AnalyticsService) ExportOrders(ctx context.Context) (*excelize.File, error) {
	ctx, span := otel.Tracer("labflow").Start(ctx, "AnalyticsService.ExportOrders")
	defer span.End()

	orders, err := s.orderRepo.Query(ctx, &order.QueryOrdersModel{})
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	entries, err := s.historyRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}

	byOrder := make(map[uuid.UUID][]history.StatusChange)
	for _, entry := range entries {
		byOrder[entry.OrderID] = append(byOrder[entry.OrderID], entry)
	}
	for id := range byOrder {
		chain := byOrder[id]
		sort.Slice(chain, func(i, j int) bool {
			if chain[i].ChangedAt.Equal(chain[j].ChangedAt) {
				return chain[i].ID < chain[j].ID
			}
			return chain[i].ChangedAt.Before(chain[j].ChangedAt)
		})
		byOrder[id] = chain
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	styleHeader, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#3b82f6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, h := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header cell: %w", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, styleHeader); err != nil {
			return nil, fmt.Errorf("failed to style header cell: %w", err)
		}
	}

	for row, ord := range orders {
		chain := byOrder[ord.ID]
		completedAt := history.CompletedAt(chain)
		completed := "-"
		if completedAt != nil {
			completed = completedAt.Format("02/01/2006 15:04")
		}

		values := []any{
			ord.Number,
			ord.PatientName,
			ord.DentistName,
			ord.Clinic,
			ord.WorkType,
			ord.Material,
			ord.Status.Label(),
			ord.CreatedAt.Format("02/01/2006 15:04"),
			completed,
			history.FormatDuration(history.TotalProductionSeconds(chain)),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	if err := f.SetColWidth(sheet, "A", "J", 22); err != nil {
		return nil, fmt.Errorf("failed to set column widths: %w", err)
	}

	return f, nil
}
