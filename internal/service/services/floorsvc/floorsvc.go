package floorsvc

import (
	"context"
	"fmt"

	"github.com/denteo/labflow/internal/dal/interfaces/istationrepo"
	"github.com/denteo/labflow/internal/dal/postgres"
	stationRepository "github.com/denteo/labflow/internal/dal/repositories/station/postgres"
	"github.com/denteo/labflow/internal/dal/uow"
	"github.com/denteo/labflow/internal/service/models/station"
	"go.opentelemetry.io/otel"
)

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	StationRepository() istationrepo.IStationRepository
}

type FloorService struct {
	stationRepo istationrepo.IStationRepository
	uowFactory  func() unitOfWork
}

type option func(*FloorService)

//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(client *postgres.Client) option {
	return func(s *FloorService) {
		s.stationRepo = stationRepository.NewPostgresStationRepository(client.Pool())
		s.uowFactory = func() unitOfWork {
			return uow.NewUnitOfWork(client)
		}
	}
}

func MustNewFloorService(opts ...option) *FloorService {
	service := &FloorService{}
	for _, opt := range opts {
		opt(service)
	}

	return service
}

// Layout returns the stations of the production floor scene in display order.
func (s *FloorService) Layout(ctx context.Context) ([]station.Station, error) {
	stations, err := s.stationRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	if stations == nil {
		stations = []station.Station{}
	}

	return stations, nil
}

// SaveLayout replaces the whole station layout in one transaction, so
// concurrent readers never observe a half-written scene.
func (s *FloorService) SaveLayout(ctx context.Context, stations []station.Station) (err error) {
	ctx, span := otel.Tracer("labflow").Start(ctx, "FloorService.SaveLayout")
	defer span.End()

	work := s.uowFactory()
	if err = work.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = work.Rollback(ctx)
		}
	}()

	if err = work.StationRepository().ReplaceAll(ctx, stations); err != nil {
		return fmt.Errorf("failed to replace stations: %w", err)
	}

	if err = work.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
