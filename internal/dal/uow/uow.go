package uow

import (
	"context"

	"github.com/denteo/labflow/internal/dal/interfaces/ihistoryrepo"
	"github.com/denteo/labflow/internal/dal/interfaces/iorderrepo"
	"github.com/denteo/labflow/internal/dal/interfaces/ioutboxrepo"
	"github.com/denteo/labflow/internal/dal/interfaces/istationrepo"
	"github.com/denteo/labflow/internal/dal/postgres"
	historyrepo "github.com/denteo/labflow/internal/dal/repositories/history/postgres"
	orderrepo "github.com/denteo/labflow/internal/dal/repositories/order/postgres"
	outboxrepo "github.com/denteo/labflow/internal/dal/repositories/outbox/postgres"
	stationrepo "github.com/denteo/labflow/internal/dal/repositories/station/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// unitOfWork groups the repositories behind one connection. Before Begin the
// repositories run on the pool; after Begin they all share the transaction,
// so an order update, its history entry and its outbox event commit or roll
// back together.
type unitOfWork struct {
	pool        *pgxpool.Pool
	tx          pgx.Tx
	orderRepo   iorderrepo.IOrderRepository
	historyRepo ihistoryrepo.IHistoryRepository
	outboxRepo  ioutboxrepo.IOutboxRepository
	stationRepo istationrepo.IStationRepository
}

func NewUnitOfWork(client *postgres.Client) *unitOfWork {
	pool := client.Pool()

	return &unitOfWork{
		pool:        pool,
		orderRepo:   orderrepo.NewPostgresOrderRepository(pool),
		historyRepo: historyrepo.NewPostgresHistoryRepository(pool),
		outboxRepo:  outboxrepo.NewOutboxRepository(pool),
		stationRepo: stationrepo.NewPostgresStationRepository(pool),
	}
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) HistoryRepository() ihistoryrepo.IHistoryRepository {
	return u.historyRepo
}

func (u *unitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

func (u *unitOfWork) StationRepository() istationrepo.IStationRepository {
	return u.stationRepo
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.orderRepo = orderrepo.NewPostgresOrderRepository(tx)
	u.historyRepo = historyrepo.NewPostgresHistoryRepository(tx)
	u.outboxRepo = outboxrepo.NewOutboxRepository(tx)
	u.stationRepo = stationrepo.NewPostgresStationRepository(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Commit(ctx)
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Rollback(ctx)
}
