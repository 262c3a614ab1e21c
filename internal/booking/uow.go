package booking

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/nekogravitycat/room-booking-backend/internal/db"
	"github.com/nekogravitycat/room-booking-backend/internal/room"
)

// Catalog is the part of the room catalog the coordinator consults.
type Catalog interface {
	FindEligible(ctx context.Context, minCapacity int) ([]*room.Room, error)
}

// Tx exposes the catalog and ledger bound to one transaction.
type Tx interface {
	Rooms() Catalog
	Reservations() Repository
}

// UnitOfWork runs fn atomically. fn's writes commit together when it
// returns nil and are discarded otherwise. fn may be invoked more than
// once when the storage engine asks for a retry.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type pgUnitOfWork struct {
	runner *db.TxRunner
}

func NewPgUnitOfWork(runner *db.TxRunner) UnitOfWork {
	return &pgUnitOfWork{runner: runner}
}

func (u *pgUnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return u.runner.Within(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &pgTx{
			rooms:        room.NewLockingRepository(tx),
			reservations: NewPgxRepository(tx),
		})
	})
}

type pgTx struct {
	rooms        Catalog
	reservations Repository
}

func (t *pgTx) Rooms() Catalog           { return t.rooms }
func (t *pgTx) Reservations() Repository { return t.reservations }
