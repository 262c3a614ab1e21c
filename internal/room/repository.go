package room

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/nekogravitycat/room-booking-backend/internal/db"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Room, error)
	List(ctx context.Context, filter Filter) ([]*Room, int, error)

	// FindEligible returns active rooms with capacity >= minCapacity,
	// smallest first. Ties are broken by id so the order is total.
	FindEligible(ctx context.Context, minCapacity int) ([]*Room, error)
}

var roomColumns = []string{"id", "name", "location", "capacity", "amenities", "is_active", "created_at"}

type pgxRepository struct {
	db db.DBTX
	// lockRows share-locks selected rows until the surrounding transaction ends.
	lockRows bool
}

func NewPgxRepository(conn db.DBTX) Repository {
	return &pgxRepository{db: conn}
}

// NewLockingRepository returns a repository bound to a transaction. Rows
// read by FindEligible stay share-locked until it ends, so a candidate
// room cannot be deactivated or shrunk while a booking is decided.
func NewLockingRepository(tx db.DBTX) Repository {
	return &pgxRepository{db: tx, lockRows: true}
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Room, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(roomColumns...).
		From("public.rooms").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, db.Classify(err, "build get room query")
	}

	rm, err := scanRoom(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, db.Classify(err, "get room")
	}
	return rm, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Room, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	cols := append(append([]string{}, roomColumns...), "count(*) OVER() AS total_count")
	query := psql.Select(cols...).
		From("public.rooms").
		Where(squirrel.Eq{"is_active": true})

	if filter.MinCapacity > 0 {
		query = query.Where(squirrel.GtOrEq{"capacity": filter.MinCapacity})
	}

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	sql, args, err := query.
		OrderBy("capacity ASC", "id ASC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, db.Classify(err, "build list rooms query")
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, db.Classify(err, "list rooms")
	}
	defer rows.Close()

	var result []*Room
	var total int
	for rows.Next() {
		var rm Room
		if err := rows.Scan(
			&rm.ID, &rm.Name, &rm.Location, &rm.Capacity, &rm.Amenities, &rm.IsActive, &rm.CreatedAt, &total,
		); err != nil {
			return nil, 0, db.Classify(err, "scan room")
		}
		if rm.Amenities == nil {
			rm.Amenities = []string{}
		}
		result = append(result, &rm)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.Classify(err, "list rooms")
	}

	return result, total, nil
}

func (r *pgxRepository) FindEligible(ctx context.Context, minCapacity int) ([]*Room, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(roomColumns...).
		From("public.rooms").
		Where(squirrel.Eq{"is_active": true}).
		Where(squirrel.GtOrEq{"capacity": minCapacity}).
		OrderBy("capacity ASC", "id ASC")
	if r.lockRows {
		query = query.Suffix("FOR SHARE")
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, db.Classify(err, "build eligible rooms query")
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, db.Classify(err, "find eligible rooms")
	}
	defer rows.Close()

	var result []*Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, db.Classify(err, "scan eligible room")
		}
		result = append(result, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err, "find eligible rooms")
	}
	return result, nil
}

func scanRoom(row pgx.Row) (*Room, error) {
	var rm Room
	if err := row.Scan(&rm.ID, &rm.Name, &rm.Location, &rm.Capacity, &rm.Amenities, &rm.IsActive, &rm.CreatedAt); err != nil {
		return nil, err
	}
	if rm.Amenities == nil {
		rm.Amenities = []string{}
	}
	return &rm, nil
}
