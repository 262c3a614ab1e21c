package booking

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/nekogravitycat/room-booking-backend/internal/db"
)

type Repository interface {
	// LockRoomDate serializes bookers of one (room, date) until the
	// surrounding transaction ends. Outside a transaction it is a no-op lock.
	LockRoomDate(ctx context.Context, roomID string, date time.Time) error

	// HasConflict reports whether a confirmed reservation on (room, date)
	// overlaps [start, end).
	HasConflict(ctx context.Context, roomID string, date time.Time, start, end TimeOfDay) (bool, error)

	// Create inserts a confirmed reservation. It returns ErrReferenceCollision
	// when the reference code is already taken, leaving the transaction usable.
	Create(ctx context.Context, r *Reservation) error

	GetByID(ctx context.Context, id string) (*Reservation, error)
	GetForUpdate(ctx context.Context, id string) (*Reservation, error)
	GetByReference(ctx context.Context, code string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)
	UpdateStatus(ctx context.Context, id string, status Status) error

	// AttachArtifact records where the booking pass was stored.
	AttachArtifact(ctx context.Context, id, path string) error

	// CompleteEnded marks confirmed reservations that ended at or before
	// (today, now) as completed and returns how many changed.
	CompleteEnded(ctx context.Context, today time.Time, now TimeOfDay) (int64, error)
}

var reservationColumns = []string{
	"b.id", "b.user_id", "b.username", "b.room_id", "r.name", "r.location",
	"b.booking_date", "b.start_time", "b.end_time", "b.attendees", "b.purpose",
	"b.status", "b.reference_code", "b.artifact_path", "b.created_at", "b.updated_at",
}

type pgxRepository struct {
	db db.DBTX
}

func NewPgxRepository(conn db.DBTX) Repository {
	return &pgxRepository{db: conn}
}

func (r *pgxRepository) LockRoomDate(ctx context.Context, roomID string, date time.Time) error {
	key := roomID + "|" + date.Format(DateLayout)
	if _, err := r.db.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))", key); err != nil {
		return db.Classify(err, "lock room date")
	}
	return nil
}

func (r *pgxRepository) HasConflict(ctx context.Context, roomID string, date time.Time, start, end TimeOfDay) (bool, error) {
	// Half-open intervals overlap iff each starts before the other ends.
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	subQuery := psql.Select("1").
		From("public.bookings").
		Where(squirrel.Eq{"room_id": roomID}).
		Where(squirrel.Eq{"booking_date": date}).
		Where(squirrel.Eq{"status": StatusConfirmed}).
		Where(squirrel.Lt{"start_time": end}).
		Where(squirrel.Gt{"end_time": start})

	sql, args, err := subQuery.ToSql()
	if err != nil {
		return false, db.Classify(err, "build check conflict query")
	}

	var exists bool
	if err := r.db.QueryRow(ctx, "SELECT EXISTS ("+sql+")", args...).Scan(&exists); err != nil {
		return false, db.Classify(err, "check conflict")
	}
	return exists, nil
}

func (r *pgxRepository) Create(ctx context.Context, res *Reservation) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.bookings").
		Columns(
			"user_id", "username", "room_id", "booking_date", "start_time", "end_time",
			"attendees", "purpose", "status", "reference_code",
		).
		Values(
			res.UserID, res.Username, res.RoomID, res.Date, res.Start, res.End,
			res.Attendees, res.Purpose, res.Status, res.ReferenceCode,
		).
		Suffix("ON CONFLICT (reference_code) DO NOTHING RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return db.Classify(err, "build create booking query")
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrReferenceCollision
		}
		return db.Classify(err, "create booking")
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	return r.getOne(ctx, squirrel.Eq{"b.id": id}, "", "get booking")
}

func (r *pgxRepository) GetForUpdate(ctx context.Context, id string) (*Reservation, error) {
	return r.getOne(ctx, squirrel.Eq{"b.id": id}, "FOR UPDATE OF b", "get booking for update")
}

func (r *pgxRepository) GetByReference(ctx context.Context, code string) (*Reservation, error) {
	return r.getOne(ctx, squirrel.Eq{"b.reference_code": code}, "", "get booking by reference")
}

func (r *pgxRepository) getOne(ctx context.Context, where squirrel.Sqlizer, suffix, op string) (*Reservation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(reservationColumns...).
		From("public.bookings b").
		Join("public.rooms r ON b.room_id = r.id").
		Where(where)
	if suffix != "" {
		query = query.Suffix(suffix)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, db.Classify(err, "build "+op+" query")
	}

	res, err := scanReservation(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, db.Classify(err, op)
	}
	return res, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	cols := append(append([]string{}, reservationColumns...), "count(*) OVER() AS total_count")
	query := psql.Select(cols...).
		From("public.bookings b").
		Join("public.rooms r ON b.room_id = r.id")

	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"b.user_id": filter.UserID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status": filter.Status})
	}

	// Upcoming bookings read best soonest first; everything else newest first.
	order := []string{"b.booking_date DESC", "b.start_time DESC"}
	switch filter.When {
	case WhenUpcoming:
		query = query.Where(squirrel.GtOrEq{"b.booking_date": filter.Today})
		order = []string{"b.booking_date ASC", "b.start_time ASC"}
	case WhenPast:
		query = query.Where(squirrel.Lt{"b.booking_date": filter.Today})
	case WhenToday:
		query = query.Where(squirrel.Eq{"b.booking_date": filter.Today})
		order = []string{"b.start_time ASC"}
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
		OrderBy(append(order, "b.id ASC")...).
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, db.Classify(err, "build list bookings query")
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, db.Classify(err, "list bookings")
	}
	defer rows.Close()

	var result []*Reservation
	var total int
	for rows.Next() {
		var res Reservation
		var artifact *string
		if err := rows.Scan(
			&res.ID, &res.UserID, &res.Username, &res.RoomID, &res.RoomName, &res.RoomLocation,
			&res.Date, &res.Start, &res.End, &res.Attendees, &res.Purpose,
			&res.Status, &res.ReferenceCode, &artifact, &res.CreatedAt, &res.UpdatedAt, &total,
		); err != nil {
			return nil, 0, db.Classify(err, "scan booking")
		}
		if artifact != nil {
			res.ArtifactPath = *artifact
		}
		result = append(result, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.Classify(err, "list bookings")
	}

	return result, total, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("status", status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return db.Classify(err, "build update booking status query")
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return db.Classify(err, "update booking status")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) AttachArtifact(ctx context.Context, id, path string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("artifact_path", path).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return db.Classify(err, "build attach artifact query")
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return db.Classify(err, "attach artifact")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) CompleteEnded(ctx context.Context, today time.Time, now TimeOfDay) (int64, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("status", StatusCompleted).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"status": StatusConfirmed}).
		Where(squirrel.Or{
			squirrel.Lt{"booking_date": today},
			squirrel.And{
				squirrel.Eq{"booking_date": today},
				squirrel.LtOrEq{"end_time": now},
			},
		}).
		ToSql()
	if err != nil {
		return 0, db.Classify(err, "build complete ended query")
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, db.Classify(err, "complete ended bookings")
	}
	return ct.RowsAffected(), nil
}

func scanReservation(row pgx.Row) (*Reservation, error) {
	var res Reservation
	var artifact *string
	if err := row.Scan(
		&res.ID, &res.UserID, &res.Username, &res.RoomID, &res.RoomName, &res.RoomLocation,
		&res.Date, &res.Start, &res.End, &res.Attendees, &res.Purpose,
		&res.Status, &res.ReferenceCode, &artifact, &res.CreatedAt, &res.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if artifact != nil {
		res.ArtifactPath = *artifact
	}
	return &res, nil
}
