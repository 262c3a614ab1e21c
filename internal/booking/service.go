package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	cr "github.com/cockroachdb/errors"
	"github.com/nekogravitycat/room-booking-backend/internal/db"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/clock"
	"github.com/nekogravitycat/room-booking-backend/internal/room"
)

// BookRequest describes what the caller wants; the coordinator picks the room.
type BookRequest struct {
	UserID    string
	Username  string
	Date      time.Time
	Start     TimeOfDay
	End       TimeOfDay
	Attendees int
	Purpose   string
}

// BookResult is a committed booking. Warning is set when post-commit work
// failed; the booking itself still stands.
type BookResult struct {
	Reservation *Reservation
	Warning     error
}

// AvailabilityQuery asks which eligible rooms are free for an interval.
type AvailabilityQuery struct {
	Date      time.Time
	Start     TimeOfDay
	End       TimeOfDay
	Attendees int
}

type RoomAvailability struct {
	Room      *room.Room
	Available bool
}

type Options struct {
	MaxAttendees      int
	ReferenceAttempts int
	StorageTimeout    time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttendees < 1 {
		o.MaxAttendees = 50
	}
	if o.ReferenceAttempts < 1 {
		o.ReferenceAttempts = 5
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = 5 * time.Second
	}
	return o
}

type Service interface {
	Book(ctx context.Context, req BookRequest) (*BookResult, error)
	Cancel(ctx context.Context, userID, reservationID string) error
	Get(ctx context.Context, userID, reservationID string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)
	Verify(ctx context.Context, reference string) (*Reservation, error)
	Availability(ctx context.Context, q AvailabilityQuery) ([]RoomAvailability, error)
	CompleteEnded(ctx context.Context) (int64, error)
}

type service struct {
	uow      UnitOfWork
	repo     Repository
	catalog  Catalog
	notifier Notifier
	refs     *ReferenceGenerator
	clock    clock.Clock
	opts     Options
	logger   *slog.Logger
}

func NewService(
	uow UnitOfWork,
	repo Repository,
	catalog Catalog,
	notifier Notifier,
	refs *ReferenceGenerator,
	clk clock.Clock,
	opts Options,
	logger *slog.Logger,
) Service {
	if logger == nil {
		logger = slog.Default()
	}
	if refs == nil {
		refs = NewReferenceGenerator()
	}
	return &service{
		uow:      uow,
		repo:     repo,
		catalog:  catalog,
		notifier: notifier,
		refs:     refs,
		clock:    clk,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

func (s *service) today() time.Time {
	return DateOf(s.clock.Now())
}

func (s *service) validateSlot(date time.Time, start, end TimeOfDay, attendees int) error {
	if date.Before(s.today()) {
		return ErrDateInPast
	}
	if start >= end {
		return ErrInvalidTimeRange
	}
	if attendees < 1 || attendees > s.opts.MaxAttendees {
		return ErrInvalidAttendees
	}
	return nil
}

func (s *service) Book(ctx context.Context, req BookRequest) (*BookResult, error) {
	// 1. Validate before touching storage
	if req.UserID == "" {
		return nil, ErrMissingIdentity
	}
	if err := s.validateSlot(req.Date, req.Start, req.End, req.Attendees); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	// 2. Select a room and insert the reservation atomically
	var booked *Reservation
	err := s.uow.Within(txCtx, func(ctx context.Context, tx Tx) error {
		booked = nil

		candidates, err := tx.Rooms().FindEligible(ctx, req.Attendees)
		if err != nil {
			return err
		}

		ledger := tx.Reservations()
		var chosen *room.Room
		for _, rm := range candidates {
			if err := ledger.LockRoomDate(ctx, rm.ID, req.Date); err != nil {
				return err
			}
			conflict, err := ledger.HasConflict(ctx, rm.ID, req.Date, req.Start, req.End)
			if err != nil {
				return err
			}
			if !conflict {
				chosen = rm
				break
			}
		}
		if chosen == nil {
			return ErrNoAvailableRoom
		}

		res := &Reservation{
			UserID:       req.UserID,
			Username:     req.Username,
			RoomID:       chosen.ID,
			RoomName:     chosen.Name,
			RoomLocation: chosen.Location,
			Date:         req.Date,
			Start:        req.Start,
			End:          req.End,
			Attendees:    req.Attendees,
			Purpose:      req.Purpose,
			Status:       StatusConfirmed,
		}
		if err := s.insertWithReference(ctx, ledger, res); err != nil {
			return err
		}
		booked = res
		return nil
	})
	if err != nil {
		return nil, s.classify(err, "book")
	}

	s.logger.InfoContext(ctx, "booking committed",
		"reservation_id", booked.ID,
		"reference", booked.ReferenceCode,
		"room_id", booked.RoomID,
		"user_id", booked.UserID)

	// 3. Post-commit notification
	result := &BookResult{Reservation: booked}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, NewCommittedEvent(booked)); err != nil {
			s.logger.WarnContext(ctx, "post-commit notification failed",
				"reservation_id", booked.ID,
				"error", err)
			result.Warning = err
		}
	}
	return result, nil
}

func (s *service) insertWithReference(ctx context.Context, ledger Repository, res *Reservation) error {
	day := s.today()
	for attempt := 1; attempt <= s.opts.ReferenceAttempts; attempt++ {
		code, err := s.refs.Next(day)
		if err != nil {
			return apperror.Wrap(err, db.ErrInternal)
		}
		res.ReferenceCode = code

		err = ledger.Create(ctx, res)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrReferenceCollision) {
			return err
		}
		s.logger.WarnContext(ctx, "reference code collision", "attempt", attempt, "reference", code)
	}
	return apperror.Wrap(
		fmt.Errorf("%w: %d attempts exhausted", ErrReferenceCollision, s.opts.ReferenceAttempts),
		db.ErrInternal,
	)
}

func (s *service) Cancel(ctx context.Context, userID, reservationID string) error {
	if userID == "" {
		return ErrMissingIdentity
	}

	txCtx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	today := s.today()
	err := s.uow.Within(txCtx, func(ctx context.Context, tx Tx) error {
		ledger := tx.Reservations()
		res, err := ledger.GetForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		// Other users' bookings are indistinguishable from missing ones.
		if res.UserID != userID {
			return ErrNotFound
		}
		if res.Status != StatusConfirmed || res.Date.Before(today) {
			return ErrNotCancellable
		}
		return ledger.UpdateStatus(ctx, reservationID, StatusCancelled)
	})
	if err != nil {
		return s.classify(err, "cancel")
	}

	s.logger.InfoContext(ctx, "booking cancelled", "reservation_id", reservationID, "user_id", userID)
	return nil
}

func (s *service) Get(ctx context.Context, userID, reservationID string) (*Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	res, err := s.repo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, s.classify(err, "get booking")
	}
	if res.UserID != userID {
		return nil, ErrNotFound
	}
	return res, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	if filter.UserID == "" {
		return nil, 0, ErrMissingIdentity
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	switch filter.When {
	case WhenAny, WhenUpcoming, WhenPast, WhenToday:
	default:
		return nil, 0, ErrInvalidWhen
	}
	filter.Today = s.today()

	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, s.classify(err, "list bookings")
	}
	return items, total, nil
}

func (s *service) Verify(ctx context.Context, reference string) (*Reservation, error) {
	if !ValidReference(reference) {
		return nil, ErrInvalidReference
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	res, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return nil, s.classify(err, "verify booking")
	}
	return res, nil
}

// Availability is a read-only preview. Book re-checks under lock, so a room
// reported free here may still be taken by the time the caller books.
func (s *service) Availability(ctx context.Context, q AvailabilityQuery) ([]RoomAvailability, error) {
	if err := s.validateSlot(q.Date, q.Start, q.End, q.Attendees); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	rooms, err := s.catalog.FindEligible(ctx, q.Attendees)
	if err != nil {
		return nil, s.classify(err, "availability")
	}

	result := make([]RoomAvailability, 0, len(rooms))
	for _, rm := range rooms {
		conflict, err := s.repo.HasConflict(ctx, rm.ID, q.Date, q.Start, q.End)
		if err != nil {
			return nil, s.classify(err, "availability")
		}
		result = append(result, RoomAvailability{Room: rm, Available: !conflict})
	}
	return result, nil
}

func (s *service) CompleteEnded(ctx context.Context) (int64, error) {
	now := s.clock.Now()

	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	n, err := s.repo.CompleteEnded(ctx, DateOf(now), TimeOfDayOf(now))
	if err != nil {
		return 0, s.classify(err, "complete ended bookings")
	}
	return n, nil
}

// classify maps any failure onto the public error vocabulary. Internal
// detail stays on the wrapped cause for logging.
func (s *service) classify(err error, op string) error {
	if cr.Is(err, db.ErrMaxRetriesExceeded) {
		return apperror.Wrap(fmt.Errorf("%s: %w", op, err), db.ErrStorageUnavailable)
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Code >= 500 {
			s.logger.Error("storage operation failed", "op", op, "reason", appErr.Reason, "error", err)
		}
		return appErr
	}
	classified := db.Classify(err, op)
	s.logger.Error("storage operation failed", "op", op, "error", err)
	return classified
}
