package booking

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/apperror"
)

var (
	ErrDateInPast       = apperror.New(http.StatusBadRequest, apperror.ReasonInvalidInput, "booking date cannot be in the past")
	ErrInvalidTimeRange = apperror.New(http.StatusBadRequest, apperror.ReasonInvalidInput, "start time must be before end time")
	ErrInvalidAttendees = apperror.New(http.StatusBadRequest, apperror.ReasonInvalidInput, "attendee count is out of range")
	ErrInvalidDate      = apperror.New(http.StatusBadRequest, apperror.ReasonInvalidInput, "date must be formatted as YYYY-MM-DD")
	ErrInvalidTime      = apperror.New(http.StatusBadRequest, apperror.ReasonInvalidInput, "time must be formatted as HH:MM")
	ErrInvalidStatus    = apperror.New(http.StatusBadRequest, apperror.ReasonInvalidInput, "invalid booking status")
	ErrInvalidWhen      = apperror.New(http.StatusBadRequest, apperror.ReasonInvalidInput, "when must be one of upcoming, past, today")
	ErrInvalidReference = apperror.New(http.StatusBadRequest, apperror.ReasonInvalidInput, "malformed booking reference")
	ErrNoAvailableRoom  = apperror.New(http.StatusConflict, apperror.ReasonNoAvailableRoom, "no room is available for the requested time and group size")
	ErrNotFound         = apperror.New(http.StatusNotFound, apperror.ReasonNotFound, "booking not found")
	ErrNotCancellable   = apperror.New(http.StatusConflict, apperror.ReasonNotCancellable, "booking can no longer be cancelled")
	ErrArtifactNotReady = apperror.New(http.StatusNotFound, apperror.ReasonNotFound, "booking pass has not been generated yet")
	ErrMissingIdentity  = apperror.New(http.StatusUnauthorized, apperror.ReasonUnauthorized, "caller identity is required")
)

// ErrReferenceCollision reports that a generated reference code is already taken.
// It never leaves the coordinator: the code is regenerated or the booking fails
// with an internal fault.
var ErrReferenceCollision = errors.New("reference code collision")

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// When selects bookings relative to the current date.
type When string

const (
	WhenAny      When = ""
	WhenUpcoming When = "upcoming"
	WhenPast     When = "past"
	WhenToday    When = "today"
)

const DateLayout = "2006-01-02"

// Reservation is a booking of one room for an interval on one calendar day.
type Reservation struct {
	ID            string
	UserID        string
	Username      string
	RoomID        string
	RoomName      string
	RoomLocation  string
	Date          time.Time // midnight UTC of the civil date
	Start         TimeOfDay
	End           TimeOfDay
	Attendees     int
	Purpose       string
	Status        Status
	ReferenceCode string
	ArtifactPath  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Interval returns the reservation's half-open time range.
func (r *Reservation) Interval() Interval {
	return Interval{Start: r.Start, End: r.End}
}

type Filter struct {
	UserID   string
	Status   Status
	When     When
	Today    time.Time
	Page     int
	PageSize int
}

// TimeOfDay is a wall-clock time as seconds since midnight.
type TimeOfDay int

const secondsPerDay = 24 * 60 * 60

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
		}
	}
	return 0, ErrInvalidTime
}

// TimeOfDayOf returns the wall-clock time of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (t TimeOfDay) String() string {
	h, m, s := int(t)/3600, int(t)%3600/60, int(t)%60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

func (t TimeOfDay) TimeValue() (pgtype.Time, error) {
	return pgtype.Time{Microseconds: int64(t) * 1_000_000, Valid: true}, nil
}

func (t *TimeOfDay) ScanTime(v pgtype.Time) error {
	if !v.Valid {
		return fmt.Errorf("cannot scan NULL into TimeOfDay")
	}
	sec := v.Microseconds / 1_000_000
	if sec < 0 || sec >= secondsPerDay {
		return fmt.Errorf("time of day out of range: %d", v.Microseconds)
	}
	*t = TimeOfDay(sec)
	return nil
}

// ParseDate parses a civil date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// DateOf returns the civil date of t, as seen in t's location, at midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Interval is a half-open [Start, End) range of wall-clock time.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Overlaps reports whether a and b share any instant. Intervals that only
// touch at an endpoint do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// CommittedEvent is emitted once a booking transaction has committed.
type CommittedEvent struct {
	ReservationID string    `json:"reservation_id"`
	ReferenceCode string    `json:"reference_code"`
	RoomID        string    `json:"room_id"`
	RoomName      string    `json:"room_name"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	UserID        string    `json:"user_id"`
	Username      string    `json:"username"`
	CommittedAt   time.Time `json:"committed_at"`
}

// NewCommittedEvent builds the event for a freshly committed reservation.
func NewCommittedEvent(r *Reservation) CommittedEvent {
	return CommittedEvent{
		ReservationID: r.ID,
		ReferenceCode: r.ReferenceCode,
		RoomID:        r.RoomID,
		RoomName:      r.RoomName,
		Date:          r.Date.Format(DateLayout),
		StartTime:     r.Start.String(),
		EndTime:       r.End.String(),
		UserID:        r.UserID,
		Username:      r.Username,
		CommittedAt:   r.CreatedAt,
	}
}
