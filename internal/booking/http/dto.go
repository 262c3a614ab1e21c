package http

import (
	"time"

	"github.com/nekogravitycat/room-booking-backend/internal/booking"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/request"
	roomHttp "github.com/nekogravitycat/room-booking-backend/internal/room/http"
)

// ListBookingsRequest defines query parameters for listing the caller's bookings.
type ListBookingsRequest struct {
	request.ListParams
	Status string `form:"status" binding:"omitempty,oneof=confirmed cancelled completed"`
	When   string `form:"when" binding:"omitempty,oneof=upcoming past today"`
}

type CreateBookingRequest struct {
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	Attendees int    `json:"attendees" binding:"required"`
	Purpose   string `json:"purpose" binding:"max=500"`
}

// Slot parses the civil date and wall-clock times of the request.
func (r *CreateBookingRequest) Slot() (time.Time, booking.TimeOfDay, booking.TimeOfDay, error) {
	return parseSlot(r.Date, r.StartTime, r.EndTime)
}

type AvailabilityRequest struct {
	Date      string `form:"date" binding:"required"`
	StartTime string `form:"start_time" binding:"required"`
	EndTime   string `form:"end_time" binding:"required"`
	Attendees int    `form:"attendees" binding:"required"`
}

func parseSlot(date, start, end string) (time.Time, booking.TimeOfDay, booking.TimeOfDay, error) {
	d, err := booking.ParseDate(date)
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	s, err := booking.ParseTimeOfDay(start)
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	e, err := booking.ParseTimeOfDay(end)
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	return d, s, e, nil
}

type RoomTag struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

type BookingResponse struct {
	ID            string    `json:"id"`
	ReferenceCode string    `json:"reference_code"`
	Room          RoomTag   `json:"room"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	Attendees     int       `json:"attendees"`
	Purpose       string    `json:"purpose"`
	Status        string    `json:"status"`
	HasPass       bool      `json:"has_pass"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewBookingResponse(r *booking.Reservation) BookingResponse {
	return BookingResponse{
		ID:            r.ID,
		ReferenceCode: r.ReferenceCode,
		Room:          RoomTag{ID: r.RoomID, Name: r.RoomName, Location: r.RoomLocation},
		Date:          r.Date.Format(booking.DateLayout),
		StartTime:     r.Start.String(),
		EndTime:       r.End.String(),
		Attendees:     r.Attendees,
		Purpose:       r.Purpose,
		Status:        string(r.Status),
		HasPass:       r.ArtifactPath != "",
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// CreateBookingResponse carries a committed booking. Warning is present when
// the booking stands but post-commit work (e.g. the booking pass) failed.
type CreateBookingResponse struct {
	Booking BookingResponse `json:"booking"`
	Warning string          `json:"warning,omitempty"`
}

type AvailabilityItem struct {
	Room      roomHttp.RoomResponse `json:"room"`
	Available bool                  `json:"available"`
}

type VerifyResponse struct {
	Valid         bool   `json:"valid"`
	ReferenceCode string `json:"reference_code"`
	RoomName      string `json:"room_name"`
	RoomLocation  string `json:"room_location"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	User          string `json:"user"`
}

func NewVerifyResponse(r *booking.Reservation) VerifyResponse {
	return VerifyResponse{
		Valid:         r.Status == booking.StatusConfirmed,
		ReferenceCode: r.ReferenceCode,
		RoomName:      r.RoomName,
		RoomLocation:  r.RoomLocation,
		Date:          r.Date.Format(booking.DateLayout),
		StartTime:     r.Start.String(),
		EndTime:       r.End.String(),
		Status:        string(r.Status),
		User:          r.Username,
	}
}
