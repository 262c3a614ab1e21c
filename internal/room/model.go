package room

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/room-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, apperror.ReasonNotFound, "room not found")
	ErrInvalidCapacity = apperror.New(http.StatusBadRequest, apperror.ReasonInvalidInput, "capacity must be a positive integer")
)

// Room represents a bookable room (e.g., Study Room 2, Library Auditorium).
type Room struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	Amenities []string
	IsActive  bool
	CreatedAt time.Time
}

// Filter defines parameters for listing rooms.
type Filter struct {
	MinCapacity int
	Page        int
	PageSize    int
}
