package http

import (
	"time"

	"github.com/nekogravitycat/room-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/room-booking-backend/internal/room"
)

type RoomResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Capacity  int       `json:"capacity"`
	Amenities []string  `json:"amenities"`
	CreatedAt time.Time `json:"created_at"`
}

func NewResponse(r *room.Room) RoomResponse {
	return RoomResponse{
		ID:        r.ID,
		Name:      r.Name,
		Location:  r.Location,
		Capacity:  r.Capacity,
		Amenities: r.Amenities,
		CreatedAt: r.CreatedAt,
	}
}

type ListRoomsRequest struct {
	request.ListParams
	MinCapacity int `form:"min_capacity" binding:"omitempty,min=1"`
}
