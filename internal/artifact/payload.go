// Package artifact renders booking passes: PNG QR codes encoding a
// verification payload for a committed booking.
package artifact

import (
	"encoding/json"
	"strings"

	"github.com/nekogravitycat/room-booking-backend/internal/booking"
)

const payloadType = "booking_verification"

// Payload is the JSON document encoded in a booking pass.
type Payload struct {
	Type             string `json:"type"`
	BookingReference string `json:"booking_reference"`
	RoomName         string `json:"room_name"`
	BookingDate      string `json:"booking_date"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	User             string `json:"user"`
	VerifyURL        string `json:"verify_url"`
}

// NewPayload builds the pass payload for evt. baseURL is the public origin
// serving /v1/verify.
func NewPayload(evt booking.CommittedEvent, baseURL string) Payload {
	return Payload{
		Type:             payloadType,
		BookingReference: evt.ReferenceCode,
		RoomName:         evt.RoomName,
		BookingDate:      evt.Date,
		StartTime:        evt.StartTime,
		EndTime:          evt.EndTime,
		User:             evt.Username,
		VerifyURL:        strings.TrimRight(baseURL, "/") + "/v1/verify/" + evt.ReferenceCode,
	}
}

func (p Payload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
