// Package event moves committed-booking events between the coordinator and
// post-commit consumers over RabbitMQ.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nekogravitycat/room-booking-backend/internal/booking"
)

const (
	DefaultQueue = "booking.committed"
	contentType  = "application/json"
	eventType    = "booking.committed"
)

var ErrMalformedEvent = errors.New("malformed committed event")

// encode wraps evt in a persistent JSON publishing.
func encode(evt booking.CommittedEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  contentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.ReservationID,
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}

func decode(body []byte) (booking.CommittedEvent, error) {
	var evt booking.CommittedEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return evt, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if evt.ReservationID == "" || evt.ReferenceCode == "" {
		return evt, fmt.Errorf("%w: missing reservation id or reference", ErrMalformedEvent)
	}
	return evt, nil
}
