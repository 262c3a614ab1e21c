package event

import (
	"context"
	"log/slog"

	"github.com/nekogravitycat/room-booking-backend/internal/booking"
)

// LogNotifier records every committed booking as a structured audit line.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "booking-audit")}
}

func (n *LogNotifier) Notify(ctx context.Context, evt booking.CommittedEvent) error {
	n.logger.InfoContext(ctx, "reservation confirmed",
		"reservation_id", evt.ReservationID,
		"reference", evt.ReferenceCode,
		"room", evt.RoomName,
		"date", evt.Date,
		"start_time", evt.StartTime,
		"end_time", evt.EndTime,
		"user_id", evt.UserID)
	return nil
}
