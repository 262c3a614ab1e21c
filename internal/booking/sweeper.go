package booking

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically moves confirmed bookings whose end has passed to
// completed.
type Sweeper struct {
	service  Service
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(service Service, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{service: service, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("completion sweeper started", "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("completion sweeper stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Sweeper) sweep(ctx context.Context) {
	n, err := w.service.CompleteEnded(ctx)
	if err != nil {
		w.logger.Error("completion sweep failed", "error", err)
		return
	}
	if n > 0 {
		w.logger.Info("marked ended bookings completed", "count", n)
	}
}
