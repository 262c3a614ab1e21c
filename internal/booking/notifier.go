package booking

import (
	"context"
	"errors"
)

// Notifier receives committed-booking events. It runs after commit, so a
// failure never undoes the booking.
type Notifier interface {
	Notify(ctx context.Context, evt CommittedEvent) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, evt CommittedEvent) error

func (f NotifierFunc) Notify(ctx context.Context, evt CommittedEvent) error {
	return f(ctx, evt)
}

// Fanout delivers every event to all notifiers and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, evt CommittedEvent) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
