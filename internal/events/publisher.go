// Package events delivers appointment events to the message broker and to
// connected clients.
package events

import (
	"context"
	"errors"

	"medbook/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, event domain.AppointmentEvent) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, domain.AppointmentEvent) error { return nil }

// Fanout hands every event to all publishers and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event domain.AppointmentEvent) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
