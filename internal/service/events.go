package service

import (
	"context"
	"time"

	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/logger"
)

const (
	EventConfigInitialized     = "config.initialized"
	EventConfigUpdated         = "config.updated"
	EventBookingPaymentCreated = "booking_payment.created"
	EventBookingPaymentSettled = "booking_payment.settled"
)

// Event is published after a unit of work commits.
type Event struct {
	Type    string
	At      time.Time
	Config  *model.Config
	Booking *BookingPaymentRecord
}

type Emitter interface {
	Emit(ctx context.Context, evt Event)
}

type NoopEmitter struct{}

func (NoopEmitter) Emit(context.Context, Event) {}

// MultiEmitter fans an event out to every emitter in order.
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(ctx context.Context, evt Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(ctx, evt)
		}
	}
}

// LogEmitter writes events to the structured log.
type LogEmitter struct{}

func (LogEmitter) Emit(_ context.Context, evt Event) {
	args := []any{"event", evt.Type, "at", evt.At}
	if evt.Booking != nil {
		args = append(args,
			"address", evt.Booking.Address.String(),
			"payer", evt.Booking.Payer.String(),
			"token_mint", evt.Booking.TokenMint.String(),
			"status", evt.Booking.Status.String(),
		)
	}
	logger.Debug("Event emitted", args...)
}

func newEvent(typ string) Event {
	return Event{Type: typ, At: time.Now().UTC()}
}
