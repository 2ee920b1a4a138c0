package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/hanksha/camping-booking-backend/booking"
)

// Real-time channel event names.
const (
	BookingNew         = "booking:new"
	BookingUpdated     = "booking:updated"
	BookingApproved    = "booking:approved"
	BookingRejected    = "booking:rejected"
	BookingCancelled   = "booking:cancelled"
	BookingAdminUpdate = "booking:admin-update"
)

// Name maps a lifecycle event to the name users see on the real-time
// channel. Admins always get BookingAdminUpdate.
func Name(t booking.EventType) string {
	switch t {
	case booking.EventBookingCreated:
		return BookingNew
	case booking.EventBookingApproved:
		return BookingApproved
	case booking.EventBookingRejected:
		return BookingRejected
	case booking.EventBookingCancelled:
		return BookingCancelled
	default:
		return BookingUpdated
	}
}

// Message is the real-time payload. It always carries the whole booking.
type Message struct {
	Event      string          `json:"event"`
	Type       string          `json:"type"`
	Booking    booking.Booking `json:"booking"`
	Previous   booking.Status  `json:"previous,omitempty"`
	Actor      booking.Actor   `json:"actor"`
	OccurredAt time.Time       `json:"occurredAt"`
}

func NewMessage(name string, e booking.DomainEvent) Message {
	return Message{
		Event:      name,
		Type:       string(e.Type),
		Booking:    e.Booking,
		Previous:   e.Previous,
		Actor:      e.Actor,
		OccurredAt: e.OccurredAt,
	}
}

type Handler interface {
	HandleBookingEvent(ctx context.Context, e booking.DomainEvent)
}

type HandlerFunc func(ctx context.Context, e booking.DomainEvent)

func (f HandlerFunc) HandleBookingEvent(ctx context.Context, e booking.DomainEvent) {
	f(ctx, e)
}

// Dispatcher hands every committed lifecycle event to its handlers in
// registration order. A panicking handler is logged and skipped so the
// booking action that emitted the event still succeeds.
type Dispatcher struct {
	handlers []Handler
	logger   *slog.Logger
}

func NewDispatcher(logger *slog.Logger, handlers ...Handler) *Dispatcher {
	return &Dispatcher{handlers: handlers, logger: logger.With("component", "events")}
}

func (d *Dispatcher) Publish(ctx context.Context, e booking.DomainEvent) {
	d.logger.Debug("dispatching booking event", "type", e.Type, "bookingId", e.Booking.ID)

	for _, h := range d.handlers {
		d.dispatch(ctx, h, e)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, h Handler, e booking.DomainEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("booking event handler panicked", "type", e.Type, "bookingId", e.Booking.ID, "panic", r)
		}
	}()

	h.HandleBookingEvent(ctx, e)
}
