package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hanksha/camping-booking-backend/booking"
)

type Options struct {
	HistoryCapacity int
	QueueSize       int
	Workers         int
}

func (o Options) withDefaults() Options {
	if o.HistoryCapacity <= 0 {
		o.HistoryCapacity = DefaultHistoryCapacity
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 2
	}
	return o
}

// Router classifies events and fans them out to recipients and channels.
// Route appends to the history before returning and leaves delivery and
// history persistence to the background goroutines started by Start.
type Router struct {
	store    Store
	channels []Channel
	history  *History
	queue    chan Event
	persist  chan struct{}
	workers  int
	wg       sync.WaitGroup
	logger   *slog.Logger
	now      func() time.Time
}

func NewRouter(store Store, channels []Channel, opts Options, logger *slog.Logger) *Router {
	opts = opts.withDefaults()

	return &Router{
		store:    store,
		channels: channels,
		history:  NewHistory(opts.HistoryCapacity),
		queue:    make(chan Event, opts.QueueSize),
		persist:  make(chan struct{}, 1),
		workers:  opts.Workers,
		logger:   logger.With("component", "notification"),
		now:      time.Now,
	}
}

// Restore seeds the history from the store.
func (r *Router) Restore(ctx context.Context) error {
	events, err := r.store.LoadHistory(ctx)

	if err != nil {
		return fmt.Errorf("failed to load notification history: %w", err)
	}

	r.history.Restore(events)

	return nil
}

// flushTimeout bounds the final history write after shutdown.
const flushTimeout = 5 * time.Second

// Start runs the delivery workers and the history writer until ctx is done.
func (r *Router) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.writeHistory(ctx)
	}()

	for range r.workers {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case event := <-r.queue:
					r.deliver(ctx, event)
				}
			}
		}()
	}
}

// Wait blocks until every worker and the history writer have returned.
func (r *Router) Wait() {
	r.wg.Wait()
}

func (r *Router) Route(_ context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = r.now()
	}

	r.history.Add(event)
	r.schedulePersist()

	select {
	case r.queue <- event:
	default:
		r.logger.Warn("delivery queue full, notification kept in history only", "id", event.ID, "type", event.Type)
	}
}

// ReportAvailability broadcasts a classified availability change. An
// unchanged availability produces nothing.
func (r *Router) ReportAvailability(ctx context.Context, change AvailabilityChange) (Event, bool) {
	category, changed := Classify(change.From, change.To)

	if !changed {
		return Event{}, false
	}

	title, severity := availabilityTitle(category, change.ResourceName)

	event := Event{
		Type:     category,
		Title:    title,
		Message:  fmt.Sprintf("%v is now %v (was %v).", nameOr(change.ResourceName, change.ResourceID), change.To, change.From),
		Severity: severity,
		Target:   Target{Broadcast: true},
		Metadata: map[string]string{
			"resourceType": change.ResourceType,
			"resourceId":   change.ResourceID,
			"resourceName": change.ResourceName,
			"from":         string(change.From),
			"to":           string(change.To),
		},
	}

	r.Route(ctx, event)

	return event, true
}

func availabilityTitle(c Category, name string) (string, Severity) {
	switch c {
	case CategoryOutOfStock:
		return "Out of stock: " + name, SeverityError
	case CategoryLowStock:
		return "Running low: " + name, SeverityWarning
	case CategoryBackInStock:
		return "Back in stock: " + name, SeveritySuccess
	default:
		return "Availability changed: " + name, SeverityInfo
	}
}

// HandleBookingEvent tells the requester about their booking.
func (r *Router) HandleBookingEvent(ctx context.Context, e booking.DomainEvent) {
	var (
		category Category
		title    string
		severity = SeverityInfo
		message  string
	)

	b := e.Booking
	name := nameOr(b.ResourceName, b.ResourceID)

	switch e.Type {
	case booking.EventBookingCreated:
		category, title = CategoryBookingCreated, "Booking received"
		message = fmt.Sprintf("Your booking for %v is waiting for approval.", name)
	case booking.EventBookingApproved:
		category, title, severity = CategoryBookingApproved, "Booking approved", SeveritySuccess
		message = fmt.Sprintf("Your booking for %v was approved.", name)
	case booking.EventBookingRejected:
		category, title, severity = CategoryBookingRejected, "Booking rejected", SeverityWarning
		message = fmt.Sprintf("Your booking for %v was rejected: %v", name, b.RejectionReason)
	case booking.EventBookingCancelled:
		category, title, severity = CategoryBookingCancelled, "Booking cancelled", SeverityWarning
		message = fmt.Sprintf("Your booking for %v was cancelled.", name)
	case booking.EventBookingCompleted:
		category, title = CategoryBookingCompleted, "Booking completed"
		message = fmt.Sprintf("Thanks for staying with us at %v.", name)
	default:
		return
	}

	if b.AdminNotes != "" && e.Type != booking.EventBookingCreated {
		message += " Notes: " + b.AdminNotes
	}

	r.Route(ctx, Event{
		Type:     category,
		Title:    title,
		Message:  message,
		Severity: severity,
		Target:   Target{UserID: b.RequesterID, Email: b.RequesterEmail},
		Metadata: map[string]string{
			"bookingId":    b.ID,
			"resourceType": string(b.ResourceType),
			"resourceName": b.ResourceName,
			"status":       string(b.Status),
		},
	})
}

func (r *Router) History() []Event {
	return r.history.List()
}

func (r *Router) MarkRead(_ context.Context, id string) error {
	if !r.history.MarkRead(id) {
		return ErrNotificationNotFound
	}

	r.schedulePersist()

	return nil
}

// schedulePersist asks the writer to save the history. Requests made while a
// save is pending collapse into it.
func (r *Router) schedulePersist() {
	select {
	case r.persist <- struct{}{}:
	default:
	}
}

// writeHistory is the only caller of SaveHistory. Each save takes a fresh
// copy of the history, so the last write always holds every event.
func (r *Router) writeHistory(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			select {
			case <-r.persist:
				flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
				r.saveHistory(flushCtx)
				cancel()
			default:
			}
			return
		case <-r.persist:
			r.saveHistory(ctx)
		}
	}
}

func (r *Router) saveHistory(ctx context.Context) {
	if err := r.store.SaveHistory(ctx, r.history.List()); err != nil {
		r.logger.Warn("failed to save notification history", "error", err)
	}
}

func (r *Router) Subscribe(ctx context.Context, sub Subscriber) (Subscriber, error) {
	if len(sub.Categories) == 0 {
		return Subscriber{}, &booking.ValidationError{Field: "categories", Message: "at least one category is required"}
	}

	for _, c := range sub.Categories {
		if !c.Subscribable() {
			return Subscriber{}, &booking.ValidationError{Field: "categories", Message: fmt.Sprintf("'%v' is not a subscribable category", c)}
		}
	}

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}

	if err := r.store.SaveSubscriber(ctx, sub); err != nil {
		return Subscriber{}, err
	}

	return sub, nil
}

func (r *Router) Unsubscribe(ctx context.Context, id string) error {
	return r.store.DeleteSubscriber(ctx, id)
}

func (r *Router) Subscribers(ctx context.Context) ([]Subscriber, error) {
	return r.store.ListSubscribers(ctx)
}

func (r *Router) Inbox(ctx context.Context, userID string) ([]Event, error) {
	return r.store.Inbox(ctx, userID)
}

func (r *Router) deliver(ctx context.Context, event Event) {
	recipients, err := r.recipients(ctx, event)

	if err != nil {
		r.logger.Warn("failed to resolve recipients", "id", event.ID, "error", err)
		return
	}

	for _, to := range recipients {
		for _, ch := range r.channels {
			if err := deliverOne(ctx, ch, to, event); err != nil {
				r.logger.Warn("notification delivery failed", "error", &DeliveryError{
					Channel: ch.Name(), Recipient: to.UserID, EventID: event.ID, Err: err,
				})
			}
		}
	}
}

// deliverOne turns a panicking channel into a delivery error so the
// remaining channels and the worker keep running.
func deliverOne(ctx context.Context, ch Channel, to Recipient, event Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("channel panicked: %v", p)
		}
	}()

	return ch.Deliver(ctx, to, event)
}

func (r *Router) recipients(ctx context.Context, event Event) ([]Recipient, error) {
	if !event.Target.Broadcast {
		if event.Target.UserID == "" {
			return nil, nil
		}
		return []Recipient{{UserID: event.Target.UserID, Email: event.Target.Email}}, nil
	}

	subs, err := r.store.ListSubscribers(ctx)

	if err != nil {
		return nil, err
	}

	recipients := []Recipient{}

	for _, s := range subs {
		if s.Wants(event.Type) {
			recipients = append(recipients, Recipient{UserID: s.UserID, Email: s.Email})
		}
	}

	return recipients, nil
}

func nameOr(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
