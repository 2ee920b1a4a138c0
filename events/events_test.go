package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	bk "github.com/hanksha/camping-booking-backend/booking"
	"github.com/hanksha/camping-booking-backend/events"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var approved = bk.DomainEvent{
	Type:       bk.EventBookingApproved,
	Booking:    bk.Booking{ID: "b1", Status: bk.StatusApproved, ResourceName: "Lakeside"},
	Previous:   bk.StatusPending,
	Actor:      bk.Actor{ID: "admin-1", Role: bk.RoleAdmin},
	OccurredAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
}

func TestName(t *testing.T) {
	assert.Equal(t, events.BookingNew, events.Name(bk.EventBookingCreated))
	assert.Equal(t, events.BookingApproved, events.Name(bk.EventBookingApproved))
	assert.Equal(t, events.BookingRejected, events.Name(bk.EventBookingRejected))
	assert.Equal(t, events.BookingCancelled, events.Name(bk.EventBookingCancelled))
	assert.Equal(t, events.BookingUpdated, events.Name(bk.EventBookingCompleted))
}

func TestDispatcherRunsHandlersInOrder(t *testing.T) {
	var order []string

	d := events.NewDispatcher(discard(),
		events.HandlerFunc(func(context.Context, bk.DomainEvent) { order = append(order, "first") }),
		events.HandlerFunc(func(context.Context, bk.DomainEvent) { panic("boom") }),
		events.HandlerFunc(func(_ context.Context, e bk.DomainEvent) { order = append(order, "third:"+e.Booking.ID) }),
	)

	d.Publish(context.Background(), approved)

	assert.Equal(t, []string{"first", "third:b1"}, order)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestProducer(t *testing.T) {
	writer := &fakeWriter{}
	p := events.NewProducerWithWriter(writer, "bookings", "bookings-admin", discard())

	p.HandleBookingEvent(context.Background(), approved)

	require.Len(t, writer.msgs, 2)

	user, admin := writer.msgs[0], writer.msgs[1]

	assert.Equal(t, "bookings", user.Topic)
	assert.Equal(t, []byte("b1"), user.Key)
	assert.Equal(t, []kafka.Header{{Key: "event", Value: []byte(events.BookingApproved)}}, user.Headers)

	assert.Equal(t, "bookings-admin", admin.Topic)
	assert.Equal(t, []byte(events.BookingAdminUpdate), admin.Headers[0].Value)

	var decoded events.Message
	require.NoError(t, json.Unmarshal(admin.Value, &decoded))
	assert.Equal(t, events.BookingAdminUpdate, decoded.Event)
	assert.Equal(t, approved.Booking, decoded.Booking)
	assert.Equal(t, bk.StatusPending, decoded.Previous)
}

func TestProducerSwallowsWriteErrors(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	p := events.NewProducerWithWriter(writer, "bookings", "bookings-admin", discard())

	assert.NotPanics(t, func() { p.HandleBookingEvent(context.Background(), approved) })
}

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}

	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer(t *testing.T) {
	valid, err := json.Marshal(events.NewMessage(events.BookingAdminUpdate, approved))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		msgs: []kafka.Message{
			{Offset: 1, Value: []byte("{not json")},
			{Offset: 2, Value: valid},
		},
		cancel: cancel,
	}

	var got []events.Message
	c := events.NewConsumerWithReader(reader, func(_ context.Context, m events.Message) { got = append(got, m) }, discard())

	require.NoError(t, c.Run(ctx))

	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].Booking.ID)
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

type failingReader struct{ fakeReader }

func (r *failingReader) FetchMessage(context.Context) (kafka.Message, error) {
	return kafka.Message{}, io.ErrUnexpectedEOF
}

func TestConsumerFetchError(t *testing.T) {
	c := events.NewConsumerWithReader(&failingReader{}, func(context.Context, events.Message) {}, discard())

	err := c.Run(context.Background())

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
