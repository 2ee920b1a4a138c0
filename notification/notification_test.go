package notification_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	bk "github.com/hanksha/camping-booking-backend/booking"
	"github.com/hanksha/camping-booking-backend/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		from, to notification.Availability
		want     notification.Category
		changed  bool
	}{
		{notification.Available, notification.Unavailable, notification.CategoryOutOfStock, true},
		{notification.Limited, notification.Unavailable, notification.CategoryOutOfStock, true},
		{notification.Available, notification.Limited, notification.CategoryLowStock, true},
		{notification.Unavailable, notification.Available, notification.CategoryBackInStock, true},
		{notification.Unavailable, notification.Limited, notification.CategoryBackInStock, true},
		{notification.Limited, notification.Available, notification.CategoryAvailabilityChange, true},
		{notification.Available, notification.Available, "", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v to %v", tt.from, tt.to), func(t *testing.T) {
			got, changed := notification.Classify(tt.from, tt.to)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestHistory(t *testing.T) {
	h := notification.NewHistory(3)

	for i := 1; i <= 5; i++ {
		h.Add(notification.Event{ID: fmt.Sprint(i)})
	}

	events := h.List()
	require.Len(t, events, 3)
	assert.Equal(t, "5", events[0].ID)
	assert.Equal(t, "3", events[2].ID)

	assert.True(t, h.MarkRead("4"))
	assert.False(t, h.MarkRead("1"))
	assert.True(t, h.List()[1].Read)
	assert.False(t, events[1].Read)
}

type delivery struct {
	channel string
	userID  string
	eventID string
}

// recordingChannel records deliveries and optionally fails them.
type recordingChannel struct {
	name       string
	fail       bool
	mu         sync.Mutex
	deliveries []delivery
	delivered  chan delivery
}

func newRecordingChannel(name string, fail bool) *recordingChannel {
	return &recordingChannel{name: name, fail: fail, delivered: make(chan delivery, 32)}
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Deliver(_ context.Context, to notification.Recipient, e notification.Event) error {
	d := delivery{channel: c.name, userID: to.UserID, eventID: e.ID}

	c.mu.Lock()
	c.deliveries = append(c.deliveries, d)
	c.mu.Unlock()

	c.delivered <- d

	if c.fail {
		return errors.New("channel down")
	}
	return nil
}

func (c *recordingChannel) all() []delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]delivery{}, c.deliveries...)
}

func (c *recordingChannel) await(t *testing.T) delivery {
	t.Helper()
	select {
	case d := <-c.delivered:
		return d
	case <-time.After(2 * time.Second):
		t.Fatalf("no delivery on %v", c.name)
		return delivery{}
	}
}

func newTestRouter(t *testing.T, channels ...notification.Channel) (*notification.Router, *notification.MemoryStore) {
	t.Helper()

	store := notification.NewMemoryStore(10)
	router := notification.NewRouter(store, channels, notification.Options{HistoryCapacity: 5, Workers: 1}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	router.Start(ctx)

	t.Cleanup(func() {
		cancel()
		router.Wait()
	})

	return router, store
}

func TestBackInStockSubscriber(t *testing.T) {
	ch := newRecordingChannel("in-app", false)
	router, _ := newTestRouter(t, ch)
	ctx := context.Background()

	_, err := router.Subscribe(ctx, notification.Subscriber{
		ID: "s1", UserID: "u1", Active: true, Categories: []notification.Category{notification.CategoryBackInStock},
	})
	require.NoError(t, err)

	_, routed := router.ReportAvailability(ctx, notification.AvailabilityChange{ResourceID: "kayak-1", From: notification.Available, To: notification.Limited})
	require.True(t, routed)

	wanted, routed := router.ReportAvailability(ctx, notification.AvailabilityChange{ResourceID: "kayak-1", From: notification.Unavailable, To: notification.Available})
	require.True(t, routed)

	d := ch.await(t)

	assert.Equal(t, "u1", d.userID)
	assert.Equal(t, router.History()[0].ID, d.eventID)
	assert.Equal(t, notification.CategoryBackInStock, wanted.Type)
	assert.Len(t, ch.all(), 1)
	assert.Len(t, router.History(), 2)
}

func TestRouteSkipsInactiveAndUninterested(t *testing.T) {
	ch := newRecordingChannel("in-app", false)
	router, _ := newTestRouter(t, ch)
	ctx := context.Background()

	for _, sub := range []notification.Subscriber{
		{ID: "active", UserID: "u1", Active: true, Categories: []notification.Category{notification.CategoryOutOfStock}},
		{ID: "paused", UserID: "u2", Active: false, Categories: []notification.Category{notification.CategoryOutOfStock}},
		{ID: "other", UserID: "u3", Active: true, Categories: []notification.Category{notification.CategoryLowStock}},
	} {
		_, err := router.Subscribe(ctx, sub)
		require.NoError(t, err)
	}

	router.ReportAvailability(ctx, notification.AvailabilityChange{ResourceID: "site-1", From: notification.Limited, To: notification.Unavailable})

	assert.Equal(t, "u1", ch.await(t).userID)

	router.Route(ctx, notification.Event{ID: "marker", Target: notification.Target{UserID: "u9"}})
	assert.Equal(t, "marker", ch.await(t).eventID)

	assert.Len(t, ch.all(), 2)
}

func TestUnchangedAvailabilityProducesNothing(t *testing.T) {
	router, _ := newTestRouter(t)

	_, routed := router.ReportAvailability(context.Background(), notification.AvailabilityChange{From: notification.Limited, To: notification.Limited})

	assert.False(t, routed)
	assert.Empty(t, router.History())
}

func TestChannelFailureIsIsolated(t *testing.T) {
	broken := newRecordingChannel("broken", true)
	working := newRecordingChannel("working", false)
	router, store := newTestRouter(t, broken, working)
	ctx := context.Background()

	router.HandleBookingEvent(ctx, bk.DomainEvent{
		Type:    bk.EventBookingApproved,
		Booking: bk.Booking{ID: "b1", RequesterID: "u1", ResourceName: "Lakeside", Status: bk.StatusApproved},
	})

	broken.await(t)
	d := working.await(t)

	assert.Equal(t, "u1", d.userID)
	require.Len(t, router.History(), 1)
	assert.Equal(t, notification.CategoryBookingApproved, router.History()[0].Type)

	assert.Eventually(t, func() bool {
		saved, err := store.LoadHistory(ctx)
		return err == nil && len(saved) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

type panickingChannel struct{}

func (panickingChannel) Name() string { return "panicking" }

func (panickingChannel) Deliver(context.Context, notification.Recipient, notification.Event) error {
	panic("template missing")
}

func TestChannelPanicIsIsolated(t *testing.T) {
	working := newRecordingChannel("working", false)
	router, _ := newTestRouter(t, panickingChannel{}, working)
	ctx := context.Background()

	router.Route(ctx, notification.Event{ID: "e1", Target: notification.Target{UserID: "u1"}})
	assert.Equal(t, "e1", working.await(t).eventID)

	router.Route(ctx, notification.Event{ID: "e2", Target: notification.Target{UserID: "u1"}})
	assert.Equal(t, "e2", working.await(t).eventID)
}

// slowStore holds the first history save until release is closed.
type slowStore struct {
	*notification.MemoryStore
	release chan struct{}
	once    sync.Once
}

func (s *slowStore) SaveHistory(ctx context.Context, events []notification.Event) error {
	s.once.Do(func() { <-s.release })
	return s.MemoryStore.SaveHistory(ctx, events)
}

func TestRouteDoesNotWaitForHistoryStore(t *testing.T) {
	store := &slowStore{MemoryStore: notification.NewMemoryStore(10), release: make(chan struct{})}
	router := notification.NewRouter(store, nil, notification.Options{HistoryCapacity: 5, Workers: 1}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	router.Start(ctx)
	t.Cleanup(func() {
		cancel()
		router.Wait()
	})

	routed := make(chan struct{})
	go func() {
		router.Route(ctx, notification.Event{ID: "e1"})
		router.Route(ctx, notification.Event{ID: "e2"})
		assert.NoError(t, router.MarkRead(ctx, "e1"))
		close(routed)
	}()

	select {
	case <-routed:
	case <-time.After(2 * time.Second):
		t.Fatal("route blocked on the history store")
	}

	close(store.release)

	assert.Eventually(t, func() bool {
		saved, err := store.LoadHistory(ctx)
		return err == nil && len(saved) == 2 && saved[1].Read
	}, 2*time.Second, 10*time.Millisecond)

	saved, err := store.LoadHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, router.History(), saved)
}

func TestPendingHistoryIsFlushedOnShutdown(t *testing.T) {
	store := notification.NewMemoryStore(10)
	router := notification.NewRouter(store, nil, notification.Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	router.Route(ctx, notification.Event{ID: "e1"})
	router.Start(ctx)
	router.Wait()

	saved, err := store.LoadHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "e1", saved[0].ID)
}

func TestHistoryIsBoundedAndComplete(t *testing.T) {
	broken := newRecordingChannel("broken", true)
	router, _ := newTestRouter(t, broken)
	ctx := context.Background()

	for i := range 7 {
		router.Route(ctx, notification.Event{ID: fmt.Sprint(i), Target: notification.Target{UserID: "u1"}})
	}

	history := router.History()
	require.Len(t, history, 5)
	assert.Equal(t, "6", history[0].ID)
	assert.Equal(t, "2", history[4].ID)

	require.NoError(t, router.MarkRead(ctx, "6"))
	assert.True(t, router.History()[0].Read)
	assert.ErrorIs(t, router.MarkRead(ctx, "0"), notification.ErrNotificationNotFound)
}

func TestSubscriberRegistry(t *testing.T) {
	router, _ := newTestRouter(t)
	ctx := context.Background()

	_, err := router.Subscribe(ctx, notification.Subscriber{UserID: "u1", Categories: []notification.Category{notification.CategoryBookingApproved}})
	require.ErrorIs(t, err, bk.ErrValidation)

	_, err = router.Subscribe(ctx, notification.Subscriber{UserID: "u1"})
	require.ErrorIs(t, err, bk.ErrValidation)

	sub, err := router.Subscribe(ctx, notification.Subscriber{UserID: "u1", Active: true, Categories: []notification.Category{notification.CategoryLowStock}})
	require.NoError(t, err)
	require.NotEmpty(t, sub.ID)

	subs, err := router.Subscribers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []notification.Subscriber{sub}, subs)

	require.NoError(t, router.Unsubscribe(ctx, sub.ID))
	assert.ErrorIs(t, router.Unsubscribe(ctx, sub.ID), notification.ErrSubscriberNotFound)
}

func TestInAppChannel(t *testing.T) {
	store := notification.NewMemoryStore(0)
	ctx := context.Background()
	ch := notification.NewInAppChannel(store)

	require.NoError(t, ch.Deliver(ctx, notification.Recipient{UserID: "u1"}, notification.Event{ID: "e1"}))

	inbox, err := store.Inbox(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "e1", inbox[0].ID)
}

func TestMemoryStoreInboxIsBounded(t *testing.T) {
	store := notification.NewMemoryStore(2)
	ctx := context.Background()

	for i := range 3 {
		require.NoError(t, store.AppendInbox(ctx, "u1", notification.Event{ID: fmt.Sprint(i)}))
	}

	inbox, err := store.Inbox(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, "2", inbox[0].ID)

	empty, err := store.Inbox(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
