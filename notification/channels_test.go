package notification_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/hanksha/camping-booking-backend/discord"
	mock_discord "github.com/hanksha/camping-booking-backend/discord/mocks"
	"github.com/hanksha/camping-booking-backend/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gopkg.in/gomail.v2"
)

type fakeMailer struct {
	sent []*gomail.Message
	err  error
}

func (m *fakeMailer) DialAndSend(msgs ...*gomail.Message) error {
	m.sent = append(m.sent, msgs...)
	return m.err
}

type fakePersister struct {
	userID string
	event  notification.Event
}

func (p *fakePersister) Create(_ context.Context, userID string, e notification.Event) error {
	p.userID, p.event = userID, e
	return nil
}

var approvedEvent = notification.Event{
	ID:       "e1",
	Title:    "Booking approved",
	Message:  "Your booking for Lakeside was approved.",
	Severity: notification.SeveritySuccess,
	Metadata: map[string]string{"bookingId": "b1"},
}

func TestEmailChannel(t *testing.T) {
	t.Run("sends to recipients with an address", func(t *testing.T) {
		mailer := &fakeMailer{}
		ch := notification.NewEmailChannel(mailer, "camp@example.com")

		require.NoError(t, ch.Deliver(context.Background(), notification.Recipient{UserID: "u1", Email: "u1@example.com"}, approvedEvent))
		require.Len(t, mailer.sent, 1)
		assert.Equal(t, []string{"u1@example.com"}, mailer.sent[0].GetHeader("To"))
		assert.Equal(t, []string{"Booking approved"}, mailer.sent[0].GetHeader("Subject"))

		var body bytes.Buffer
		_, err := mailer.sent[0].WriteTo(&body)
		require.NoError(t, err)
		assert.Contains(t, body.String(), "Lakeside")
	})

	t.Run("skips recipients without an address", func(t *testing.T) {
		mailer := &fakeMailer{}
		ch := notification.NewEmailChannel(mailer, "camp@example.com")

		require.NoError(t, ch.Deliver(context.Background(), notification.Recipient{UserID: "u1"}, approvedEvent))
		assert.Empty(t, mailer.sent)
	})

	t.Run("smtp failure", func(t *testing.T) {
		mailer := &fakeMailer{err: errors.New("connection refused")}
		ch := notification.NewEmailChannel(mailer, "camp@example.com")

		err := ch.Deliver(context.Background(), notification.Recipient{UserID: "u1", Email: "u1@example.com"}, approvedEvent)
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestDiscordChannel(t *testing.T) {
	t.Run("mentions the recipient", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mock_discord.NewMockDiscordClient(ctrl)
		ch := notification.NewDiscordChannel(client, "chan-1")

		var sent discord.Message
		client.EXPECT().SendMessage(gomock.Any(), "chan-1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, m discord.Message) error {
				sent = m
				return nil
			}).Times(1)

		require.NoError(t, ch.Deliver(context.Background(), notification.Recipient{UserID: "1234"}, approvedEvent))

		assert.Equal(t, "<@1234>", sent.Content)
		require.Len(t, sent.Embeds, 1)
		assert.Equal(t, "Booking approved", sent.Embeds[0].Title)
		assert.Len(t, sent.Embeds[0].Fields, 2)
	})

	t.Run("discord failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mock_discord.NewMockDiscordClient(ctrl)
		ch := notification.NewDiscordChannel(client, "chan-1")

		client.EXPECT().SendMessage(gomock.Any(), "chan-1", gomock.Any()).Return(&discord.StatusError{StatusCode: 403}).Times(1)

		err := ch.Deliver(context.Background(), notification.Recipient{UserID: "1234"}, approvedEvent)

		var statusErr *discord.StatusError
		assert.ErrorAs(t, err, &statusErr)
	})
}

func TestPersistedChannel(t *testing.T) {
	repo := &fakePersister{}
	ch := notification.NewPersistedChannel(repo)

	require.NoError(t, ch.Deliver(context.Background(), notification.Recipient{UserID: "u1"}, approvedEvent))

	assert.Equal(t, "u1", repo.userID)
	assert.Equal(t, "e1", repo.event.ID)
}
