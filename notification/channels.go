package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/hanksha/camping-booking-backend/discord"
	"gopkg.in/gomail.v2"
)

// Channel delivers one event to one recipient.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, to Recipient, event Event) error
}

// InAppChannel appends to the recipient's inbox in the store.
type InAppChannel struct{ store Store }

func NewInAppChannel(store Store) *InAppChannel {
	return &InAppChannel{store: store}
}

func (c *InAppChannel) Name() string { return "in-app" }

func (c *InAppChannel) Deliver(ctx context.Context, to Recipient, event Event) error {
	return c.store.AppendInbox(ctx, to.UserID, event)
}

type Persister interface {
	Create(ctx context.Context, userID string, e Event) error
}

// PersistedChannel writes the server side notification record.
type PersistedChannel struct{ repo Persister }

func NewPersistedChannel(repo Persister) *PersistedChannel {
	return &PersistedChannel{repo: repo}
}

func (c *PersistedChannel) Name() string { return "persisted" }

func (c *PersistedChannel) Deliver(ctx context.Context, to Recipient, event Event) error {
	return c.repo.Create(ctx, to.UserID, event)
}

type MessageSender interface {
	SendMessage(ctx context.Context, channelID string, message discord.Message) error
}

// DiscordChannel posts to a guild channel and mentions the recipient, whose
// user id is their discord id.
type DiscordChannel struct {
	client    MessageSender
	channelID string
}

func NewDiscordChannel(client MessageSender, channelID string) *DiscordChannel {
	return &DiscordChannel{client: client, channelID: channelID}
}

func (c *DiscordChannel) Name() string { return "discord" }

func (c *DiscordChannel) Deliver(ctx context.Context, to Recipient, event Event) error {
	fields := []discord.EmbedField{{Name: "Severity", Value: string(event.Severity), Inline: true}}

	for _, key := range []string{"resourceName", "bookingId", "status"} {
		if v := event.Metadata[key]; v != "" {
			fields = append(fields, discord.EmbedField{Name: key, Value: v, Inline: true})
		}
	}

	return c.client.SendMessage(ctx, c.channelID, discord.Message{
		Content: fmt.Sprintf("<@%v>", to.UserID),
		Embeds: []discord.Embed{{
			Type:        "rich",
			Title:       event.Title,
			Description: event.Message,
			Fields:      fields,
		}},
	})
}

type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailChannel mails recipients that have an address. It skips the rest.
type EmailChannel struct {
	mailer Mailer
	from   string
}

func NewEmailChannel(mailer Mailer, from string) *EmailChannel {
	return &EmailChannel{mailer: mailer, from: from}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Deliver(_ context.Context, to Recipient, event Event) error {
	if strings.TrimSpace(to.Email) == "" {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", to.Email)
	m.SetHeader("Subject", event.Title)
	m.SetBody("text/plain", event.Message)

	if err := c.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
