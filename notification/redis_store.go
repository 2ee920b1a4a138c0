package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists subscribers, inboxes and history in redis so they
// survive restarts and are shared between instances.
type RedisStore struct {
	client        redis.Cmdable
	prefix        string
	inboxCapacity int
}

func NewRedisStore(client redis.Cmdable, prefix string, inboxCapacity int) *RedisStore {
	if inboxCapacity <= 0 {
		inboxCapacity = DefaultInboxCapacity
	}
	return &RedisStore{client: client, prefix: prefix, inboxCapacity: inboxCapacity}
}

func (s *RedisStore) key(parts ...string) string {
	key := s.prefix + "notification"
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func (s *RedisStore) SaveSubscriber(ctx context.Context, sub Subscriber) error {
	payload, err := json.Marshal(sub)

	if err != nil {
		return fmt.Errorf("failed to marshal subscriber: %w", err)
	}

	if err := s.client.HSet(ctx, s.key("subscribers"), sub.ID, payload).Err(); err != nil {
		return fmt.Errorf("failed to save subscriber: %w", err)
	}

	return nil
}

func (s *RedisStore) DeleteSubscriber(ctx context.Context, id string) error {
	removed, err := s.client.HDel(ctx, s.key("subscribers"), id).Result()

	if err != nil {
		return fmt.Errorf("failed to delete subscriber: %w", err)
	}

	if removed == 0 {
		return ErrSubscriberNotFound
	}

	return nil
}

func (s *RedisStore) ListSubscribers(ctx context.Context) ([]Subscriber, error) {
	values, err := s.client.HGetAll(ctx, s.key("subscribers")).Result()

	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}

	subs := make([]Subscriber, 0, len(values))

	for id, raw := range values {
		var sub Subscriber
		if err := json.Unmarshal([]byte(raw), &sub); err != nil {
			return nil, fmt.Errorf("failed to decode subscriber %v: %w", id, err)
		}
		subs = append(subs, sub)
	}

	return subs, nil
}

func (s *RedisStore) AppendInbox(ctx context.Context, userID string, event Event) error {
	payload, err := json.Marshal(event)

	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	key := s.key("inbox", userID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, int64(s.inboxCapacity-1))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to inbox: %w", err)
	}

	return nil
}

func (s *RedisStore) Inbox(ctx context.Context, userID string) ([]Event, error) {
	return s.list(ctx, s.key("inbox", userID))
}

func (s *RedisStore) SaveHistory(ctx context.Context, events []Event) error {
	values := make([]any, 0, len(events))

	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal notification: %w", err)
		}
		values = append(values, payload)
	}

	key := s.key("history")
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)

	if len(values) > 0 {
		pipe.RPush(ctx, key, values...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}

	return nil
}

func (s *RedisStore) LoadHistory(ctx context.Context) ([]Event, error) {
	return s.list(ctx, s.key("history"))
}

func (s *RedisStore) list(ctx context.Context, key string) ([]Event, error) {
	values, err := s.client.LRange(ctx, key, 0, -1).Result()

	if err != nil {
		return nil, fmt.Errorf("failed to read %v: %w", key, err)
	}

	events := make([]Event, 0, len(values))

	for _, raw := range values {
		var e Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("failed to decode notification: %w", err)
		}
		events = append(events, e)
	}

	return events, nil
}
