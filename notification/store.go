package notification

import (
	"context"
	"strings"
	"sync"

	"github.com/patrickmn/go-cache"
)

const DefaultInboxCapacity = 100

// Store keeps subscribers, per-user in-app inboxes and the saved history.
type Store interface {
	SaveSubscriber(ctx context.Context, sub Subscriber) error
	DeleteSubscriber(ctx context.Context, id string) error
	ListSubscribers(ctx context.Context) ([]Subscriber, error)
	AppendInbox(ctx context.Context, userID string, event Event) error
	Inbox(ctx context.Context, userID string) ([]Event, error)
	SaveHistory(ctx context.Context, events []Event) error
	LoadHistory(ctx context.Context) ([]Event, error)
}

const (
	subscriberPrefix = "subscriber:"
	inboxPrefix      = "inbox:"
	historyKey       = "history"
)

// MemoryStore keeps everything in process. Nothing expires.
type MemoryStore struct {
	mu            sync.Mutex
	cache         *cache.Cache
	inboxCapacity int
}

func NewMemoryStore(inboxCapacity int) *MemoryStore {
	if inboxCapacity <= 0 {
		inboxCapacity = DefaultInboxCapacity
	}
	return &MemoryStore{cache: cache.New(cache.NoExpiration, 0), inboxCapacity: inboxCapacity}
}

func (s *MemoryStore) SaveSubscriber(_ context.Context, sub Subscriber) error {
	s.cache.Set(subscriberPrefix+sub.ID, sub, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) DeleteSubscriber(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.cache.Get(subscriberPrefix + id); !found {
		return ErrSubscriberNotFound
	}

	s.cache.Delete(subscriberPrefix + id)
	return nil
}

func (s *MemoryStore) ListSubscribers(_ context.Context) ([]Subscriber, error) {
	subs := []Subscriber{}

	for key, item := range s.cache.Items() {
		if strings.HasPrefix(key, subscriberPrefix) {
			subs = append(subs, item.Object.(Subscriber))
		}
	}

	return subs, nil
}

func (s *MemoryStore) AppendInbox(_ context.Context, userID string, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inbox := s.events(inboxPrefix + userID)
	inbox = append([]Event{event}, inbox...)

	if len(inbox) > s.inboxCapacity {
		inbox = inbox[:s.inboxCapacity]
	}

	s.cache.Set(inboxPrefix+userID, inbox, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) Inbox(_ context.Context, userID string) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Event{}, s.events(inboxPrefix+userID)...), nil
}

func (s *MemoryStore) SaveHistory(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Set(historyKey, append([]Event{}, events...), cache.NoExpiration)
	return nil
}

func (s *MemoryStore) LoadHistory(_ context.Context) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Event{}, s.events(historyKey)...), nil
}

func (s *MemoryStore) events(key string) []Event {
	cached, found := s.cache.Get(key)

	if !found {
		return nil
	}

	return cached.([]Event)
}
