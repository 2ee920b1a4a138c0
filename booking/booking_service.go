package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

type BookingRepository interface {
	ListBookings(ctx context.Context, resourceType ResourceType, filter ListFilter, page Page) ([]Booking, error)
	ListHolds(ctx context.Context, resourceType ResourceType, resourceID string) ([]Booking, error)
	ListApprovedEndingBefore(ctx context.Context, t time.Time) ([]Booking, error)
	GetBookingByID(ctx context.Context, id string) (Booking, error)
	GetBookingsPerRequester(ctx context.Context, requesterID string) ([]Booking, error)
	InsertBooking(ctx context.Context, booking Booking) (Booking, error)
	UpdateBookingStatus(ctx context.Context, booking Booking, from Status) error
	DeleteBooking(ctx context.Context, id string) error
	GetStats(ctx context.Context, resourceType ResourceType) (StatusCounts, error)
}

// Catalog is the read side of the resource CRUD service.
type Catalog interface {
	GetResource(ctx context.Context, resourceType ResourceType, id string) (Resource, error)
}

// DomainEvent is emitted once per committed lifecycle change and carries the
// full booking as stored.
type DomainEvent struct {
	Type       EventType `json:"type"`
	Booking    Booking   `json:"booking"`
	Previous   Status    `json:"previous,omitempty"`
	Actor      Actor     `json:"actor"`
	OccurredAt time.Time `json:"occurredAt"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent)
}

type Service struct {
	repo     BookingRepository
	catalog  Catalog
	events   EventPublisher
	inflight *inflight
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo BookingRepository, catalog Catalog, events EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		catalog:  catalog,
		events:   events,
		inflight: newInflight(),
		logger:   logger.With("component", "booking"),
		now:      time.Now,
	}
}

func (s *Service) ListBookings(ctx context.Context, resourceType ResourceType, filter ListFilter, page Page) ([]Booking, error) {
	return s.repo.ListBookings(ctx, resourceType, filter, page.Normalize())
}

func (s *Service) GetStats(ctx context.Context, resourceType ResourceType) (StatusCounts, error) {
	return s.repo.GetStats(ctx, resourceType)
}

func (s *Service) FindBookingByID(ctx context.Context, id string) (Booking, error) {
	return s.repo.GetBookingByID(ctx, id)
}

func (s *Service) FindBookingsPerRequester(ctx context.Context, requesterID string) ([]Booking, error) {
	return s.repo.GetBookingsPerRequester(ctx, requesterID)
}

// Quote prices a cart line against the current holds without committing it.
func (s *Service) Quote(ctx context.Context, candidate Candidate) (Quote, error) {
	if err := checkCandidate(candidate); err != nil {
		return Quote{}, err
	}

	resource, err := s.catalog.GetResource(ctx, candidate.ResourceType, candidate.ResourceID)

	if err != nil {
		return Quote{}, err
	}

	holds, err := s.repo.ListHolds(ctx, candidate.ResourceType, candidate.ResourceID)

	if err != nil {
		return Quote{}, err
	}

	return Validate(resource, candidate, holds)
}

// Submit commits a candidate as a pending booking. The stored total is always
// the one computed here.
func (s *Service) Submit(ctx context.Context, actor Actor, candidate Candidate) (Booking, error) {
	if !actor.IsAdmin() || candidate.RequesterID == "" {
		candidate.RequesterID = actor.ID
	}

	if candidate.RequesterName == "" {
		candidate.RequesterName = actor.Username
	}

	if err := checkCandidate(candidate); err != nil {
		return Booking{}, err
	}

	resource, err := s.catalog.GetResource(ctx, candidate.ResourceType, candidate.ResourceID)

	if err != nil {
		return Booking{}, err
	}

	holds, err := s.repo.ListHolds(ctx, candidate.ResourceType, candidate.ResourceID)

	if err != nil {
		return Booking{}, err
	}

	quote, err := Validate(resource, candidate, holds)

	if err != nil {
		return Booking{}, err
	}

	if len(quote.Conflicts) > 0 {
		return Booking{}, &ConflictError{Conflicts: quote.Conflicts}
	}

	if candidate.QuotedTotal != 0 && candidate.QuotedTotal != quote.Total {
		s.logger.Info("client quote differs from computed total",
			"resourceType", candidate.ResourceType, "resourceId", candidate.ResourceID,
			"quoted", candidate.QuotedTotal, "computed", quote.Total)
	}

	now := s.now()
	endDate := candidate.EndDate

	if candidate.ResourceType == Activity {
		endDate = candidate.StartDate
	}

	booking, err := s.repo.InsertBooking(ctx, Booking{
		ResourceType:       candidate.ResourceType,
		ResourceID:         candidate.ResourceID,
		ResourceName:       resource.Name,
		ResourceLocation:   resource.Location,
		RequesterID:        candidate.RequesterID,
		RequesterName:      candidate.RequesterName,
		RequesterEmail:     candidate.RequesterEmail,
		StartDate:          candidate.StartDate,
		EndDate:            endDate,
		Slot:               candidate.Slot,
		Occupancy:          candidate.Occupancy,
		UnitPrice:          quote.UnitPrice,
		ComputedTotalPrice: quote.Total,
		Status:             StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	})

	if err != nil {
		return Booking{}, err
	}

	s.publish(ctx, EventBookingCreated, booking, "", actor)

	return booking, nil
}

func (s *Service) Approve(ctx context.Context, actor Actor, id, notes string) (Booking, error) {
	return s.transition(ctx, id, StatusApproved, actor, TransitionInput{Notes: notes})
}

func (s *Service) Reject(ctx context.Context, actor Actor, id, reason, notes string) (Booking, error) {
	return s.transition(ctx, id, StatusRejected, actor, TransitionInput{Reason: reason, Notes: notes})
}

func (s *Service) Cancel(ctx context.Context, actor Actor, id string) (Booking, error) {
	return s.transition(ctx, id, StatusCancelled, actor, TransitionInput{})
}

func (s *Service) Complete(ctx context.Context, actor Actor, id string) (Booking, error) {
	return s.transition(ctx, id, StatusCompleted, actor, TransitionInput{})
}

// Purge deletes a cancelled or rejected booking on its owner's request.
func (s *Service) Purge(ctx context.Context, actor Actor, id string) error {
	if !s.inflight.acquire(id) {
		return ErrTransitionInFlight
	}

	defer s.inflight.release(id)

	booking, err := s.repo.GetBookingByID(ctx, id)

	if err != nil {
		return err
	}

	if err := CanPurge(booking, actor); err != nil {
		return err
	}

	if err := s.repo.DeleteBooking(ctx, id); err != nil {
		return fmt.Errorf("failed to purge booking: %w", err)
	}

	return nil
}

// CompleteElapsed moves every approved booking that no longer holds its
// resource at now to completed. It keeps going past individual failures.
func (s *Service) CompleteElapsed(ctx context.Context, now time.Time) (int, error) {
	elapsed, err := s.repo.ListApprovedEndingBefore(ctx, now)

	if err != nil {
		return 0, err
	}

	completed := 0
	var errs []error

	for _, b := range elapsed {
		if occupiedUntil(b.ResourceType, b.StartDate, b.EndDate).After(now) {
			continue
		}
		if _, err := s.Complete(ctx, SystemActor, b.ID); err != nil {
			errs = append(errs, fmt.Errorf("booking %v: %w", b.ID, err))
			continue
		}
		completed++
	}

	return completed, errors.Join(errs...)
}

func (s *Service) transition(ctx context.Context, id string, target Status, actor Actor, input TransitionInput) (Booking, error) {
	if !s.inflight.acquire(id) {
		return Booking{}, ErrTransitionInFlight
	}

	defer s.inflight.release(id)

	current, err := s.repo.GetBookingByID(ctx, id)

	if err != nil {
		return Booking{}, err
	}

	next, event, changed, err := Transition(current, target, actor, input, s.now())

	if err != nil {
		return current, err
	}

	if !changed {
		return current, nil
	}

	if err := s.repo.UpdateBookingStatus(ctx, next, current.Status); err != nil {
		return current, fmt.Errorf("failed to set booking status to %v: %w", target, err)
	}

	s.publish(ctx, event, next, current.Status, actor)

	return next, nil
}

func (s *Service) publish(ctx context.Context, eventType EventType, booking Booking, previous Status, actor Actor) {
	if s.events == nil {
		return
	}

	s.events.Publish(ctx, DomainEvent{
		Type:       eventType,
		Booking:    booking,
		Previous:   previous,
		Actor:      actor,
		OccurredAt: s.now(),
	})
}
