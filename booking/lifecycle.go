package booking

import (
	"strings"
	"time"
)

type EventType string

const (
	EventBookingCreated   EventType = "BookingCreated"
	EventBookingApproved  EventType = "BookingApproved"
	EventBookingRejected  EventType = "BookingRejected"
	EventBookingCancelled EventType = "BookingCancelled"
	EventBookingCompleted EventType = "BookingCompleted"
)

type transition struct {
	from, to Status
	admin    bool
	owner    bool
	system   bool
	event    EventType
}

var transitions = []transition{
	{from: StatusPending, to: StatusApproved, admin: true, event: EventBookingApproved},
	{from: StatusPending, to: StatusRejected, admin: true, event: EventBookingRejected},
	{from: StatusPending, to: StatusCancelled, admin: true, owner: true, event: EventBookingCancelled},
	{from: StatusApproved, to: StatusCancelled, admin: true, owner: true, event: EventBookingCancelled},
	{from: StatusApproved, to: StatusCompleted, admin: true, system: true, event: EventBookingCompleted},
}

func (t transition) allows(b Booking, actor Actor) bool {
	switch {
	case actor.Role == RoleAdmin && t.admin:
		return true
	case actor.Role == RoleSystem && t.system:
		return true
	case t.owner && actor.ID != "" && actor.ID == b.RequesterID:
		return true
	}
	return false
}

// TransitionInput carries the optional data a transition records.
type TransitionInput struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

// Transition applies one lifecycle step. changed is false when the booking
// already sits in target and the actor could have put it there; callers must
// not emit an event in that case. On error the booking is returned untouched.
func Transition(b Booking, target Status, actor Actor, input TransitionInput, now time.Time) (Booking, EventType, bool, error) {
	if b.Status == target {
		for _, t := range transitions {
			if t.to == target && t.allows(b, actor) {
				return b, "", false, nil
			}
		}
		return b, "", false, &InvalidTransitionError{From: b.Status, To: target, Role: actor.Role, Forbidden: isTarget(target)}
	}

	var found *transition
	for i := range transitions {
		if transitions[i].from == b.Status && transitions[i].to == target {
			found = &transitions[i]
			break
		}
	}

	if found == nil {
		return b, "", false, &InvalidTransitionError{From: b.Status, To: target, Role: actor.Role}
	}

	if !found.allows(b, actor) {
		return b, "", false, &InvalidTransitionError{From: b.Status, To: target, Role: actor.Role, Forbidden: true}
	}

	if target == StatusRejected && strings.TrimSpace(input.Reason) == "" {
		return b, "", false, &ValidationError{Field: "reason", Message: "is required to reject a booking"}
	}

	next := b
	next.Status = target
	next.UpdatedAt = now

	if input.Notes != "" {
		next.AdminNotes = input.Notes
	}

	switch target {
	case StatusRejected:
		next.RejectionReason = strings.TrimSpace(input.Reason)
	case StatusCancelled:
		cancelledAt := now
		next.CancelledBy = actor.ID
		next.CancelledAt = &cancelledAt
	}

	return next, found.event, true, nil
}

// CanPurge reports whether the actor may physically delete the booking.
func CanPurge(b Booking, actor Actor) error {
	if b.Status != StatusCancelled && b.Status != StatusRejected {
		return &InvalidTransitionError{From: b.Status, To: "purged", Role: actor.Role}
	}

	if actor.ID == "" || actor.ID != b.RequesterID {
		return &InvalidTransitionError{From: b.Status, To: "purged", Role: actor.Role, Forbidden: true}
	}

	return nil
}

func isTarget(s Status) bool {
	for _, t := range transitions {
		if t.to == s {
			return true
		}
	}
	return false
}
