package notification

import (
	"errors"
	"fmt"
	"time"
)

type Category string

const (
	CategoryAvailabilityChange Category = "availability_change"
	CategoryLowStock           Category = "low_stock"
	CategoryOutOfStock         Category = "out_of_stock"
	CategoryBackInStock        Category = "back_in_stock"

	CategoryBookingCreated   Category = "booking_created"
	CategoryBookingApproved  Category = "booking_approved"
	CategoryBookingRejected  Category = "booking_rejected"
	CategoryBookingCancelled Category = "booking_cancelled"
	CategoryBookingCompleted Category = "booking_completed"
)

// SubscribableCategories are the categories a subscriber may register
// interest in. Booking categories are always targeted at the requester.
var SubscribableCategories = []Category{
	CategoryAvailabilityChange,
	CategoryLowStock,
	CategoryOutOfStock,
	CategoryBackInStock,
}

func (c Category) Subscribable() bool {
	for _, s := range SubscribableCategories {
		if c == s {
			return true
		}
	}
	return false
}

type Availability string

const (
	Available   Availability = "available"
	Limited     Availability = "limited"
	Unavailable Availability = "unavailable"
)

func (a Availability) Valid() bool {
	switch a {
	case Available, Limited, Unavailable:
		return true
	}
	return false
}

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Target is either a broadcast to interested subscribers or a single user.
type Target struct {
	Broadcast bool   `json:"broadcast"`
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email,omitempty"`
}

type Event struct {
	ID        string            `json:"id"`
	Type      Category          `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Severity  Severity          `json:"severity"`
	Target    Target            `json:"target"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Read      bool              `json:"read"`
}

type Subscriber struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Email      string     `json:"email,omitempty"`
	Active     bool       `json:"active"`
	Categories []Category `json:"categories"`
}

func (s Subscriber) Wants(c Category) bool {
	if !s.Active {
		return false
	}
	for _, want := range s.Categories {
		if want == c {
			return true
		}
	}
	return false
}

// Recipient is one resolved delivery address.
type Recipient struct {
	UserID string
	Email  string
}

type AvailabilityChange struct {
	ResourceType string       `json:"resourceType"`
	ResourceID   string       `json:"resourceId"`
	ResourceName string       `json:"resourceName"`
	From         Availability `json:"from"`
	To           Availability `json:"to"`
}

// Classify maps an availability transition to its category. The first
// matching rule wins. An unchanged availability yields false.
func Classify(from, to Availability) (Category, bool) {
	switch {
	case from == to:
		return "", false
	case to == Unavailable:
		return CategoryOutOfStock, true
	case from == Available && to == Limited:
		return CategoryLowStock, true
	case from == Unavailable && (to == Available || to == Limited):
		return CategoryBackInStock, true
	default:
		return CategoryAvailabilityChange, true
	}
}

var (
	ErrSubscriberNotFound   = errors.New("subscriber not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// DeliveryError is a failed attempt on one channel for one recipient. It is
// logged by the router and never returned to the caller of Route.
type DeliveryError struct {
	Channel   string
	Recipient string
	EventID   string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver notification %v to %v over %v: %v", e.EventID, e.Recipient, e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
