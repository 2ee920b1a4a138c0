package booking

import (
	"encoding/json"
	"time"
)

type ResourceType string

const (
	Campsite  ResourceType = "campsite"
	Activity  ResourceType = "activity"
	Equipment ResourceType = "equipment"
)

// ResourceTypes lists every bookable resource kind in aggregation order.
var ResourceTypes = []ResourceType{Campsite, Activity, Equipment}

func (t ResourceType) Valid() bool {
	switch t {
	case Campsite, Activity, Equipment:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusCompleted
}

// Holds reports whether a booking in this status still blocks its resource.
func (s Status) Holds() bool {
	return s == StatusPending || s == StatusApproved
}

// PricePeriod is the period a listed equipment price refers to.
type PricePeriod string

const (
	PerHour PricePeriod = "hour"
	PerDay  PricePeriod = "day"
	PerWeek PricePeriod = "week"
)

// Resource is the read-only view of a campsite, activity or equipment
// definition owned by the resource CRUD service.
type Resource struct {
	ID        string       `json:"id"`
	Type      ResourceType `json:"type"`
	Name      string       `json:"name"`
	Location  string       `json:"location"`
	BasePrice float64      `json:"basePrice"`
	Period    PricePeriod  `json:"period,omitempty"`
}

type Booking struct {
	ID                 string       `json:"id"`
	ResourceType       ResourceType `json:"resourceType"`
	ResourceID         string       `json:"resourceId"`
	ResourceName       string       `json:"resourceName"`
	ResourceLocation   string       `json:"resourceLocation"`
	RequesterID        string       `json:"requesterId"`
	RequesterName      string       `json:"requesterName"`
	RequesterEmail     string       `json:"requesterEmail"`
	StartDate          time.Time    `json:"startDate"` // checkin for campsites, activity date for activities
	EndDate            time.Time    `json:"endDate"`
	Slot               string       `json:"slot,omitempty"`
	Occupancy          int          `json:"occupancy"` // guests, participants or quantity
	UnitPrice          float64      `json:"unitPrice"`
	ComputedTotalPrice float64      `json:"computedTotalPrice"`
	Status             Status       `json:"status"`
	AdminNotes         string       `json:"adminNotes,omitempty"`
	RejectionReason    string       `json:"rejectionReason,omitempty"`
	CancelledBy        string       `json:"cancelledBy,omitempty"`
	CancelledAt        *time.Time   `json:"cancelledAt,omitempty"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// Candidate is an unconfirmed reservation held by the client (a cart line).
type Candidate struct {
	ResourceType   ResourceType `json:"resourceType"`
	ResourceID     string       `json:"resourceId"`
	RequesterID    string       `json:"requesterId"`
	RequesterName  string       `json:"requesterName"`
	RequesterEmail string       `json:"requesterEmail"`
	StartDate      time.Time    `json:"startDate"`
	EndDate        time.Time    `json:"endDate"`
	Slot           string       `json:"slot,omitempty"`
	Occupancy      int          `json:"occupancy"`
	// QuotedTotal is what the client displayed; it is never persisted.
	QuotedTotal float64 `json:"quotedTotal,omitempty"`
}

// UnmarshalJSON accepts startDate and endDate either as RFC 3339 timestamps
// or as plain YYYY-MM-DD dates, which are read as midnight UTC.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	type plain Candidate

	raw := struct {
		*plain
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}{plain: (*plain)(c)}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var err error

	if c.StartDate, err = parseDate("startDate", raw.StartDate); err != nil {
		return err
	}

	if c.EndDate, err = parseDate("endDate", raw.EndDate); err != nil {
		return err
	}

	return nil
}

func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}

	return time.Time{}, &ValidationError{Field: field, Message: "must be a date (YYYY-MM-DD) or an RFC 3339 timestamp"}
}

type Role string

const (
	RoleUser   Role = "user"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

// Actor is the authenticated party driving an operation.
type Actor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// SystemActor drives time-based transitions.
var SystemActor = Actor{ID: "system", Username: "system", Role: RoleSystem}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// StatusCounts holds booking counts per status for one resource type.
type StatusCounts struct {
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Cancelled int `json:"cancelled"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Add returns the field-by-field sum of two counts.
func (c StatusCounts) Add(o StatusCounts) StatusCounts {
	return StatusCounts{
		Pending:   c.Pending + o.Pending,
		Approved:  c.Approved + o.Approved,
		Rejected:  c.Rejected + o.Rejected,
		Cancelled: c.Cancelled + o.Cancelled,
		Completed: c.Completed + o.Completed,
		Total:     c.Total + o.Total,
	}
}

// Increment counts one booking in the given status.
func (c *StatusCounts) Increment(s Status, n int) {
	switch s {
	case StatusPending:
		c.Pending += n
	case StatusApproved:
		c.Approved += n
	case StatusRejected:
		c.Rejected += n
	case StatusCancelled:
		c.Cancelled += n
	case StatusCompleted:
		c.Completed += n
	}
	c.Total += n
}

type ListFilter struct {
	Status      Status `form:"status"`
	RequesterID string `form:"requesterId"`
}

type Page struct {
	Number int `form:"page"`
	Size   int `form:"pageSize"`
}

const defaultPageSize = 100

// Normalize returns a page with a positive number and size.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	return p
}

func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.Size
}
