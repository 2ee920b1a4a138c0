package booking

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// Quote is the outcome of validating a candidate against existing holds.
type Quote struct {
	UnitPrice float64   `json:"unitPrice"`
	Units     int       `json:"units"` // nights, participants or rental days
	Total     float64   `json:"total"`
	Conflicts []Booking `json:"conflicts"`
}

// Validate prices a candidate and reports which of the existing holds it
// overlaps. Malformed candidates fail before any conflict is looked at.
func Validate(resource Resource, candidate Candidate, holds []Booking) (Quote, error) {
	if err := checkCandidate(candidate); err != nil {
		return Quote{}, err
	}

	quote := price(resource, candidate)
	quote.Conflicts = conflicts(candidate, holds)

	return quote, nil
}

func checkCandidate(c Candidate) error {
	if !c.ResourceType.Valid() {
		return &ValidationError{Field: "resourceType", Message: "unknown resource type"}
	}

	if c.ResourceID == "" {
		return &ValidationError{Field: "resourceId", Message: "is required"}
	}

	if c.Occupancy <= 0 {
		return &ValidationError{Field: "occupancy", Message: "must be positive"}
	}

	switch c.ResourceType {
	case Campsite:
		if c.StartDate.IsZero() || c.EndDate.IsZero() {
			return &ValidationError{Field: "dates", Message: "checkin and checkout are required"}
		}
		if !c.EndDate.After(c.StartDate) {
			return &ValidationError{Field: "dates", Message: "checkout must be after checkin"}
		}
	case Activity:
		if c.StartDate.IsZero() {
			return &ValidationError{Field: "date", Message: "is required"}
		}
	case Equipment:
		if c.StartDate.IsZero() || c.EndDate.IsZero() {
			return &ValidationError{Field: "dates", Message: "start and end are required"}
		}
		if c.EndDate.Before(c.StartDate) {
			return &ValidationError{Field: "dates", Message: "end must not be before start"}
		}
	}

	return nil
}

func price(resource Resource, c Candidate) Quote {
	switch c.ResourceType {
	case Campsite:
		nights := periodCount(c.StartDate, c.EndDate)
		return Quote{UnitPrice: resource.BasePrice, Units: nights, Total: roundCents(resource.BasePrice * float64(nights))}
	case Activity:
		return Quote{UnitPrice: resource.BasePrice, Units: c.Occupancy, Total: roundCents(resource.BasePrice * float64(c.Occupancy))}
	default:
		days := periodCount(c.StartDate, c.EndDate)
		unit := DailyRate(resource.BasePrice, resource.Period)
		return Quote{UnitPrice: unit, Units: days, Total: roundCents(unit * float64(days) * float64(c.Occupancy))}
	}
}

// DailyRate converts a listed equipment price to a per-day price.
func DailyRate(base float64, period PricePeriod) float64 {
	switch period {
	case PerHour:
		return base * 24
	case PerWeek:
		return base / 7
	default:
		return base
	}
}

// periodCount is the number of started days between start and end, never less than one.
func periodCount(start, end time.Time) int {
	n := int(math.Ceil(end.Sub(start).Hours() / 24))
	if n < 1 {
		return 1
	}
	return n
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func conflicts(c Candidate, holds []Booking) []Booking {
	found := []Booking{}

	for _, h := range holds {
		if h.ResourceType != c.ResourceType || h.ResourceID != c.ResourceID || !h.Status.Holds() {
			continue
		}

		if c.ResourceType == Activity {
			if sameDate(c.StartDate, h.StartDate) {
				found = append(found, h)
			}
			continue
		}

		newStart, newEnd := window(c.ResourceType, c.StartDate, c.EndDate)
		oldStart, oldEnd := window(h.ResourceType, h.StartDate, h.EndDate)

		if Overlaps(newStart, newEnd, oldStart, oldEnd) {
			found = append(found, h)
		}
	}

	return found
}

// Overlaps compares half-open intervals; touching boundaries do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// window is the conflict window of a booking. A same-day equipment rental is
// billed as one day and holds the equipment for that day.
func window(t ResourceType, start, end time.Time) (time.Time, time.Time) {
	if t == Equipment && !end.After(start) {
		return start, start.Add(day)
	}
	return start, end
}

// occupiedUntil is when a booking stops holding its resource. An activity
// holds its date until the following midnight.
func occupiedUntil(t ResourceType, start, end time.Time) time.Time {
	if t == Activity {
		y, m, d := start.Date()
		return time.Date(y, m, d+1, 0, 0, 0, 0, start.Location())
	}
	_, until := window(t, start, end)
	return until
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
