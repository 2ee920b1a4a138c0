package aggregate

import (
	"cmp"
	"slices"
	"strings"

	"github.com/hanksha/camping-booking-backend/booking"
)

// SourceResult is what one per-type fetch produced. A non-nil Err means the
// whole source failed and its bookings and stats are ignored.
type SourceResult struct {
	Type     booking.ResourceType
	Bookings []booking.Booking
	Stats    booking.StatusCounts
	Err      error
}

type Stats struct {
	ByType   map[booking.ResourceType]booking.StatusCounts `json:"byType"`
	Total    booking.StatusCounts                          `json:"total"`
	Degraded bool                                          `json:"degraded"`
	Failed   []booking.ResourceType                        `json:"failed,omitempty"`
}

type View struct {
	Bookings []booking.Booking `json:"bookings"`
	Stats    Stats             `json:"stats"`
}

// Aggregate merges the three per-type results into one view sorted by
// creation time, newest first. It never fails: a failed source contributes
// nothing and marks the stats as degraded.
func Aggregate(campsites, activities, equipment SourceResult) View {
	view := View{
		Bookings: []booking.Booking{},
		Stats:    Stats{ByType: make(map[booking.ResourceType]booking.StatusCounts, 3)},
	}

	for _, src := range []SourceResult{campsites, activities, equipment} {
		if src.Err != nil {
			view.Stats.ByType[src.Type] = booking.StatusCounts{}
			view.Stats.Degraded = true
			view.Stats.Failed = append(view.Stats.Failed, src.Type)
			continue
		}

		for _, b := range src.Bookings {
			b.ResourceType = src.Type
			view.Bookings = append(view.Bookings, b)
		}

		view.Stats.ByType[src.Type] = src.Stats
		view.Stats.Total = view.Stats.Total.Add(src.Stats)
	}

	slices.SortStableFunc(view.Bookings, newestFirst)

	return view
}

func newestFirst(a, b booking.Booking) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

type Criteria struct {
	Status booking.Status `form:"status"`
	Query  string         `form:"q"`
}

// Filter returns the bookings matching the status and the free text query.
// The query is matched case-insensitively against the requester name and
// email and the resource name and location.
func Filter(bookings []booking.Booking, criteria Criteria) []booking.Booking {
	query := strings.ToLower(strings.TrimSpace(criteria.Query))
	filtered := []booking.Booking{}

	for _, b := range bookings {
		if criteria.Status != "" && b.Status != criteria.Status {
			continue
		}

		if query != "" && !matches(b, query) {
			continue
		}

		filtered = append(filtered, b)
	}

	return filtered
}

func matches(b booking.Booking, query string) bool {
	for _, field := range []string{b.RequesterName, b.RequesterEmail, b.ResourceName, b.ResourceLocation} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}
