package aggregate

import (
	"context"

	"github.com/hanksha/camping-booking-backend/booking"
	"golang.org/x/sync/errgroup"
)

// Source is the per-type read side of the booking store.
type Source interface {
	ListBookings(ctx context.Context, resourceType booking.ResourceType, filter booking.ListFilter, page booking.Page) ([]booking.Booking, error)
	GetStats(ctx context.Context, resourceType booking.ResourceType) (booking.StatusCounts, error)
}

// Fetch loads every resource type concurrently and aggregates the results.
// A failing type is reported through the degraded stats, never as an error.
func Fetch(ctx context.Context, src Source, filter booking.ListFilter, page booking.Page) View {
	results := make([]SourceResult, len(booking.ResourceTypes))

	g, gctx := errgroup.WithContext(ctx)

	for i, resourceType := range booking.ResourceTypes {
		g.Go(func() error {
			results[i] = fetchOne(gctx, src, resourceType, filter, page)
			return nil
		})
	}

	_ = g.Wait()

	return Aggregate(results[0], results[1], results[2])
}

func fetchOne(ctx context.Context, src Source, resourceType booking.ResourceType, filter booking.ListFilter, page booking.Page) SourceResult {
	result := SourceResult{Type: resourceType}

	bookings, err := src.ListBookings(ctx, resourceType, filter, page)

	if err != nil {
		result.Err = err
		return result
	}

	stats, err := src.GetStats(ctx, resourceType)

	if err != nil {
		result.Err = err
		return result
	}

	result.Bookings = bookings
	result.Stats = stats

	return result
}
