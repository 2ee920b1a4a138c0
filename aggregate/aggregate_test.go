package aggregate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hanksha/camping-booking-backend/aggregate"
	agg_mocks "github.com/hanksha/camping-booking-backend/aggregate/mocks"
	bk "github.com/hanksha/camping-booking-backend/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var created = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func booking(id string, status bk.Status, hoursAfter int) bk.Booking {
	return bk.Booking{ID: id, Status: status, CreatedAt: created.Add(time.Duration(hoursAfter) * time.Hour)}
}

func counts(pending, approved int) bk.StatusCounts {
	return bk.StatusCounts{Pending: pending, Approved: approved, Total: pending + approved}
}

func TestAggregate(t *testing.T) {
	campsites := aggregate.SourceResult{
		Type:     bk.Campsite,
		Bookings: []bk.Booking{booking("c1", bk.StatusPending, 1), booking("c2", bk.StatusApproved, 5)},
		Stats:    counts(1, 1),
	}
	activities := aggregate.SourceResult{
		Type:     bk.Activity,
		Bookings: []bk.Booking{booking("a1", bk.StatusPending, 3)},
		Stats:    counts(1, 0),
	}
	equipment := aggregate.SourceResult{
		Type:     bk.Equipment,
		Bookings: []bk.Booking{booking("e1", bk.StatusApproved, 3)},
		Stats:    counts(0, 1),
	}

	t.Run("merges newest first and tags types", func(t *testing.T) {
		view := aggregate.Aggregate(campsites, activities, equipment)

		ids := []string{}
		for _, b := range view.Bookings {
			ids = append(ids, b.ID)
		}

		assert.Equal(t, []string{"c2", "a1", "e1", "c1"}, ids)
		assert.Equal(t, bk.Activity, view.Bookings[1].ResourceType)
		assert.Equal(t, bk.Equipment, view.Bookings[2].ResourceType)
		assert.Equal(t, counts(2, 2), view.Stats.Total)
		assert.False(t, view.Stats.Degraded)
		assert.Empty(t, view.Stats.Failed)
	})

	t.Run("failed source is degraded not fatal", func(t *testing.T) {
		failed := aggregate.SourceResult{Type: bk.Activity, Stats: counts(9, 9), Err: errors.New("timeout")}

		view := aggregate.Aggregate(campsites, failed, equipment)

		require.True(t, view.Stats.Degraded)
		assert.Equal(t, []bk.ResourceType{bk.Activity}, view.Stats.Failed)
		assert.Equal(t, campsites.Stats.Add(equipment.Stats), view.Stats.Total)
		assert.Equal(t, bk.StatusCounts{}, view.Stats.ByType[bk.Activity])
		assert.Len(t, view.Bookings, 3)
	})

	t.Run("everything failed", func(t *testing.T) {
		err := errors.New("down")
		view := aggregate.Aggregate(
			aggregate.SourceResult{Type: bk.Campsite, Err: err},
			aggregate.SourceResult{Type: bk.Activity, Err: err},
			aggregate.SourceResult{Type: bk.Equipment, Err: err},
		)

		assert.True(t, view.Stats.Degraded)
		assert.Len(t, view.Stats.Failed, 3)
		assert.NotNil(t, view.Bookings)
		assert.Empty(t, view.Bookings)
	})
}

func TestFilter(t *testing.T) {
	bookings := []bk.Booking{
		{ID: "1", Status: bk.StatusPending, RequesterName: "Alice Martin", ResourceName: "Lakeside"},
		{ID: "2", Status: bk.StatusApproved, RequesterEmail: "bob@example.com", ResourceLocation: "North Ridge"},
		{ID: "3", Status: bk.StatusPending, RequesterName: "Carol", ResourceName: "Kayak"},
	}

	tests := []struct {
		name     string
		criteria aggregate.Criteria
		want     []string
	}{
		{"no criteria", aggregate.Criteria{}, []string{"1", "2", "3"}},
		{"status", aggregate.Criteria{Status: bk.StatusPending}, []string{"1", "3"}},
		{"requester name any case", aggregate.Criteria{Query: "alice"}, []string{"1"}},
		{"requester email", aggregate.Criteria{Query: "BOB@"}, []string{"2"}},
		{"resource location", aggregate.Criteria{Query: "ridge"}, []string{"2"}},
		{"status and query", aggregate.Criteria{Status: bk.StatusApproved, Query: "kayak"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := aggregate.Filter(bookings, tt.criteria)

			ids := []string{}
			for _, b := range got {
				ids = append(ids, b.ID)
			}

			assert.Equal(t, tt.want, ids)
			assert.Equal(t, got, aggregate.Filter(bookings, tt.criteria))
		})
	}
}

func TestFetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	src := agg_mocks.NewMockSource(ctrl)
	ctx := context.Background()
	filter := bk.ListFilter{}
	page := bk.Page{Number: 1, Size: 10}

	src.EXPECT().ListBookings(gomock.Any(), bk.Campsite, filter, page).Return([]bk.Booking{booking("c1", bk.StatusPending, 0)}, nil).Times(1)
	src.EXPECT().GetStats(gomock.Any(), bk.Campsite).Return(counts(1, 0), nil).Times(1)
	src.EXPECT().ListBookings(gomock.Any(), bk.Activity, filter, page).Return(nil, &bk.NetworkError{Op: "list", Err: errors.New("reset")}).Times(1)
	src.EXPECT().ListBookings(gomock.Any(), bk.Equipment, filter, page).Return([]bk.Booking{booking("e1", bk.StatusApproved, 1)}, nil).Times(1)
	src.EXPECT().GetStats(gomock.Any(), bk.Equipment).Return(bk.StatusCounts{}, errors.New("stats unavailable")).Times(1)

	view := aggregate.Fetch(ctx, src, filter, page)

	require.True(t, view.Stats.Degraded)
	assert.ElementsMatch(t, []bk.ResourceType{bk.Activity, bk.Equipment}, view.Stats.Failed)
	assert.Equal(t, counts(1, 0), view.Stats.Total)
	require.Len(t, view.Bookings, 1)
	assert.Equal(t, "c1", view.Bookings[0].ID)
}
