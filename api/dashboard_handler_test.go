package api_test

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hanksha/camping-booking-backend/aggregate"
	"github.com/hanksha/camping-booking-backend/api"
	mock_api "github.com/hanksha/camping-booking-backend/api/mocks"
	bk "github.com/hanksha/camping-booking-backend/booking"
	"github.com/hanksha/camping-booking-backend/snapshot"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func setupDashboardRouter(t *testing.T, actor bk.Actor) (*gin.Engine, *mock_api.MockDashboard, *mock_api.MockSnapshotSource) {
	t.Helper()
	ctrl := gomock.NewController(t)

	gin.SetMode(gin.TestMode)
	router := gin.Default()
	mockDashboard := mock_api.NewMockDashboard(ctrl)
	mockSource := mock_api.NewMockSnapshotSource(ctrl)
	rg := router.Group("/api/v1/dashboard")
	rg.Use(setActorInContext(actor))
	api.NewDashboardHandler(mockDashboard, mockSource).Register(rg)

	return router, mockDashboard, mockSource
}

var serverTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func dashboardView() aggregate.View {
	return aggregate.View{
		Bookings: []bk.Booking{
			{ID: "b1", Status: bk.StatusPending, RequesterName: "Alice"},
			{ID: "b2", Status: bk.StatusApproved, RequesterName: "Bob"},
			{ID: "b3", Status: bk.StatusPending, RequesterName: "Bobby"},
		},
		Stats: aggregate.Stats{
			ByType: map[bk.ResourceType]bk.StatusCounts{},
			Total:  bk.StatusCounts{Pending: 2, Approved: 1, Total: 3},
		},
	}
}

func TestDashboardGet(t *testing.T) {
	t.Run("filters the booking list only", func(t *testing.T) {
		router, mockDashboard, _ := setupDashboardRouter(t, admin)

		view := dashboardView()
		mockDashboard.EXPECT().View().Return(view, serverTime).Times(1)

		w := serve(router, "GET", "/api/v1/dashboard?status=pending&q=BOB", nil)

		assert.Equal(t, 200, w.Code)
		assert.JSONEq(t, mustJSON(t, map[string]any{
			"bookings":   []bk.Booking{view.Bookings[2]},
			"stats":      view.Stats,
			"serverTime": serverTime,
		}), w.Body.String())
	})

	t.Run("not admin", func(t *testing.T) {
		router, _, _ := setupDashboardRouter(t, user)

		w := serve(router, "GET", "/api/v1/dashboard", nil)

		assert.Equal(t, 403, w.Code)
	})
}

func TestDashboardSnapshot(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router, _, mockSource := setupDashboardRouter(t, admin)

		snap := snapshot.Snapshot{View: dashboardView(), ServerTime: serverTime}
		mockSource.EXPECT().Fetch(gomock.Any()).Return(snap, nil).Times(1)

		w := serve(router, "GET", "/api/v1/dashboard/snapshot", nil)

		assert.Equal(t, 200, w.Code)
		assert.JSONEq(t, mustJSON(t, snap), w.Body.String())
	})

	t.Run("failure", func(t *testing.T) {
		router, _, mockSource := setupDashboardRouter(t, admin)

		mockSource.EXPECT().Fetch(gomock.Any()).Return(snapshot.Snapshot{}, assert.AnError).Times(1)

		w := serve(router, "GET", "/api/v1/dashboard/snapshot", nil)

		assert.Equal(t, 500, w.Code)
		assert.JSONEq(t, `{"error":"failed to build snapshot"}`, w.Body.String())
	})
}

func TestDashboardRefresh(t *testing.T) {
	router, mockDashboard, _ := setupDashboardRouter(t, admin)

	mockDashboard.EXPECT().Trigger().Times(1)

	w := serve(router, "POST", "/api/v1/dashboard/refresh", nil)

	assert.Equal(t, 202, w.Code)
	assert.JSONEq(t, `{"message":"refresh scheduled"}`, w.Body.String())
}
