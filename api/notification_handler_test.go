package api_test

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hanksha/camping-booking-backend/api"
	mock_api "github.com/hanksha/camping-booking-backend/api/mocks"
	bk "github.com/hanksha/camping-booking-backend/booking"
	"github.com/hanksha/camping-booking-backend/notification"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func setupNotificationRouter(t *testing.T, actor bk.Actor) (*gin.Engine, *mock_api.MockNotificationRouter, *mock_api.MockNotificationRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)

	gin.SetMode(gin.TestMode)
	router := gin.Default()
	mockRouter := mock_api.NewMockNotificationRouter(ctrl)
	mockRepo := mock_api.NewMockNotificationRepository(ctrl)
	handler := api.NewNotificationHandler(mockRouter, mockRepo)

	rg := router.Group("/api/v1")
	rg.Use(setActorInContext(actor))
	handler.Register(rg.Group("/notifications"))
	handler.RegisterResources(rg.Group("/resources"))

	return router, mockRouter, mockRepo
}

var backInStock = notification.Event{
	ID:        "n1",
	Type:      notification.CategoryBackInStock,
	Title:     "Kayak is back in stock",
	Severity:  notification.SeveritySuccess,
	Target:    notification.Target{Broadcast: true},
	Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
}

func TestListNotifications(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router, _, mockRepo := setupNotificationRouter(t, user)

		events := []notification.Event{backInStock}
		mockRepo.EXPECT().ListByUser(gomock.Any(), "user1ID", bk.Page{Number: 1, Size: 20}).Return(events, nil).Times(1)

		w := serve(router, "GET", "/api/v1/notifications?page=1&pageSize=20", nil)

		assert.Equal(t, 200, w.Code)
		assert.JSONEq(t, mustJSON(t, events), w.Body.String())
	})

	t.Run("store unreachable", func(t *testing.T) {
		router, _, mockRepo := setupNotificationRouter(t, user)

		mockRepo.EXPECT().ListByUser(gomock.Any(), "user1ID", gomock.Any()).
			Return(nil, &bk.NetworkError{Op: "failed to list notifications", Err: assert.AnError}).Times(1)

		w := serve(router, "GET", "/api/v1/notifications", nil)

		assert.Equal(t, 503, w.Code)
	})
}

func TestUnreadCount(t *testing.T) {
	router, _, mockRepo := setupNotificationRouter(t, user)

	mockRepo.EXPECT().UnreadCount(gomock.Any(), "user1ID").Return(4, nil).Times(1)

	w := serve(router, "GET", "/api/v1/notifications/unread", nil)

	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"unread":4}`, w.Body.String())
}

func TestMarkNotificationRead(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router, _, mockRepo := setupNotificationRouter(t, user)

		mockRepo.EXPECT().MarkRead(gomock.Any(), "user1ID", "n1").Return(nil).Times(1)

		w := serve(router, "PUT", "/api/v1/notifications/n1/read", nil)

		assert.Equal(t, 200, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		router, _, mockRepo := setupNotificationRouter(t, user)

		mockRepo.EXPECT().MarkRead(gomock.Any(), "user1ID", "n1").Return(notification.ErrNotificationNotFound).Times(1)

		w := serve(router, "PUT", "/api/v1/notifications/n1/read", nil)

		assert.Equal(t, 404, w.Code)
		assert.JSONEq(t, `{"error":"notification not found"}`, w.Body.String())
	})
}

func TestInbox(t *testing.T) {
	router, mockRouter, _ := setupNotificationRouter(t, user)

	mockRouter.EXPECT().Inbox(gomock.Any(), "user1ID").Return([]notification.Event{backInStock}, nil).Times(1)

	w := serve(router, "GET", "/api/v1/notifications/inbox", nil)

	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, mustJSON(t, []notification.Event{backInStock}), w.Body.String())
}

func TestHistory(t *testing.T) {
	t.Run("admin", func(t *testing.T) {
		router, mockRouter, _ := setupNotificationRouter(t, admin)

		mockRouter.EXPECT().History().Return([]notification.Event{backInStock}).Times(1)

		w := serve(router, "GET", "/api/v1/notifications/history", nil)

		assert.Equal(t, 200, w.Code)
		assert.JSONEq(t, mustJSON(t, []notification.Event{backInStock}), w.Body.String())
	})

	t.Run("not admin", func(t *testing.T) {
		router, _, _ := setupNotificationRouter(t, user)

		w := serve(router, "GET", "/api/v1/notifications/history", nil)

		assert.Equal(t, 403, w.Code)
	})

	t.Run("mark read", func(t *testing.T) {
		router, mockRouter, _ := setupNotificationRouter(t, admin)

		mockRouter.EXPECT().MarkRead(gomock.Any(), "missing").Return(notification.ErrNotificationNotFound).Times(1)

		w := serve(router, "PUT", "/api/v1/notifications/history/missing/read", nil)

		assert.Equal(t, 404, w.Code)
	})
}

func TestSubscribe(t *testing.T) {
	t.Run("user subscribes themselves", func(t *testing.T) {
		router, mockRouter, _ := setupNotificationRouter(t, user)

		want := notification.Subscriber{
			UserID:     "user1ID",
			Email:      "user1@example.com",
			Active:     true,
			Categories: []notification.Category{notification.CategoryBackInStock},
		}
		created := want
		created.ID = "s1"

		mockRouter.EXPECT().Subscribe(gomock.Any(), want).Return(created, nil).Times(1)

		w := serve(router, "POST", "/api/v1/notifications/subscribers",
			[]byte(`{"id":"forged","userId":"someone","email":"user1@example.com","active":true,"categories":["back_in_stock"]}`))

		assert.Equal(t, 201, w.Code)
		assert.JSONEq(t, mustJSON(t, created), w.Body.String())
	})

	t.Run("admin subscribes another user", func(t *testing.T) {
		router, mockRouter, _ := setupNotificationRouter(t, admin)

		mockRouter.EXPECT().Subscribe(gomock.Any(), gomock.Cond(func(s notification.Subscriber) bool {
			return s.UserID == "someone"
		})).Return(notification.Subscriber{ID: "s2", UserID: "someone"}, nil).Times(1)

		w := serve(router, "POST", "/api/v1/notifications/subscribers", []byte(`{"userId":"someone","categories":["low_stock"]}`))

		assert.Equal(t, 201, w.Code)
	})

	t.Run("bad category", func(t *testing.T) {
		router, mockRouter, _ := setupNotificationRouter(t, user)

		mockRouter.EXPECT().Subscribe(gomock.Any(), gomock.Any()).
			Return(notification.Subscriber{}, &bk.ValidationError{Field: "categories", Message: "'booking_created' is not a subscribable category"}).Times(1)

		w := serve(router, "POST", "/api/v1/notifications/subscribers", []byte(`{"categories":["booking_created"]}`))

		assert.Equal(t, 400, w.Code)
		assert.JSONEq(t, `{"error":"invalid categories: 'booking_created' is not a subscribable category","field":"categories"}`, w.Body.String())
	})
}

func TestSubscribers(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		router, mockRouter, _ := setupNotificationRouter(t, admin)

		subs := []notification.Subscriber{{ID: "s1", UserID: "u1", Active: true}}
		mockRouter.EXPECT().Subscribers(gomock.Any()).Return(subs, nil).Times(1)

		w := serve(router, "GET", "/api/v1/notifications/subscribers", nil)

		assert.Equal(t, 200, w.Code)
		assert.JSONEq(t, mustJSON(t, subs), w.Body.String())
	})

	t.Run("unsubscribe unknown", func(t *testing.T) {
		router, mockRouter, _ := setupNotificationRouter(t, admin)

		mockRouter.EXPECT().Unsubscribe(gomock.Any(), "s9").Return(notification.ErrSubscriberNotFound).Times(1)

		w := serve(router, "DELETE", "/api/v1/notifications/subscribers/s9", nil)

		assert.Equal(t, 404, w.Code)
		assert.JSONEq(t, `{"error":"subscriber not found"}`, w.Body.String())
	})
}

func TestReportAvailability(t *testing.T) {
	t.Run("changed", func(t *testing.T) {
		router, mockRouter, _ := setupNotificationRouter(t, admin)

		mockRouter.EXPECT().ReportAvailability(gomock.Any(), notification.AvailabilityChange{
			ResourceType: "equipment",
			ResourceID:   "kayak-1",
			ResourceName: "Kayak",
			From:         notification.Unavailable,
			To:           notification.Available,
		}).Return(backInStock, true).Times(1)

		w := serve(router, "PUT", "/api/v1/resources/equipment/kayak-1/availability",
			[]byte(`{"resourceName":"Kayak","from":"unavailable","to":"available"}`))

		assert.Equal(t, 200, w.Code)
		assert.JSONEq(t, mustJSON(t, backInStock), w.Body.String())
	})

	t.Run("unchanged", func(t *testing.T) {
		router, mockRouter, _ := setupNotificationRouter(t, admin)

		mockRouter.EXPECT().ReportAvailability(gomock.Any(), gomock.Any()).Return(notification.Event{}, false).Times(1)

		w := serve(router, "PUT", "/api/v1/resources/equipment/kayak-1/availability", []byte(`{"from":"limited","to":"limited"}`))

		assert.Equal(t, 204, w.Code)
	})

	t.Run("unknown availability", func(t *testing.T) {
		router, _, _ := setupNotificationRouter(t, admin)

		w := serve(router, "PUT", "/api/v1/resources/equipment/kayak-1/availability", []byte(`{"from":"plenty","to":"available"}`))

		assert.Equal(t, 400, w.Code)
		assert.JSONEq(t, `{"error":"unknown availability"}`, w.Body.String())
	})

	t.Run("not admin", func(t *testing.T) {
		router, _, _ := setupNotificationRouter(t, user)

		w := serve(router, "PUT", "/api/v1/resources/equipment/kayak-1/availability", []byte(`{"from":"limited","to":"available"}`))

		assert.Equal(t, 403, w.Code)
	})
}
