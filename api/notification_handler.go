package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	bk "github.com/hanksha/camping-booking-backend/booking"
	"github.com/hanksha/camping-booking-backend/notification"
)

type NotificationRouter interface {
	ReportAvailability(ctx context.Context, change notification.AvailabilityChange) (notification.Event, bool)
	History() []notification.Event
	MarkRead(ctx context.Context, id string) error
	Subscribe(ctx context.Context, sub notification.Subscriber) (notification.Subscriber, error)
	Unsubscribe(ctx context.Context, id string) error
	Subscribers(ctx context.Context) ([]notification.Subscriber, error)
	Inbox(ctx context.Context, userID string) ([]notification.Event, error)
}

type NotificationRepository interface {
	ListByUser(ctx context.Context, userID string, page bk.Page) ([]notification.Event, error)
	MarkRead(ctx context.Context, userID, id string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type NotificationHandler struct {
	router NotificationRouter
	repo   NotificationRepository
}

func NewNotificationHandler(router NotificationRouter, repo NotificationRepository) *NotificationHandler {
	return &NotificationHandler{router: router, repo: repo}
}

func (h *NotificationHandler) Register(rg *gin.RouterGroup) {
	adminOnly := AdminOnly()
	rg.GET("", h.List)
	rg.GET("/unread", h.UnreadCount)
	rg.PUT("/:id/read", h.MarkRead)
	rg.GET("/inbox", h.Inbox)
	rg.GET("/history", adminOnly, h.History)
	rg.PUT("/history/:id/read", adminOnly, h.MarkHistoryRead)
	rg.GET("/subscribers", adminOnly, h.ListSubscribers)
	rg.POST("/subscribers", h.Subscribe)
	rg.DELETE("/subscribers/:id", adminOnly, h.Unsubscribe)
}

// RegisterResources mounts the availability report used by the resource
// management side.
func (h *NotificationHandler) RegisterResources(rg *gin.RouterGroup) {
	rg.PUT("/:type/:id/availability", AdminOnly(), h.ReportAvailability)
}

func (h *NotificationHandler) List(c *gin.Context) {
	var page bk.Page

	if err := c.ShouldBindQuery(&page); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}

	events, err := h.repo.ListByUser(c.Request.Context(), currentActor(c).ID, page)

	if err != nil {
		writeError(c, err, "failed to list notifications")
		return
	}

	c.IndentedJSON(http.StatusOK, events)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.repo.UnreadCount(c.Request.Context(), currentActor(c).ID)

	if err != nil {
		writeError(c, err, "failed to count notifications")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"unread": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.repo.MarkRead(c.Request.Context(), currentActor(c).ID, c.Param("id")); err != nil {
		writeError(c, err, "failed to mark notification read")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"message": "notification read"})
}

func (h *NotificationHandler) Inbox(c *gin.Context) {
	events, err := h.router.Inbox(c.Request.Context(), currentActor(c).ID)

	if err != nil {
		writeError(c, err, "failed to get inbox")
		return
	}

	c.IndentedJSON(http.StatusOK, events)
}

func (h *NotificationHandler) History(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, h.router.History())
}

func (h *NotificationHandler) MarkHistoryRead(c *gin.Context) {
	if err := h.router.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err, "failed to mark notification read")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"message": "notification read"})
}

func (h *NotificationHandler) ListSubscribers(c *gin.Context) {
	subscribers, err := h.router.Subscribers(c.Request.Context())

	if err != nil {
		writeError(c, err, "failed to list subscribers")
		return
	}

	c.IndentedJSON(http.StatusOK, subscribers)
}

// Subscribe registers the caller. Admins may register any user.
func (h *NotificationHandler) Subscribe(c *gin.Context) {
	var sub notification.Subscriber

	if err := c.BindJSON(&sub); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse JSON body"})
		return
	}

	actor := currentActor(c)

	if !actor.IsAdmin() || sub.UserID == "" {
		sub.UserID = actor.ID
		sub.ID = ""
	}

	created, err := h.router.Subscribe(c.Request.Context(), sub)

	if err != nil {
		writeError(c, err, "failed to subscribe")
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *NotificationHandler) Unsubscribe(c *gin.Context) {
	if err := h.router.Unsubscribe(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err, "failed to unsubscribe")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"message": "subscriber removed"})
}

type availabilityRequest struct {
	ResourceName string                    `json:"resourceName"`
	From         notification.Availability `json:"from"`
	To           notification.Availability `json:"to"`
}

func (h *NotificationHandler) ReportAvailability(c *gin.Context) {
	resourceType, ok := resourceTypeParam(c)
	if !ok {
		return
	}

	var req availabilityRequest

	if err := c.BindJSON(&req); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse JSON body"})
		return
	}

	if !req.From.Valid() || !req.To.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown availability"})
		return
	}

	event, changed := h.router.ReportAvailability(c.Request.Context(), notification.AvailabilityChange{
		ResourceType: string(resourceType),
		ResourceID:   c.Param("id"),
		ResourceName: req.ResourceName,
		From:         req.From,
		To:           req.To,
	})

	if !changed {
		c.Status(http.StatusNoContent)
		return
	}

	c.IndentedJSON(http.StatusOK, event)
}
