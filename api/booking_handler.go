package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	bk "github.com/hanksha/camping-booking-backend/booking"
)

type BookingService interface {
	ListBookings(ctx context.Context, resourceType bk.ResourceType, filter bk.ListFilter, page bk.Page) ([]bk.Booking, error)
	GetStats(ctx context.Context, resourceType bk.ResourceType) (bk.StatusCounts, error)
	FindBookingByID(ctx context.Context, id string) (bk.Booking, error)
	FindBookingsPerRequester(ctx context.Context, requesterID string) ([]bk.Booking, error)
	Quote(ctx context.Context, candidate bk.Candidate) (bk.Quote, error)
	Submit(ctx context.Context, actor bk.Actor, candidate bk.Candidate) (bk.Booking, error)
	Approve(ctx context.Context, actor bk.Actor, id, notes string) (bk.Booking, error)
	Reject(ctx context.Context, actor bk.Actor, id, reason, notes string) (bk.Booking, error)
	Cancel(ctx context.Context, actor bk.Actor, id string) (bk.Booking, error)
	Complete(ctx context.Context, actor bk.Actor, id string) (bk.Booking, error)
	Purge(ctx context.Context, actor bk.Actor, id string) error
}

// Overlay receives the expected status of a booking before an admin action
// reaches the store, and is refreshed when the action fails.
type Overlay interface {
	ApplyOptimistic(id string, status bk.Status) bool
	Trigger()
}

type BookingHandler struct {
	service BookingService
	overlay Overlay
}

func NewBookingHandler(service BookingService, overlay Overlay) *BookingHandler {
	return &BookingHandler{service: service, overlay: overlay}
}

func (h *BookingHandler) Register(rg *gin.RouterGroup) {
	adminOnly := AdminOnly()
	rg.GET("/type/:type", adminOnly, h.ListByType)
	rg.GET("/booking/:id", h.GetByID)
	rg.GET("/requester/:id", h.GetByRequester)
	rg.GET("/stats/:type", adminOnly, h.GetStats)
	rg.POST("", h.Submit)
	rg.POST("/quote", h.Quote)
	rg.PUT("/:id/approve", adminOnly, h.Approve)
	rg.PUT("/:id/reject", adminOnly, h.Reject)
	rg.PUT("/:id/complete", adminOnly, h.Complete)
	rg.PUT("/:id/cancel", h.Cancel)
	rg.DELETE("/:id", h.Purge)
}

func resourceTypeParam(c *gin.Context) (bk.ResourceType, bool) {
	resourceType := bk.ResourceType(c.Param("type"))

	if !resourceType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown resource type"})
		return "", false
	}

	return resourceType, true
}

func (h *BookingHandler) ListByType(c *gin.Context) {
	resourceType, ok := resourceTypeParam(c)
	if !ok {
		return
	}

	var filter bk.ListFilter
	var page bk.Page

	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter"})
		return
	}

	if err := c.ShouldBindQuery(&page); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}

	bookings, err := h.service.ListBookings(c.Request.Context(), resourceType, filter, page)

	if err != nil {
		writeError(c, err, "failed to retrieve bookings")
		return
	}

	c.IndentedJSON(http.StatusOK, bookings)
}

func (h *BookingHandler) GetByID(c *gin.Context) {
	booking, err := h.service.FindBookingByID(c.Request.Context(), c.Param("id"))

	if err != nil {
		writeError(c, err, "failed to fetch booking")
		return
	}

	actor := currentActor(c)

	if booking.RequesterID != actor.ID && !actor.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	c.IndentedJSON(http.StatusOK, booking)
}

func (h *BookingHandler) GetByRequester(c *gin.Context) {
	requesterID := c.Param("id")
	actor := currentActor(c)

	if requesterID != actor.ID && !actor.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	bookings, err := h.service.FindBookingsPerRequester(c.Request.Context(), requesterID)

	if err != nil {
		writeError(c, err, "failed to get bookings")
		return
	}

	c.IndentedJSON(http.StatusOK, bookings)
}

func (h *BookingHandler) GetStats(c *gin.Context) {
	resourceType, ok := resourceTypeParam(c)
	if !ok {
		return
	}

	stats, err := h.service.GetStats(c.Request.Context(), resourceType)

	if err != nil {
		writeError(c, err, "failed to get booking stats")
		return
	}

	c.IndentedJSON(http.StatusOK, stats)
}

func (h *BookingHandler) Quote(c *gin.Context) {
	var candidate bk.Candidate

	if err := c.ShouldBindJSON(&candidate); err != nil {
		bindError(c, err)
		return
	}

	quote, err := h.service.Quote(c.Request.Context(), candidate)

	if err != nil {
		writeError(c, err, "failed to quote reservation")
		return
	}

	c.IndentedJSON(http.StatusOK, quote)
}

func (h *BookingHandler) Submit(c *gin.Context) {
	var candidate bk.Candidate

	if err := c.ShouldBindJSON(&candidate); err != nil {
		bindError(c, err)
		return
	}

	inserted, err := h.service.Submit(c.Request.Context(), currentActor(c), candidate)

	if err != nil {
		writeError(c, err, "failed to create booking")
		return
	}

	c.JSON(http.StatusCreated, inserted)
}

// bindError answers a body that could not be decoded. Malformed dates are
// reported like any other invalid reservation field.
func bindError(c *gin.Context, err error) {
	if errors.Is(err, bk.ErrValidation) {
		writeError(c, err, "failed to parse JSON body")
		return
	}

	c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse JSON body"})
}

type approveRequest struct {
	Notes string `json:"notes"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

// bindOptionalJSON binds a JSON body when one is sent. An empty body leaves
// obj untouched.
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse JSON body"})
		return false
	}
	return true
}

func (h *BookingHandler) Approve(c *gin.Context) {
	var req approveRequest

	if !bindOptionalJSON(c, &req) {
		return
	}

	id := c.Param("id")

	h.expect(id, bk.StatusApproved)

	if _, err := h.service.Approve(c.Request.Context(), currentActor(c), id, req.Notes); err != nil {
		h.resync()
		writeError(c, err, "failed to approve booking")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"message": "booking approved"})
}

func (h *BookingHandler) Reject(c *gin.Context) {
	var req rejectRequest

	if !bindOptionalJSON(c, &req) {
		return
	}

	id := c.Param("id")

	h.expect(id, bk.StatusRejected)

	if _, err := h.service.Reject(c.Request.Context(), currentActor(c), id, req.Reason, req.Notes); err != nil {
		h.resync()
		writeError(c, err, "failed to reject booking")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"message": "booking rejected"})
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	actor := currentActor(c)

	// Ownership is only known once the service has loaded the booking, so
	// a user's cancellation reaches the dashboard through a refresh.
	if actor.IsAdmin() {
		h.expect(id, bk.StatusCancelled)
	}

	if _, err := h.service.Cancel(c.Request.Context(), actor, id); err != nil {
		if actor.IsAdmin() {
			h.resync()
		}
		writeError(c, err, "failed to cancel booking")
		return
	}

	if !actor.IsAdmin() {
		h.resync()
	}

	c.IndentedJSON(http.StatusOK, gin.H{"message": "booking cancelled"})
}

func (h *BookingHandler) Complete(c *gin.Context) {
	if _, err := h.service.Complete(c.Request.Context(), currentActor(c), c.Param("id")); err != nil {
		writeError(c, err, "failed to complete booking")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"message": "booking completed"})
}

func (h *BookingHandler) Purge(c *gin.Context) {
	if err := h.service.Purge(c.Request.Context(), currentActor(c), c.Param("id")); err != nil {
		writeError(c, err, "failed to delete booking")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"message": "booking deleted"})
}

func (h *BookingHandler) expect(id string, status bk.Status) {
	if h.overlay != nil {
		h.overlay.ApplyOptimistic(id, status)
	}
}

func (h *BookingHandler) resync() {
	if h.overlay != nil {
		h.overlay.Trigger()
	}
}
