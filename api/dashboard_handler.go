package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hanksha/camping-booking-backend/aggregate"
	"github.com/hanksha/camping-booking-backend/snapshot"
)

type Dashboard interface {
	View() (aggregate.View, time.Time)
	Trigger()
}

type SnapshotSource interface {
	Fetch(ctx context.Context) (snapshot.Snapshot, error)
}

type DashboardHandler struct {
	dashboard Dashboard
	snapshots SnapshotSource
}

func NewDashboardHandler(dashboard Dashboard, snapshots SnapshotSource) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, snapshots: snapshots}
}

func (h *DashboardHandler) Register(rg *gin.RouterGroup) {
	rg.Use(AdminOnly())
	rg.GET("", h.Get)
	rg.GET("/snapshot", h.Snapshot)
	rg.POST("/refresh", h.Refresh)
}

// Get returns the synchronized view. Stats always describe the whole view;
// status and q only narrow the booking list.
func (h *DashboardHandler) Get(c *gin.Context) {
	var criteria aggregate.Criteria

	if err := c.ShouldBindQuery(&criteria); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter"})
		return
	}

	view, serverTime := h.dashboard.View()

	c.IndentedJSON(http.StatusOK, gin.H{
		"bookings":   aggregate.Filter(view.Bookings, criteria),
		"stats":      view.Stats,
		"serverTime": serverTime,
	})
}

// Snapshot builds a fresh authoritative snapshot from this instance's store.
func (h *DashboardHandler) Snapshot(c *gin.Context) {
	snap, err := h.snapshots.Fetch(c.Request.Context())

	if err != nil {
		writeError(c, err, "failed to build snapshot")
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (h *DashboardHandler) Refresh(c *gin.Context) {
	h.dashboard.Trigger()

	c.JSON(http.StatusAccepted, gin.H{"message": "refresh scheduled"})
}
