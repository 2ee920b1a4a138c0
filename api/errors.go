package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	bk "github.com/hanksha/camping-booking-backend/booking"
	"github.com/hanksha/camping-booking-backend/notification"
)

// writeError records err on the context and answers with the status its
// kind maps to. fallback is the message used for unexpected failures.
func writeError(c *gin.Context, err error, fallback string) {
	c.Error(err)

	var validationErr *bk.ValidationError
	var conflictErr *bk.ConflictError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Error(),
			"field": validationErr.Field,
		})
	case errors.As(err, &conflictErr):
		ids := make([]string, 0, len(conflictErr.Conflicts))
		for _, b := range conflictErr.Conflicts {
			ids = append(ids, b.ID)
		}
		c.JSON(http.StatusConflict, gin.H{
			"error":     "reservation conflicts with an existing booking",
			"conflicts": ids,
		})
	case errors.Is(err, bk.ErrTransitionInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "booking status change already in progress"})
	case errors.Is(err, bk.ErrNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	case errors.Is(err, bk.ErrInvalidBookingState):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking state"})
	case errors.Is(err, bk.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
	case errors.Is(err, bk.ErrResourceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
	case errors.Is(err, notification.ErrSubscriberNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "subscriber not found"})
	case errors.Is(err, notification.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
	case errors.Is(err, bk.ErrNetwork):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     fallback,
			"retryable": true,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
