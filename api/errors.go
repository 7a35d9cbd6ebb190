package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/paraglide/internal/service/booking"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, booking.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, booking.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, booking.ErrBookingNotFound), errors.Is(err, booking.ErrNoCompany):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrStaleBooking),
		errors.Is(err, booking.ErrAlreadyProcessing),
		errors.Is(err, booking.ErrPilotUnavailable):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err as JSON. Internal errors are logged and not echoed.
func (h *BookingHandler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
