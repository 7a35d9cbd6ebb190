package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Domenick1991/paraglide/internal/auth"
	"github.com/Domenick1991/paraglide/internal/dashboard"
	"github.com/Domenick1991/paraglide/internal/domain"
	"github.com/Domenick1991/paraglide/internal/service/booking"
	"github.com/Domenick1991/paraglide/internal/service/pilots"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service booking.BookingUseCase
	pilots  pilots.PilotUseCase
	logger  *zap.Logger
	now     func() time.Time
}

type assignPilotRequest struct {
	PilotID string `json:"pilot_id" binding:"required"`
}

func NewBookingHandler(service booking.BookingUseCase, pilots pilots.PilotUseCase, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{service: service, pilots: pilots, logger: logger, now: time.Now}
}

// RegisterPublic mounts the customer booking endpoint.
func (h *BookingHandler) RegisterPublic(router *gin.RouterGroup) {
	router.POST("/bookings", h.create)
}

// Register mounts the endpoints that need a session.
func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("/dashboard/bookings", h.dashboard)
	router.POST("/bookings/:id/confirm", h.action(h.service.Confirm))
	router.POST("/bookings/:id/cancel", h.action(h.service.Cancel))
	router.POST("/bookings/:id/complete", h.action(h.service.Complete))
	router.POST("/bookings/:id/seen", h.action(h.service.MarkSeen))
	router.POST("/bookings/:id/assign", h.assign)
	router.GET("/admin/bookings", h.adminList)
	router.DELETE("/admin/bookings/:id", h.adminDelete)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req booking.CreateBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// dashboard renders the company's bookings the way a dashboard session would.
func (h *BookingHandler) dashboard(c *gin.Context) {
	sess := session(c)
	tab, err := dashboard.ParseTab(c.Query("tab"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err = h.service.ResolveCompany(c.Request.Context(), sess)
	if errors.Is(err, booking.ErrNoCompany) || (err == nil && sess.CompanyID == "") {
		c.JSON(http.StatusOK, gin.H{"state": dashboard.StateNoCompany})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	rows, err := h.service.ListForCompany(c.Request.Context(), sess)
	if err != nil {
		h.fail(c, err)
		return
	}
	verified, err := h.pilots.Verified(c.Request.Context(), sess.CompanyID)
	if err != nil {
		h.logger.Warn("load pilots", zap.String("company_id", sess.CompanyID), zap.Error(err))
		verified = nil
	}

	c.JSON(http.StatusOK, dashboard.BuildView(sess, rows, verified, tab, c.Query("search"), h.now()))
}

type actionFunc func(ctx context.Context, sess domain.Session, id string) (*domain.Booking, error)

// action runs one booking write for the caller. A company session gets its
// company resolved first; other roles go through as they are.
func (h *BookingHandler) action(fn actionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := h.service.ResolveCompany(c.Request.Context(), session(c))
		if err != nil && !errors.Is(err, booking.ErrForbidden) {
			h.fail(c, err)
			return
		}
		updated, err := fn(c.Request.Context(), sess, c.Param("id"))
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func (h *BookingHandler) assign(c *gin.Context) {
	var req assignPilotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.action(func(ctx context.Context, sess domain.Session, id string) (*domain.Booking, error) {
		return h.service.AssignPilot(ctx, sess, id, req.PilotID)
	})(c)
}

func (h *BookingHandler) adminList(c *gin.Context) {
	tab, err := dashboard.ParseTab(c.Query("tab"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := session(c)
	rows, err := h.service.ListAll(c.Request.Context(), sess)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard.BuildView(sess, rows, nil, tab, c.Query("search"), h.now()))
}

func (h *BookingHandler) adminDelete(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deletion must be confirmed with confirm=true"})
		return
	}
	if err := h.service.DeleteBooking(c.Request.Context(), session(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func session(c *gin.Context) domain.Session {
	sess, _ := auth.SessionFrom(c)
	return sess
}
