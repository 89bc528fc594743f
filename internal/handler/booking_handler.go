package handler

import (
	"net/http"

	"goodfit/internal/access"
	"goodfit/internal/middleware"
	"goodfit/internal/model"
	"goodfit/internal/service"

	"github.com/gin-gonic/gin"
)

// BookingHandler handles the caller's bookings and the seat counter procedures
type BookingHandler struct {
	service service.BookingService
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(s service.BookingService) *BookingHandler {
	return &BookingHandler{service: s}
}

// ListBookings returns the caller's bookings, or with class_id and active=true
// only the caller's active bookings of that class.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	caller, err := getPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var bookings []model.Booking
	if classID := c.Query("class_id"); classID != "" {
		bookings, err = h.service.ListActive(c.Request.Context(), caller, classID)
	} else {
		bookings, err = h.service.ListMine(c.Request.Context(), caller)
	}
	if err != nil {
		respondError(c, err, "Failed to retrieve bookings")
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	caller, err := getPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req model.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	booking, err := h.service.Create(c.Request.Context(), caller, req)
	if err != nil {
		respondError(c, err, "Failed to create booking")
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// DeleteBooking removes the caller's booking and returns the removed row
func (h *BookingHandler) DeleteBooking(c *gin.Context) {
	caller, err := getPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	// A delete scoped to another user matches no row.
	if owner := c.Query("user_id"); owner != "" && owner != caller.UserID {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrBookingNotFound.Error()})
		return
	}

	removed, err := h.service.DeleteOwned(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to delete booking")
		return
	}
	c.JSON(http.StatusOK, removed)
}

func (h *BookingHandler) IncrementBookedCount(c *gin.Context) {
	var ref model.ClassRef
	if err := c.ShouldBindJSON(&ref); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if err := h.service.IncrementBookedCount(c.Request.Context(), ref.ClassID); err != nil {
		respondError(c, err, "Failed to update booked count")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BookingHandler) DecrementBookedCount(c *gin.Context) {
	var ref model.ClassRef
	if err := c.ShouldBindJSON(&ref); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if err := h.service.DecrementBookedCount(c.Request.Context(), ref.ClassID); err != nil {
		respondError(c, err, "Failed to update booked count")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BookingHandler) ListAllBookingsAdmin(c *gin.Context) {
	caller, err := getPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	bookings, err := h.service.ListAll(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err, "Failed to retrieve bookings")
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// RegisterBookingRoutes registers booking and rpc routes
func (h *BookingHandler) RegisterBookingRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	bookingRoutes := rg.Group("/bookings")
	bookingRoutes.Use(authMW, middleware.RoleMiddleware(access.RouteBookings))
	{
		bookingRoutes.GET("", h.ListBookings)
		bookingRoutes.POST("", h.CreateBooking)
		bookingRoutes.DELETE("/:id", h.DeleteBooking) // Ownership is part of the delete predicate
	}

	rpcRoutes := rg.Group("/rpc")
	rpcRoutes.Use(authMW, middleware.RoleMiddleware(access.RouteBookings))
	{
		rpcRoutes.POST("/increment_booked_count", h.IncrementBookedCount)
		rpcRoutes.POST("/decrement_booked_count", h.DecrementBookedCount)
	}

	adminRoutes := rg.Group("/admin")
	adminRoutes.Use(authMW, middleware.RoleMiddleware(access.RouteAdminBookings))
	{
		adminRoutes.GET("/bookings", h.ListAllBookingsAdmin)
	}
}
