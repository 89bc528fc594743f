package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"goodfit/internal/middleware"
	"goodfit/internal/model"
	"goodfit/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// AuthHandler handles one-time code and session requests
type AuthHandler struct {
	service  service.AuthService
	validate *validator.Validate
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(s service.AuthService) *AuthHandler {
	return &AuthHandler{service: s, validate: validator.New()}
}

type contactRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,e164"`
}

// validContact requires exactly one well-formed address
func (h *AuthHandler) validContact(req contactRequest) error {
	if (req.Email == "") == (req.Phone == "") {
		return service.ErrInvalidContact
	}
	return h.validate.Struct(req)
}

func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if err := h.validContact(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact: " + err.Error()})
		return
	}

	err := h.service.RequestOneTimeCode(c.Request.Context(), model.Contact{Email: req.Email, Phone: req.Phone})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidContact):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrDeliveryFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			slog.ErrorContext(c.Request.Context(), "otp_request_failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send code"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Code sent"})
}

func (h *AuthHandler) Verify(c *gin.Context) {
	var req model.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	contact := model.Contact{Email: req.Email}
	if req.Type == model.OTPTypeSMS {
		contact = model.Contact{Phone: req.Phone}
	}
	if err := h.validContact(contactRequest{Email: contact.Email, Phone: contact.Phone}); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact for type " + req.Type})
		return
	}

	session, err := h.service.VerifyOneTimeCode(c.Request.Context(), contact, req.Token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCode), errors.Is(err, service.ErrTooManyAttempts):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidContact):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			slog.ErrorContext(c.Request.Context(), "otp_verify_failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify code"})
		}
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *AuthHandler) GetSession(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
		return
	}

	session, err := h.service.GetSession(c.Request.Context(), token)
	if err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
		return
	}

	session, err := h.service.Refresh(c.Request.Context(), token)
	if err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
		return
	}

	if err := h.service.SignOut(c.Request.Context(), token); err != nil {
		h.sessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) sessionError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrSessionNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	slog.ErrorContext(c.Request.Context(), "session_lookup_failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
}

// RegisterAuthRoutes registers auth routes
func (h *AuthHandler) RegisterAuthRoutes(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth/v1")
	{
		authGroup.POST("/otp", h.RequestOTP)
		authGroup.POST("/verify", h.Verify)
		authGroup.GET("/session", h.GetSession)
		authGroup.POST("/token", h.Refresh)
		authGroup.POST("/logout", h.Logout)
	}
}
