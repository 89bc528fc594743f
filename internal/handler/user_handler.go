package handler

import (
	"net/http"

	"goodfit/internal/access"
	"goodfit/internal/middleware"
	"goodfit/internal/model"
	"goodfit/internal/service"

	"github.com/gin-gonic/gin"
)

// UserHandler handles application user records
type UserHandler struct {
	service service.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(s service.UserService) *UserHandler {
	return &UserHandler{service: s}
}

func (h *UserHandler) GetUser(c *gin.Context) {
	caller, err := getPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// FindUsers looks a user up by the email query parameter
func (h *UserHandler) FindUsers(c *gin.Context) {
	caller, err := getPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email query parameter is required"})
		return
	}

	user, err := h.service.FindUserByEmail(c.Request.Context(), caller, email)
	if err != nil {
		respondError(c, err, "Failed to retrieve user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	caller, err := getPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var user model.User
	if err := c.ShouldBindJSON(&user); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	created, err := h.service.CreateUser(c.Request.Context(), caller, &user)
	if err != nil {
		respondError(c, err, "Failed to create user")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	caller, err := getPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var patch model.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	updated, err := h.service.UpdateUser(c.Request.Context(), caller, c.Param("id"), patch)
	if err != nil {
		respondError(c, err, "Failed to update user")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *UserHandler) ListUsersAdmin(c *gin.Context) {
	caller, err := getPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	users, err := h.service.ListUsers(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err, "Failed to retrieve users")
		return
	}
	c.JSON(http.StatusOK, users)
}

// RegisterUserRoutes registers user routes
func (h *UserHandler) RegisterUserRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	userRoutes := rg.Group("/users")
	userRoutes.Use(authMW, middleware.RoleMiddleware(access.RouteProfile))
	{
		userRoutes.GET("", h.FindUsers)
		userRoutes.GET("/:id", h.GetUser)
		userRoutes.POST("", h.CreateUser)
		userRoutes.PATCH("/:id", h.UpdateUser)
	}

	adminRoutes := rg.Group("/admin")
	adminRoutes.Use(authMW, middleware.RoleMiddleware(access.RouteAdminUsers))
	{
		adminRoutes.GET("/users", h.ListUsersAdmin)
	}
}
