package handler

import (
	"net/http"

	"goodfit/internal/access"
	"goodfit/internal/middleware"
	"goodfit/internal/model"
	"goodfit/internal/service"

	"github.com/gin-gonic/gin"
)

// CatalogHandler handles gyms, classes and subscription plans
type CatalogHandler struct {
	service service.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(s service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: s}
}

func (h *CatalogHandler) ListGyms(c *gin.Context) {
	gyms, err := h.service.ListGyms(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to retrieve gyms")
		return
	}
	c.JSON(http.StatusOK, gyms)
}

func (h *CatalogHandler) GetGym(c *gin.Context) {
	gym, err := h.service.GetGym(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve gym")
		return
	}
	c.JSON(http.StatusOK, gym)
}

func (h *CatalogHandler) CreateGym(c *gin.Context) {
	caller, err := getPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var gym model.Gym
	if err := c.ShouldBindJSON(&gym); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	created, err := h.service.CreateGym(c.Request.Context(), caller, &gym)
	if err != nil {
		respondError(c, err, "Failed to create gym")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateGym applies the fields present in the body to the stored gym
func (h *CatalogHandler) UpdateGym(c *gin.Context) {
	caller, err := getPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	gym, err := h.service.GetGym(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve gym")
		return
	}
	if err := c.ShouldBindJSON(gym); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	gym.ID = c.Param("id")

	updated, err := h.service.UpdateGym(c.Request.Context(), caller, gym)
	if err != nil {
		respondError(c, err, "Failed to update gym")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *CatalogHandler) DeleteGym(c *gin.Context) {
	caller, err := getPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.DeleteGym(c.Request.Context(), caller, c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete gym")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) ImageUploadURL(c *gin.Context) {
	caller, err := getPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		FileName    string `json:"file_name" binding:"required"`
		ContentType string `json:"content_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	upload, err := h.service.ImageUploadURL(c.Request.Context(), caller, c.Param("id"), req.FileName, req.ContentType)
	if err != nil {
		respondError(c, err, "Failed to create upload URL")
		return
	}
	c.JSON(http.StatusOK, upload)
}

func (h *CatalogHandler) AttachImage(c *gin.Context) {
	caller, err := getPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		URL string `json:"url" binding:"required,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	gym, err := h.service.AttachImage(c.Request.Context(), caller, c.Param("id"), req.URL)
	if err != nil {
		respondError(c, err, "Failed to attach image")
		return
	}
	c.JSON(http.StatusOK, gym)
}

func (h *CatalogHandler) ListClasses(c *gin.Context) {
	classes, err := h.service.ListClasses(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve classes")
		return
	}
	c.JSON(http.StatusOK, classes)
}

func (h *CatalogHandler) GetClass(c *gin.Context) {
	class, err := h.service.GetClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve class")
		return
	}
	c.JSON(http.StatusOK, class)
}

func (h *CatalogHandler) CreateClass(c *gin.Context) {
	caller, err := getPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var class model.FitnessClass
	if err := c.ShouldBindJSON(&class); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	class.BookedCount = 0

	created, err := h.service.CreateClass(c.Request.Context(), caller, &class)
	if err != nil {
		respondError(c, err, "Failed to create class")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *CatalogHandler) DeleteClass(c *gin.Context) {
	caller, err := getPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.DeleteClass(c.Request.Context(), caller, c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete class")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) ListSubscriptions(c *gin.Context) {
	plans, err := h.service.ListSubscriptions(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to retrieve subscriptions")
		return
	}
	c.JSON(http.StatusOK, plans)
}

// RegisterCatalogRoutes registers public catalog reads and staff writes
func (h *CatalogHandler) RegisterCatalogRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/gyms", h.ListGyms)
	rg.GET("/gyms/:id", h.GetGym)
	rg.GET("/gyms/:id/classes", h.ListClasses)
	rg.GET("/classes/:id", h.GetClass)
	rg.GET("/subscriptions", h.ListSubscriptions)

	gymRoutes := rg.Group("/gyms")
	gymRoutes.Use(authMW, middleware.RoleMiddleware(access.RouteAdminGyms))
	{
		gymRoutes.POST("", h.CreateGym)
		gymRoutes.PATCH("/:id", h.UpdateGym)
		gymRoutes.DELETE("/:id", h.DeleteGym) // Service layer handles partner ownership
		gymRoutes.POST("/:id/image-upload-url", h.ImageUploadURL)
		gymRoutes.POST("/:id/images", h.AttachImage)
	}

	classRoutes := rg.Group("/classes")
	classRoutes.Use(authMW, middleware.RoleMiddleware(access.RouteAdminClasses))
	{
		classRoutes.POST("", h.CreateClass)
		classRoutes.DELETE("/:id", h.DeleteClass)
	}
}
