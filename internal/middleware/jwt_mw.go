package middleware

import (
	"net/http"
	"strings"

	"goodfit/internal/model"
	"goodfit/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	AuthPrincipalKey = "authPrincipal"
	AuthTokenKey     = "authToken"
)

// BearerToken extracts the token from an "Authorization: Bearer" header
func BearerToken(c *gin.Context) (string, bool) {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// JWTAuthMiddleware authenticates the bearer token against a live session
func JWTAuthMiddleware(auth service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		token, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(AuthPrincipalKey, *principal)
		c.Set(AuthTokenKey, token)
		c.Next()
	}
}

// GetPrincipal returns the authenticated caller set by the auth middleware
func GetPrincipal(c *gin.Context) (model.Principal, bool) {
	v, exists := c.Get(AuthPrincipalKey)
	if !exists {
		return model.Principal{}, false
	}
	p, ok := v.(model.Principal)
	return p, ok
}
