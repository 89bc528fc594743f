package middleware

import (
	"net/http"

	"goodfit/internal/access"

	"github.com/gin-gonic/gin"
)

// RoleMiddleware admits callers whose role the access table permits on route
func RoleMiddleware(route access.Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		if access.Public(route) {
			c.Next()
			return
		}

		principal, exists := GetPrincipal(c)
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Role not found in token, ensure JWT middleware runs first"})
			return
		}

		if !access.Allowed(route, principal.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
			return
		}

		c.Next()
	}
}
