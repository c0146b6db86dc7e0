package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/utils"
)

const RoleAdmin = "admin"

// AdminAuthMiddleware accepts "Authorization: Bearer <jwt>" whose role
// claim is admin. With an empty secret every request is refused.
func AdminAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(raw, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing_token"})
			return
		}

		claims, err := utils.ParseToken(strings.TrimSpace(token), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid_token"})
			return
		}
		if claims.Role != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "forbidden"})
			return
		}

		c.Set("adminSubject", claims.Name)
		c.Next()
	}
}
