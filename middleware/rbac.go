package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/college-canteen/canteen-api/models"
	"github.com/gin-gonic/gin"
)

// RequireCapability allows the request only when the authenticated role
// holds capability. Authenticate must run first.
func RequireCapability(capability models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := CurrentUser(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.")
			return
		}

		if !models.Can(user.Role, capability) {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Access denied. Insufficient permissions.")
			return
		}

		c.Next()
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func errorBody(code, message string) []byte {
	body, _ := json.Marshal(gin.H{
		"success": false,
		"message": message,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
	return body
}
