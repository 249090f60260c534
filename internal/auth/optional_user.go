package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// DevUser sets a firebase uid in context without enforcing auth.
// - If X-User-Id is missing, it falls back to "demo-user".
// - Use this ONLY for development/testing.
func DevUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if uid == "" {
			uid = "demo-user"
		}

		c.Set(CtxFirebaseUID, uid)
		if email := strings.TrimSpace(c.GetHeader("X-User-Email")); email != "" {
			c.Set(CtxEmail, email)
		}

		c.Next()
	}
}
