package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey  = "userId"
	isGuestKey = "isGuest"

	anonymousOwner = "anonymous"
)

// Identity records the caller's opaque owner id. X-User-Id is passed through
// as is; X-Guest-Id becomes "guest:<id>"; without either the caller is
// "anonymous". Authentication happens upstream of this service.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		if userID := strings.TrimSpace(c.GetHeader("X-User-Id")); userID != "" {
			c.Set(userIDKey, userID)
			c.Set(isGuestKey, false)
			c.Next()
			return
		}

		owner := anonymousOwner
		if guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id")); guestID != "" {
			owner = "guest:" + guestID
		}
		c.Set(userIDKey, owner)
		c.Set(isGuestKey, true)
		c.Next()
	}
}

// UserIDFromContext fetches the owner id set by Identity.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
