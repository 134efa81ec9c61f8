package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "retailcore/internal/core/context"
)

// HeaderUserID names the acting user when authentication is disabled.
const HeaderUserID = "X-User-ID"

// StaticUser stands in for Auth when AUTH_DISABLED=true: the acting user is taken
// from X-User-ID, or fallback when the header is absent. Roles are never granted.
func StaticUser(fallback string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			userID = fallback
		}

		c.Set("user_id", userID)
		c.Request = c.Request.WithContext(appctx.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}
