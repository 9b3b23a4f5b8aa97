package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/bookrental/pkg/logctx"
	"github.com/fatflowers/bookrental/pkg/response"
)

// HeaderUserID carries the acting user, set by the gateway in front of this service.
const HeaderUserID = "X-User-ID"

// UserMiddleware copies X-User-ID into the gin and request contexts. When
// required is true, requests without the header are rejected.
func UserMiddleware(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing "+HeaderUserID+" header"))
				return
			}
			c.Next()
			return
		}
		c.Set(logctx.KeyUserID, userID)
		c.Request = c.Request.WithContext(logctx.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

// UserIDFrom returns the acting user set by UserMiddleware.
func UserIDFrom(c *gin.Context) string {
	return c.GetString(logctx.KeyUserID)
}
