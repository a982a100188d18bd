package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"

	"github.com/gin-gonic/gin"
)

// APIKeyMiddleware gates the whole API surface on a shared key, checked
// before any JWT work happens. Keys come from configuration; an empty
// key list disables the check (local development).
func APIKeyMiddleware(keys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(keys) == 0 {
			c.Next()
			return
		}

		provided := c.GetHeader("X-API-Key")
		if provided == "" {
			c.JSON(http.StatusUnauthorized, errors.ErrorResponse{
				Error:   errors.ErrUnauthorized.Code,
				Message: "X-API-Key header is required",
			})
			c.Abort()
			return
		}

		for _, key := range keys {
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1 {
				c.Set("api_key", provided)
				c.Next()
				return
			}
		}

		c.JSON(http.StatusUnauthorized, errors.ErrorResponse{
			Error:   errors.ErrUnauthorized.Code,
			Message: "Invalid API key",
		})
		c.Abort()
	}
}
