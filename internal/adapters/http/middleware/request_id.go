// Package middleware holds the gin middleware chain of the API server.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finboard/walletcore/internal/adapters/http/common"
)

// RequestID attaches a request ID to every request, reusing the one
// from the X-Request-ID header when the caller supplied it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(common.RequestIDKey)
		if id == "" {
			id = uuid.New().String()
		}
		common.SetRequestID(c, id)
		c.Next()
	}
}

// GetRequestID re-exports the lookup for middleware-internal use.
func GetRequestID(c *gin.Context) string {
	return common.GetRequestID(c)
}
