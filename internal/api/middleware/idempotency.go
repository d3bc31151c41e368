package middleware

import (
	"github.com/gin-gonic/gin"
)

// IdempotencyMiddleware exposes the Idempotency-Key request header to
// handlers so repeated kardex submissions can be answered from the
// receipt cache.
func IdempotencyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("Idempotency-Key"); key != "" {
			c.Set("idempotency_key", key)
		}
		c.Next()
	}
}
