package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore forbids caching of responses. Session state changes every
// second, so a cached copy is always stale.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
