package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore keeps per-user results out of shared and browser caches.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "private, no-store")
		c.Next()
	}
}
