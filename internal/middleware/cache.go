package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore forbids caching of game responses. Task and progress payloads
// are per-player and time-sensitive; a cached answer is a wrong answer.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
