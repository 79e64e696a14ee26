package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizquest/quizquest-go/internal/response"
)

// MaxBodyBytes rejects request bodies larger than limit with a 413.
// Submissions are tiny; anything big is a client bug or abuse.
func MaxBodyBytes(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			response.AbortFail(c, http.StatusRequestEntityTooLarge, response.ErrPayloadTooBig)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
