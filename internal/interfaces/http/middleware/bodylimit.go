package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mfgorder/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects request bodies larger than maxBytes. Declared sizes are
// checked up front; bodies sent without a Content-Length fail on read.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			abortTooLarge(c)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func abortTooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.Fail(
		dto.ErrCodePayloadTooLarge,
		"Request body exceeds maximum allowed size",
		c.GetString(RequestIDContextKey),
	))
}
