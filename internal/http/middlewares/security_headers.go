package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultCSP = "default-src 'none'"
	// media responses are images opened directly by browsers
	mediaCSP = "default-src 'none'; img-src 'self'"
)

func SecurityHeaders(mediaPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("X-XSS-Protection", "0")
		if mediaPrefix != "" && strings.HasPrefix(c.Request.URL.Path, mediaPrefix) {
			c.Header("Content-Security-Policy", mediaCSP)
		} else {
			c.Header("Content-Security-Policy", defaultCSP)
		}
		c.Next()
	}
}
