package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// originSet is the normalized whitelist of allowed origins. An empty set
// allows every origin.
type originSet map[string]struct{}

func newOriginSet(origins []string) originSet {
	set := make(originSet, len(origins))
	for _, origin := range origins {
		set[normalize(origin)] = struct{}{}
	}
	return set
}

func (s originSet) allows(origin string) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[normalize(origin)]
	return ok
}

func normalize(origin string) string {
	return strings.TrimRight(origin, "/")
}

// New returns the CORS middleware for the configured origin whitelist.
// Preflight requests are answered directly with 204.
func New(allowedOrigins []string) gin.HandlerFunc {
	allowed := newOriginSet(allowedOrigins)

	return func(c *gin.Context) {
		headers := c.Writer.Header()

		if origin := c.GetHeader("Origin"); origin != "" {
			if allowed.allows(origin) {
				headers.Set("Access-Control-Allow-Origin", origin)
			}
		} else if len(allowed) == 0 {
			headers.Set("Access-Control-Allow-Origin", "*")
		}

		headers.Set("Vary", "Origin")
		headers.Set("Access-Control-Allow-Credentials", "true")
		headers.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With, X-Request-ID")
		headers.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		headers.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
