package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/dcposch/zucast/internal/auth"
	"go.uber.org/zap"
)

// CookieName is the session cookie carrying the token value.
const CookieName = "zucastToken"

// viewerKey is the gin context key holding the authenticated uid.
const viewerKey = "viewerUID"

// Viewer resolves the session cookie to a uid and stashes it in the context.
// Anonymous requests proceed with viewer -1; handlers that need an identity
// call mustViewer.
func Viewer(tokens *auth.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := -1
		if cookie, err := c.Cookie(CookieName); err == nil {
			if id, ok := tokens.Authenticate(cookie); ok {
				uid = id
			}
		}
		c.Set(viewerKey, uid)
		c.Next()
	}
}

// viewer returns the authenticated uid, or -1 for logged-out requests.
func viewer(c *gin.Context) int {
	return c.GetInt(viewerKey)
}

// mustViewer aborts with 401 unless the request carries a valid session.
func mustViewer(c *gin.Context) (int, bool) {
	uid := viewer(c)
	if uid < 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return -1, false
	}
	return uid, true
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
