// Package server is the thin HTTP boundary over the feed engine. Handlers
// translate requests to engine calls and engine errors to status codes; no
// feed semantics live here.
package server

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/dcposch/zucast/internal/auth"
	"github.com/dcposch/zucast/internal/feed"
	"go.uber.org/zap"
)

// Config tunes the HTTP layer.
type Config struct {
	CORSOrigins  []string
	RateLimitRPS int
	RateBurst    int
	// CookieSecure marks the session cookie Secure; off for local dev.
	CookieSecure bool
}

// NewRouter builds the gin engine with all routes and middleware mounted.
func NewRouter(eng *feed.Engine, tokens *auth.Store, cfg Config, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	r.Use(PrometheusMiddleware())

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type"},
			AllowCredentials: true,
		}))
	}

	if cfg.RateLimitRPS > 0 {
		r.Use(RateLimiter(cfg.RateLimitRPS, cfg.RateBurst))
	}

	r.GET("/metrics", MetricsHandler())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api := r.Group("/api")
	api.Use(Viewer(tokens))

	NewAuthHandler(eng, tokens, cfg.CookieSecure, logger).Register(api)
	NewFeedHandler(eng, logger).Register(api)
	NewStatusHandler(eng, tokens, logger).Register(api)
	return r
}

// abortErr maps an engine error to a response, preserving the taxonomy.
func abortErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, feed.ErrNotReady):
		status = http.StatusServiceUnavailable
	case errors.Is(err, feed.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, feed.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, feed.ErrDuplicate):
		status = http.StatusConflict
	case errors.Is(err, feed.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, feed.ErrInvalidContent):
		status = http.StatusBadRequest
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
