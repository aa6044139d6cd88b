package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/dcposch/zucast/internal/auth"
	"github.com/dcposch/zucast/internal/feed"
	"go.uber.org/zap"
)

// StatusHandler exposes the operator-facing health surface: engine state
// machine, init/validate results, and entity counts.
type StatusHandler struct {
	eng    *feed.Engine
	tokens *auth.Store
	logger *zap.Logger
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(eng *feed.Engine, tokens *auth.Store, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{eng: eng, tokens: tokens, logger: logger}
}

// Register mounts the status route.
func (h *StatusHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/status", h.Status)
}

// Status handles GET /status.
func (h *StatusHandler) Status(c *gin.Context) {
	st := h.eng.GetStatus()
	c.JSON(http.StatusOK, gin.H{
		"feed": st,
		"auth": gin.H{"nTokens": h.tokens.Len()},
	})
}
