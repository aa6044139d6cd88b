package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/dcposch/zucast/internal/auth"
	"github.com/dcposch/zucast/internal/feed"
	"go.uber.org/zap"
)

// cookieMaxAge keeps sessions for a year; tokens are view-only.
const cookieMaxAge = 365 * 24 * 3600

// AuthHandler handles login (key registration) and session hydration.
type AuthHandler struct {
	eng          *feed.Engine
	tokens       *auth.Store
	cookieSecure bool
	logger       *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(eng *feed.Engine, tokens *auth.Store, cookieSecure bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{eng: eng, tokens: tokens, cookieSecure: cookieSecure, logger: logger}
}

// Register mounts the auth routes.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	{
		a.POST("/login", h.Login)
		a.GET("/self", h.Self)
	}
}

type loginRequest struct {
	PCD       string `json:"pcd" binding:"required"`
	PubKeyHex string `json:"pubKeyHex" binding:"required"`
}

// Login handles POST /auth/login: appends an addKey transaction, then issues
// a session token for the resulting identity.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pcd and pubKeyHex are required"})
		return
	}

	user, err := h.eng.Append(c.Request.Context(), feed.Transaction{
		Type:      feed.TxAddKey,
		PCD:       req.PCD,
		PubKeyHex: req.PubKeyHex,
	})
	if err != nil {
		h.logger.Warn("login rejected", zap.Error(err))
		abortErr(c, err)
		return
	}

	cookie := h.tokens.CreateToken(user.UID)
	c.SetCookie(CookieName, cookie, cookieMaxAge, "/", "", h.cookieSecure, true)
	c.JSON(http.StatusOK, user)
}

// Self handles GET /auth/self: hydrates the logged-in identity.
func (h *AuthHandler) Self(c *gin.Context) {
	uid, ok := mustViewer(c)
	if !ok {
		return
	}
	user, err := h.eng.LoadIdentity(uid)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
