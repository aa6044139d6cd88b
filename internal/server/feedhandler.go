package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/dcposch/zucast/internal/feed"
	"go.uber.org/zap"
)

// FeedHandler exposes the engine's read surface and the signed-action
// append endpoint.
type FeedHandler struct {
	eng    *feed.Engine
	logger *zap.Logger
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(eng *feed.Engine, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{eng: eng, logger: logger}
}

// Register mounts the feed routes.
func (h *FeedHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/act", h.Act)
	rg.GET("/feed", h.GlobalFeed)
	rg.GET("/posts/:id", h.Post)
	rg.GET("/posts/:id/thread", h.Thread)
	rg.GET("/posts/:id/likers", h.Likers)
	rg.GET("/users/:uid", h.User)
	rg.GET("/users/:uid/posts", h.UserPosts)
	rg.GET("/users/:uid/replies", h.UserReplies)
	rg.GET("/users/:uid/likes", h.UserLikes)
	rg.GET("/notifications", h.Notifications)
	rg.GET("/log", h.LogTail)
}

type actRequest struct {
	UID        int    `json:"uid"`
	PubKeyHex  string `json:"pubKeyHex" binding:"required"`
	Signature  string `json:"signature" binding:"required"`
	ActionJSON string `json:"actionJSON" binding:"required"`
}

// Act handles POST /act: appends a signed action transaction. The signature
// is the authorization; the session cookie is not consulted.
func (h *FeedHandler) Act(c *gin.Context) {
	var req actRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uid, pubKeyHex, signature and actionJSON are required"})
		return
	}

	user, err := h.eng.Append(c.Request.Context(), feed.Transaction{
		Type:       feed.TxAct,
		UID:        req.UID,
		PubKeyHex:  req.PubKeyHex,
		Signature:  req.Signature,
		ActionJSON: req.ActionJSON,
	})
	if err != nil {
		h.logger.Warn("act rejected", zap.Int("uid", req.UID), zap.Error(err))
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GlobalFeed handles GET /feed?algo=hot|latest.
func (h *FeedHandler) GlobalFeed(c *gin.Context) {
	algo := feed.ParseSortAlgo(c.Query("algo"))
	threads, err := h.eng.LoadGlobalFeed(viewer(c), algo)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

// Post handles GET /posts/:id.
func (h *FeedHandler) Post(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	post, err := h.eng.LoadPost(viewer(c), id)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// Thread handles GET /posts/:id/thread.
func (h *FeedHandler) Thread(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	thread, err := h.eng.LoadThread(viewer(c), id)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

// Likers handles GET /posts/:id/likers.
func (h *FeedHandler) Likers(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	likers, err := h.eng.LoadLikers(id)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"likers": likers})
}

// User handles GET /users/:uid.
func (h *FeedHandler) User(c *gin.Context) {
	uid, ok := intParam(c, "uid")
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

// UserPosts handles GET /users/:uid/posts.
func (h *FeedHandler) UserPosts(c *gin.Context) {
	h.userThreads(c, h.eng.LoadUserPosts)
}

// UserReplies handles GET /users/:uid/replies.
func (h *FeedHandler) UserReplies(c *gin.Context) {
	h.userThreads(c, h.eng.LoadUserReplies)
}

// UserLikes handles GET /users/:uid/likes.
func (h *FeedHandler) UserLikes(c *gin.Context) {
	h.userThreads(c, h.eng.LoadUserLikes)
}

func (h *FeedHandler) userThreads(c *gin.Context, load func(viewerUID, uid int) ([]feed.Thread, error)) {
	uid, ok := intParam(c, "uid")
	if !ok {
		return
	}
	threads, err := load(viewer(c), uid)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

// Notifications handles GET /notifications?since=N for the logged-in user.
func (h *FeedHandler) Notifications(c *gin.Context) {
	uid, ok := mustViewer(c)
	if !ok {
		return
	}
	since := 0
	if s := c.Query("since"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be a non-negative integer"})
			return
		}
		since = n
	}
	notes, err := h.eng.LoadNotifications(uid, since)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notes})
}

// LogTail handles GET /log?since=N: raw transactions for log followers.
func (h *FeedHandler) LogTail(c *gin.Context) {
	since := 0
	if s := c.Query("since"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be a non-negative integer"})
			return
		}
		since = n
	}
	txs, err := h.eng.Tail(since)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"since": since, "transactions": txs})
}

// intParam parses a non-negative integer path parameter, aborting on failure.
func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": name + " must be a non-negative integer"})
		return 0, false
	}
	return v, true
}
