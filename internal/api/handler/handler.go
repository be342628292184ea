// Package handler exposes the HTTP API over gin.
package handler

import (
	"net/http"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/auth"
	"campusmarket/backend/internal/chathub"
	"campusmarket/backend/internal/logger"
	"campusmarket/backend/internal/marketplace"
	"campusmarket/backend/internal/messaging"
	"campusmarket/backend/internal/metrics"
	"campusmarket/backend/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	Messages     *messaging.Service
	Market       *marketplace.Service
	Accounts     *marketplace.Accounts
	Hub          *chathub.Hub
	Tokens       *auth.Issuer
	LoginLimiter ratelimit.Limiter
	Logger       *zap.Logger
}

func NewHandler(h Handler) *Handler {
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}
	return &h
}

// Router builds the gin engine with every route.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), metrics.Middleware(), logger.Gin(h.Logger))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.POST("/api/auth/login", h.Login)

	authed := r.Group("/", auth.Middleware(h.Tokens))
	authed.GET("/ws", h.ServeWebSocket)

	api := authed.Group("/api")
	api.GET("/messages", h.GetMessages)
	api.POST("/messages", h.PostMessage)
	api.GET("/conversations", h.GetConversations)

	api.GET("/items", h.ListItems)
	api.POST("/items", h.CreateItem)
	api.GET("/items/:id", h.GetItem)
	api.PATCH("/items/:id", h.UpdateItem)
	api.DELETE("/items/:id", h.DeleteItem)
	api.POST("/items/:id/like", h.LikeItem)
	api.DELETE("/items/:id/like", h.UnlikeItem)

	api.GET("/me/likes", h.ListLiked)
	api.PATCH("/me", h.UpdateMe)
	api.GET("/profiles/:id", h.GetProfile)
	return r
}

// writeError renders err as {"error": {"code", "message"}}. Causes of
// internal errors are logged, never sent.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("user_id", auth.UserID(c)),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"code": apperr.CodeOf(err), "message": apperr.PublicMessage(err)},
	})
}

var errBadBody = apperr.Validation("request body must be valid JSON")

// bindJSON decodes the body into dst, writing a 400 on failure.
func (h *Handler) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.Logger.Debug("bad request body", zap.Error(err))
		h.writeError(c, errBadBody)
		return false
	}
	return true
}
