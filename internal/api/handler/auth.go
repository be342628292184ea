package handler

import (
	"net/http"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/metrics"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials with the identity provider and returns a
// session token. Attempts are limited per client IP.
func (h *Handler) Login(c *gin.Context) {
	if h.LoginLimiter != nil {
		if ok, _ := h.LoginLimiter.Allow(c.Request.Context(), c.ClientIP()); !ok {
			metrics.RateLimited.WithLabelValues("login").Inc()
			h.writeError(c, apperr.ErrTooManyRequests)
			return
		}
	}

	var req loginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.Accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
