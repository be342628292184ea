package handler

import (
	"net/http"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/auth"
	"campusmarket/backend/internal/marketplace"
	"campusmarket/backend/internal/messaging"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetProfile(c *gin.Context) {
	id := c.Param("id")
	if !messaging.IsUUID(id) {
		h.writeError(c, apperr.ErrInvalidUUID)
		return
	}
	p, err := h.Market.GetProfile(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateMe(c *gin.Context) {
	var req marketplace.ProfileUpdate
	if !h.bindJSON(c, &req) {
		return
	}
	p, err := h.Market.UpdateProfile(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
