package handler

import (
	"net/http"

	"campusmarket/backend/internal/auth"
	"campusmarket/backend/internal/messaging"

	"github.com/gin-gonic/gin"
)

// GetMessages returns the conversation between user1 and user2.
func (h *Handler) GetMessages(c *gin.Context) {
	msgs, err := h.Messages.Fetch(c.Request.Context(), auth.UserID(c), c.Query("user1"), c.Query("user2"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) PostMessage(c *gin.Context) {
	var req messaging.SendRequest
	if !h.bindJSON(c, &req) {
		return
	}
	msg, err := h.Messages.Send(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// GetConversations never fails on data errors; an empty list is returned
// instead.
func (h *Handler) GetConversations(c *gin.Context) {
	list, err := h.Messages.Conversations(c.Request.Context(), auth.UserID(c), c.Query("user_id"), c.Query("with"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
