package handler

import (
	"net/http"
	"strconv"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/auth"
	"campusmarket/backend/internal/marketplace"
	"campusmarket/backend/internal/messaging"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListItems(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		h.writeError(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		h.writeError(c, err)
		return
	}

	items, err := h.Market.ListItems(c.Request.Context(), marketplace.ListParams{
		CallerID: auth.UserID(c),
		Query:    c.Query("q"),
		Category: c.Query("category"),
		SellerID: c.Query("seller"),
		Status:   c.Query("status"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateItem(c *gin.Context) {
	var req marketplace.CreateItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.Market.CreateItem(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) GetItem(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}
	item, err := h.Market.GetItem(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) UpdateItem(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}
	var req marketplace.UpdateItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.Market.UpdateItem(c.Request.Context(), auth.UserID(c), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteItem(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}
	if err := h.Market.DeleteItem(c.Request.Context(), auth.UserID(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) LikeItem(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}
	item, err := h.Market.Like(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) UnlikeItem(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}
	item, err := h.Market.Unlike(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) ListLiked(c *gin.Context) {
	items, err := h.Market.ListLiked(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// itemID rejects malformed ids before they reach the store.
func (h *Handler) itemID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !messaging.IsUUID(id) {
		h.writeError(c, apperr.ErrInvalidUUID)
		return "", false
	}
	return id, true
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(key + " must be an integer")
	}
	return n, nil
}
