package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.Analytics.Summary(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}

func (h *Handler) BooksByCategory(c *gin.Context) {
	data, err := h.Analytics.BooksByCategory(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(data), "data": data})
}

func (h *Handler) BooksByMonth(c *gin.Context) {
	data, err := h.Analytics.BooksByMonth(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(data), "data": data})
}

func (h *Handler) BooksByAuthor(c *gin.Context) {
	data, err := h.Analytics.BooksByAuthor(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(data), "data": data})
}

func (h *Handler) UserStats(c *gin.Context) {
	data, err := h.Analytics.UserStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(data), "data": data})
}
