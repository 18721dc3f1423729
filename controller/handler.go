// Package controller adapts HTTP requests to the services. Every response
// carries "success"; failures add "message" and, for validation, "errors".
package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"libraryapi/apperrors"
	"libraryapi/middlewares"
	"libraryapi/models"
	"libraryapi/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Books      *service.BookService
	Categories *service.CategoryService
	Users      *service.UserService
	Analytics  *service.AnalyticsService
	Logger     *slog.Logger
}

// fail writes err as a JSON error. Internal details are logged, not sent.
func (h *Handler) fail(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Internal(err, "Server error")
	}

	status := apperrors.HTTPStatus(appErr.Kind)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed",
			slog.String("request_id", middlewares.RequestID(c)),
			slog.String("kind", appErr.Kind.String()),
			slog.Any("error", err))
		_ = c.Error(err)
	}

	body := gin.H{"success": false, "message": appErr.Message}
	if len(appErr.Fields) > 0 {
		body["errors"] = appErr.Fields
	}
	c.JSON(status, body)
}

func (h *Handler) badBody(c *gin.Context, err error) {
	h.fail(c, apperrors.Validation("Invalid request body",
		apperrors.FieldError{Field: "body", Message: err.Error()}))
}

// principal is only called behind the JWT middleware.
func (h *Handler) principal(c *gin.Context) (models.Principal, bool) {
	p, ok := middlewares.CurrentPrincipal(c)
	if !ok {
		h.fail(c, apperrors.Unauthorized("Not authorized"))
	}
	return p, ok
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "OK", "message": "Server is running"})
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Library catalog API",
		"endpoints": gin.H{
			"auth":       "/api/auth",
			"books":      "/api/books",
			"categories": "/api/categories",
			"analytics":  "/api/analytics",
		},
	})
}

func (h *Handler) NotFound(c *gin.Context) {
	h.fail(c, apperrors.NotFound("Route not found"))
}

var errNoBody = errors.New("request body is empty")
