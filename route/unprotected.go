package route

import (
	"libraryapi/controller"

	"github.com/gin-gonic/gin"
)

// Unprotected registers the routes that need no token.
func Unprotected(api *gin.RouterGroup, h *controller.Handler) {
	api.GET("/health", h.Health)

	auth := api.Group("/auth")
	auth.POST("/register", h.RegisterUser)
	auth.POST("/login", h.Login)
	auth.POST("/logout", h.Logout)

	api.GET("/books", h.ListBooks)
	api.GET("/books/:id", h.GetBook)

	api.GET("/categories", h.ListCategories)
	api.GET("/categories/:id", h.GetCategory)
}
