package route

import (
	"libraryapi/controller"
	mw "libraryapi/middlewares"

	"github.com/gin-gonic/gin"
)

// Protected registers the routes behind auth. User administration also
// requires the admin role.
func Protected(api *gin.RouterGroup, h *controller.Handler, auth gin.HandlerFunc) {
	protected := api.Group("")
	protected.Use(auth)

	protected.GET("/auth/profile", h.GetProfile)
	protected.PUT("/auth/profile", h.UpdateProfile)

	protected.GET("/books/mybooks", h.MyBooks)
	protected.POST("/books", h.CreateBook)
	protected.PUT("/books/:id", h.UpdateBook)
	protected.DELETE("/books/:id", h.DeleteBook)

	protected.POST("/categories", h.CreateCategory)
	protected.PUT("/categories/:id", h.UpdateCategory)
	protected.DELETE("/categories/:id", h.DeleteCategory)

	analytics := protected.Group("/analytics")
	analytics.GET("/summary", h.Summary)
	analytics.GET("/books-by-category", h.BooksByCategory)
	analytics.GET("/books-by-month", h.BooksByMonth)
	analytics.GET("/books-by-author", h.BooksByAuthor)
	analytics.GET("/user-stats", h.UserStats)

	admin := protected.Group("/auth/users")
	admin.Use(mw.AdminOnly())
	admin.GET("", h.ListUsers)
	admin.DELETE("/:id", h.DeleteUser)
}
