package route

import (
	"log/slog"
	"net/http"
	"time"

	"libraryapi/controller"
	"libraryapi/metrics"
	mw "libraryapi/middlewares"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Options is everything the router needs. Metrics, Limiter and UploadDir
// are optional.
type Options struct {
	Handler            *controller.Handler
	Auth               gin.HandlerFunc
	Logger             *slog.Logger
	Metrics            *metrics.Metrics
	Limiter            *mw.RateLimiter
	ClientURL          string
	UploadDir          string
	MaxMultipartMemory int64
}

func New(opts Options) *gin.Engine {
	router := gin.New()
	if opts.MaxMultipartMemory > 0 {
		router.MaxMultipartMemory = opts.MaxMultipartMemory
	}

	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		opts.Logger.Error("panic recovered",
			slog.String("request_id", mw.RequestID(c)),
			slog.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
	}))
	router.Use(mw.RequestLogger(opts.Logger))
	router.Use(cors.New(corsConfig(opts.ClientURL)))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
		router.GET("/metrics", opts.Metrics.Handler())
	}
	if opts.UploadDir != "" {
		router.Static("/uploads", opts.UploadDir)
	}

	router.GET("/", opts.Handler.Root)

	api := router.Group("/api")
	if opts.Limiter != nil {
		api.Use(opts.Limiter.Middleware())
	}
	Unprotected(api, opts.Handler)
	Protected(api, opts.Handler, opts.Auth)

	router.NoRoute(opts.Handler.NotFound)
	return router
}

func corsConfig(clientURL string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Authorization", "Accept", mw.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", mw.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if clientURL != "" {
		cfg.AllowOrigins = []string{clientURL}
	} else {
		cfg.AllowOriginFunc = func(origin string) bool { return true }
	}
	return cfg
}
