package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"libraryapi/config"
	"libraryapi/controller"
	"libraryapi/database"
	"libraryapi/logging"
	"libraryapi/metrics"
	mw "libraryapi/middlewares"
	"libraryapi/repository"
	"libraryapi/route"
	"libraryapi/service"
	"libraryapi/storage"

	"github.com/gin-gonic/gin"
)

type stores struct {
	books      repository.BookRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	close      func(context.Context) error
}

func main() {
	configFile := flag.String("config", "", "optional config file")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		return err
	}
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			logger.Error("closing store", slog.Any("error", err))
		}
	}()

	m := metrics.New()
	blobs, uploadDir, err := openBlobStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	instrumented := storage.NewInstrumented(blobs, m.BlobOperations)

	secret := []byte(cfg.JWT.Secret)
	users := service.NewUserService(st.users, secret, cfg.JWT.Expiry, logger)
	books := service.NewBookService(st.books, st.users, instrumented, logger)
	h := &controller.Handler{
		Books:      books,
		Categories: service.NewCategoryService(st.categories, st.books, logger),
		Users:      users,
		Analytics:  service.NewAnalyticsService(st.books, st.users, books),
		Logger:     logger,
	}

	if cfg.Admin.Enabled() {
		err := users.EnsureAdmin(ctx, service.AdminAccount{
			Username: cfg.Admin.Username,
			Email:    cfg.Admin.Email,
			Password: cfg.Admin.Password,
		})
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	var limiter *mw.RateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = mw.NewRateLimiter(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst, 3*time.Minute)
	}

	router := route.New(route.Options{
		Handler:            h,
		Auth:               mw.JWT(secret, users, logger),
		Logger:             logger,
		Metrics:            m,
		Limiter:            limiter,
		ClientURL:          cfg.Server.ClientURL,
		UploadDir:          uploadDir,
		MaxMultipartMemory: cfg.Server.MaxMultipartMemory,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			slog.String("addr", srv.Addr),
			slog.String("store", cfg.Store.Driver),
			slog.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.Store.Driver == "memory" {
		logger.Warn("using in-memory store, data is lost on restart")
		return &stores{
			books:      repository.NewMemoryBooks(),
			categories: repository.NewMemoryCategories(),
			users:      repository.NewMemoryUsers(),
			close:      func(context.Context) error { return nil },
		}, nil
	}

	db, err := database.Connect(ctx, database.Config{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return &stores{
		books:      repository.NewMongoBooks(db.Database),
		categories: repository.NewMongoCategories(db.Database),
		users:      repository.NewMongoUsers(db.Database),
		close:      db.Close,
	}, nil
}

// openBlobStore returns the store and, for the disk driver, the directory
// to serve under /uploads.
func openBlobStore(ctx context.Context, cfg config.StorageConfig) (storage.BlobStore, string, error) {
	if cfg.Driver == "s3" {
		s, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Prefix:    cfg.Prefix,
			URLExpiry: cfg.URLExpiry,
		})
		return s, "", err
	}

	s, err := storage.NewDiskStore(cfg.UploadDir, "/uploads")
	if err != nil {
		return nil, "", err
	}
	return s, s.Dir(), nil
}
