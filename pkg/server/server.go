package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/shishobooks/bookhub/pkg/activity"
	"github.com/shishobooks/bookhub/pkg/auth"
	"github.com/shishobooks/bookhub/pkg/binder"
	"github.com/shishobooks/bookhub/pkg/books"
	"github.com/shishobooks/bookhub/pkg/categories"
	"github.com/shishobooks/bookhub/pkg/config"
	"github.com/shishobooks/bookhub/pkg/errcodes"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/shishobooks/bookhub/pkg/ratelimit"
	"github.com/shishobooks/bookhub/pkg/requests"
	"github.com/shishobooks/bookhub/pkg/storage"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	blobs, err := storage.NewFileSystemStore(cfg.BlobStoreDir, cfg.BlobBaseURL)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	store := storage.NewStore(
		storage.NewBreakerStore(blobs, cfg.BlobBreakerFailureThreshold, cfg.BlobBreakerResetTimeout),
		storage.PolicyFromConfig(cfg),
	)

	e, err := newEcho(cfg, db, store)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func newEcho(cfg *config.Config, db *bun.DB, store *storage.Store) (*echo.Echo, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	if len(cfg.CORSAllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowCredentials: true,
		}))
	} else {
		e.Use(middleware.CORS())
	}

	health.RegisterRoutes(e)

	// Blobs are served read-only from the directory the filesystem store
	// writes to.
	e.Group(cfg.BlobBaseURL, middleware.StaticWithConfig(middleware.StaticConfig{
		Root: cfg.BlobStoreDir,
	}))

	authMiddleware := auth.RegisterRoutes(e, db, cfg.JWTSecret)
	limiter := ratelimit.New(cfg.UploadRatePerMinute, cfg.UploadRateBurst)

	registerProtectedRoutes(e, db, cfg, store, authMiddleware, limiter)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

// registerProtectedRoutes registers every route that needs a signed-in user.
func registerProtectedRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config, store *storage.Store, authMiddleware *auth.Middleware, limiter *ratelimit.Limiter) {
	categoriesGroup := e.Group("/categories")
	categoriesGroup.Use(authMiddleware.Authenticate)
	categoriesGroup.Use(authMiddleware.RequirePermission(models.ResourceCategories, models.OperationRead))
	categories.RegisterRoutesWithGroup(categoriesGroup, db, authMiddleware)

	booksGroup := e.Group("/books")
	booksGroup.Use(authMiddleware.Authenticate)
	booksGroup.Use(authMiddleware.RequirePermission(models.ResourceBooks, models.OperationRead))
	manager := books.RegisterRoutesWithGroup(booksGroup, db, store, authMiddleware, limiter)

	requestsGroup := e.Group("/requests")
	requestsGroup.Use(authMiddleware.Authenticate)
	requests.RegisterRoutesWithGroup(requestsGroup, db, store, manager, authMiddleware, limiter)

	activityGroup := e.Group("/activity")
	activityGroup.Use(authMiddleware.Authenticate)
	activity.RegisterRoutesWithGroup(activityGroup, db, authMiddleware)

	configGroup := e.Group("/config")
	configGroup.Use(authMiddleware.Authenticate)
	config.RegisterRoutesWithGroup(configGroup, cfg)
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
