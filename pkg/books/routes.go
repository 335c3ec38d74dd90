package books

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/bookhub/pkg/auth"
	"github.com/shishobooks/bookhub/pkg/categories"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/shishobooks/bookhub/pkg/ratelimit"
	"github.com/shishobooks/bookhub/pkg/storage"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers book routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, store *storage.Store, authMiddleware *auth.Middleware, limiter *ratelimit.Limiter) *Manager {
	bookService := NewService(db)
	manager := NewManager(bookService, categories.NewService(db), store)

	h := &handler{
		bookService: bookService,
		manager:     manager,
	}

	write := authMiddleware.RequirePermission(models.ResourceBooks, models.OperationWrite)

	g.GET("", h.list)
	g.GET("/saved", h.listSaved)
	g.GET("/:id", h.retrieve)
	g.POST("", h.create, write, limiter.Middleware())
	g.PATCH("/:id", h.update, write, limiter.Middleware())
	g.DELETE("/:id", h.delete, write)
	g.POST("/:id/save", h.toggleSave)

	return manager
}
