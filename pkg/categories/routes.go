package categories

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/bookhub/pkg/auth"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers category routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) {
	h := &handler{
		categoryService: NewService(db),
	}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.POST("", h.create, authMiddleware.RequirePermission(models.ResourceCategories, models.OperationWrite))
	g.PATCH("/:id", h.update, authMiddleware.RequirePermission(models.ResourceCategories, models.OperationWrite))
	g.DELETE("/:id", h.delete, authMiddleware.RequirePermission(models.ResourceCategories, models.OperationWrite))
}
