package activity

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/bookhub/pkg/auth"
	"github.com/shishobooks/bookhub/pkg/books"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers reading activity routes on a
// pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) {
	h := &handler{
		activityService: NewService(db, books.NewService(db)),
	}

	read := authMiddleware.RequirePermission(models.ResourceActivity, models.OperationRead)
	write := authMiddleware.RequirePermission(models.ResourceActivity, models.OperationWrite)

	g.POST("/history", h.recordHistory, write)
	g.GET("/history", h.listHistory, read)
	g.PUT("/progress", h.saveProgress, write)
	g.GET("/progress/:book_id", h.retrieveProgress, read)
}
