package requests

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/bookhub/pkg/auth"
	"github.com/shishobooks/bookhub/pkg/books"
	"github.com/shishobooks/bookhub/pkg/categories"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/shishobooks/bookhub/pkg/ratelimit"
	"github.com/shishobooks/bookhub/pkg/storage"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers request routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, store *storage.Store, manager *books.Manager, authMiddleware *auth.Middleware, limiter *ratelimit.Limiter) {
	requestService := NewService(db)

	h := &handler{
		requestService: requestService,
		workflow:       NewWorkflow(requestService, books.NewService(db), manager, categories.NewService(db), store),
	}

	submit := authMiddleware.RequirePermission(models.ResourceRequests, models.OperationSubmit)
	moderate := authMiddleware.RequirePermission(models.ResourceRequests, models.OperationModerate)

	g.POST("/contributions", h.submitContribution, submit, limiter.Middleware())
	g.POST("/lookups", h.submitLookup, submit, limiter.Middleware())
	g.GET("", h.list, moderate)
	g.GET("/mine", h.listMine)
	g.GET("/:id", h.retrieve)
	g.POST("/:id/approve", h.approve, moderate)
	g.POST("/:id/reject", h.reject, moderate)
}
