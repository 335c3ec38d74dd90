package activity

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/bookhub/pkg/auth"
	"github.com/shishobooks/bookhub/pkg/errcodes"
)

type handler struct {
	activityService *Service
}

type listHistoryResponse struct {
	History interface{} `json:"history"`
	Total   int         `json:"total"`
}

func (h *handler) recordHistory(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	params := RecordHistoryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	entry, err := h.activityService.RecordHistory(ctx, user.ID, params.BookID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, entry))
}

func (h *handler) listHistory(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	params := ListHistoryQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	entries, total, err := h.activityService.ListHistoryWithTotal(ctx, ListHistoryOptions{
		UserID: &user.ID,
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, listHistoryResponse{entries, total}))
}

func (h *handler) saveProgress(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	params := SaveProgressPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	progress, err := h.activityService.SaveProgress(ctx, user.ID, params.BookID, params.CurrentPage, params.TotalPages)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, progress))
}

func (h *handler) retrieveProgress(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, err := strconv.Atoi(c.Param("book_id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	progress, err := h.activityService.RetrieveProgress(ctx, user.ID, bookID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, progress))
}
