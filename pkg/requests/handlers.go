package requests

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/bookhub/pkg/auth"
	"github.com/shishobooks/bookhub/pkg/errcodes"
	"github.com/shishobooks/bookhub/pkg/storage"
)

type handler struct {
	requestService *Service
	workflow       *Workflow
}

type listRequestsResponse struct {
	Requests interface{} `json:"requests"`
	Total    int         `json:"total"`
}

func (h *handler) submitContribution(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	params := ContributionPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	req, err := h.workflow.SubmitContribution(ctx, user, ContributionSpec{
		Title:       params.Title,
		Author:      params.Author,
		Description: params.Description,
		ISBN:        params.ISBN,
		CategoryIDs: params.CategoryIDs,
		Cover:       firstUpload(params.FormFiles[CoverImageField]),
		Files:       uploads(params.FormFiles[BookFilesField]),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, req))
}

func (h *handler) submitLookup(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	params := LookupPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	req, err := h.workflow.SubmitLookup(ctx, user, LookupSpec{
		Title:       params.Title,
		Author:      params.Author,
		Description: params.Description,
		ISBN:        params.ISBN,
		CategoryIDs: params.CategoryIDs,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, req))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListRequestsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	reqs, total, err := h.requestService.ListRequestsWithTotal(ctx, ListRequestsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Type:   params.Type,
		Status: &params.Status,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, listRequestsResponse{reqs, total}))
}

func (h *handler) listMine(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	params := ListMyRequestsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	reqs, total, err := h.requestService.ListRequestsWithTotal(ctx, ListRequestsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		UserID: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, listRequestsResponse{reqs, total}))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Request")
	}
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	req, err := h.workflow.RetrieveFor(ctx, user, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, req))
}

func (h *handler) approve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Request")
	}
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	params := ApprovePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	req, err := h.workflow.Approve(ctx, user, id, params.CreatedBookID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, req))
}

func (h *handler) reject(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Request")
	}
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	params := RejectPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	req, err := h.workflow.Reject(ctx, user, id, params.Reason)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, req))
}

func firstUpload(headers []*multipart.FileHeader) *storage.Upload {
	if len(headers) == 0 {
		return nil
	}
	return storage.UploadFromFileHeader(headers[0])
}

func uploads(headers []*multipart.FileHeader) []*storage.Upload {
	out := make([]*storage.Upload, 0, len(headers))
	for _, fh := range headers {
		out = append(out, storage.UploadFromFileHeader(fh))
	}
	return out
}
