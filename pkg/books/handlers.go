package books

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
	bookService *Service
	manager     *Manager
}

type listBooksResponse struct {
	Books interface{} `json:"books"`
	Total int         `json:"total"`
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, total, err := h.bookService.ListBooksWithTotal(ctx, ListBooksOptions{
		Limit:      &params.Limit,
		Offset:     &params.Offset,
		Title:      params.Title,
		CategoryID: params.CategoryID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, listBooksResponse{books, total}))
}

func (h *handler) listSaved(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, total, err := h.bookService.ListBooksWithTotal(ctx, ListBooksOptions{
		Limit:       &params.Limit,
		Offset:      &params.Offset,
		SavedByUser: &user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, listBooksResponse{books, total}))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.manager.Create(ctx, user, CreateBookSpec{
		Title:         params.Title,
		Author:        params.Author,
		Description:   params.Description,
		ISBN:          params.ISBN,
		PublishedDate: params.PublishedDate,
		CategoryIDs:   params.CategoryIDs,
		RelatedBooks:  params.RelatedBooks,
		Cover:         firstUpload(params.FormFiles[CoverImageField]),
		Files:         uploads(params.FormFiles[BookFilesField]),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	spec := UpdateBookSpec{
		Title:         params.Title,
		Author:        params.Author,
		Description:   params.Description,
		ISBN:          params.ISBN,
		PublishedDate: params.PublishedDate,
		Cover:         firstUpload(params.FormFiles[CoverImageField]),
		Files:         uploads(params.FormFiles[BookFilesField]),
	}
	if params.CategoryIDs != nil {
		spec.CategoryIDs = &params.CategoryIDs
	}
	if params.RelatedBooks != nil {
		spec.RelatedBooks = &params.RelatedBooks
	}

	book, err := h.manager.Update(ctx, user, id, spec)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	if err := h.manager.Delete(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) toggleSave(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	saved, err := h.bookService.ToggleSaved(ctx, user.ID, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, SaveBookResponse{Saved: saved}))
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
