package books

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/bookhub/pkg/errcodes"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveBookOptions struct {
	ID *int
}

type ListBooksOptions struct {
	Limit       *int
	Offset      *int
	Title       *string
	CategoryID  *int
	SavedByUser *int
	IDs         []int

	includeTotal bool
}

type UpdateBookOptions struct {
	Columns          []string
	UpdateCategories bool
	ReplaceResources bool
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateBook inserts the book with its category links and resources in one
// transaction. Resources are stored in slice order.
func (svc *Service) CreateBook(ctx context.Context, book *models.Book) error {
	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt
	if book.RelatedBooks == nil {
		book.RelatedBooks = models.IntList{}
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewInsert().
			Model(book).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if err := insertCategoryLinks(ctx, tx, book.ID, book.CategoryIDs); err != nil {
			return err
		}

		return insertResources(ctx, tx, book.ID, book.Resources, 0)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book).
		Relation("Resources", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("r.position ASC")
		})

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	if err := svc.hydrate(ctx, []*models.Book{book}); err != nil {
		return nil, err
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books).
		Relation("Resources", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("r.position ASC")
		}).
		Order("b.created_at DESC", "b.id DESC")

	if opts.Title != nil && *opts.Title != "" {
		q = q.Where("b.title LIKE ? ESCAPE '\\'", "%"+escapeLike(*opts.Title)+"%")
	}
	if opts.CategoryID != nil {
		q = q.Where("b.id IN (SELECT bc.book_id FROM book_categories AS bc WHERE bc.category_id = ?)", *opts.CategoryID)
	}
	if opts.SavedByUser != nil {
		q = q.Where("b.id IN (SELECT sb.book_id FROM saved_books AS sb WHERE sb.user_id = ?)", *opts.SavedByUser)
	}
	if opts.IDs != nil {
		q = q.Where("b.id IN (?)", bun.In(opts.IDs))
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	if err := svc.hydrate(ctx, books); err != nil {
		return nil, 0, err
	}

	return books, total, nil
}

// UpdateBook writes the given columns and, when asked, swaps the category
// links or the whole resource list for the ones on book. Resources are
// rewritten in slice order.
func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 && !opts.UpdateCategories && !opts.ReplaceResources {
		return nil
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if opts.UpdateCategories {
			_, err := tx.
				NewDelete().
				Model((*models.BookCategory)(nil)).
				Where("book_id = ?", book.ID).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			if err := insertCategoryLinks(ctx, tx, book.ID, book.CategoryIDs); err != nil {
				return err
			}
		}

		if opts.ReplaceResources {
			_, err := tx.
				NewDelete().
				Model((*models.Resource)(nil)).
				Where("book_id = ?", book.ID).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			if err := insertResources(ctx, tx, book.ID, book.Resources, 0); err != nil {
				return err
			}
		}

		now := time.Now()
		book.UpdatedAt = now
		columns := append(opts.Columns, "updated_at")

		res, err := tx.
			NewUpdate().
			Model(book).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Book")
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// DeleteBook removes the book row and everything hanging off it. Reading
// history is left alone since it carries its own copy of the title.
func (svc *Service) DeleteBook(ctx context.Context, id int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().Model((*models.Resource)(nil)).Where("book_id = ?", id).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = tx.NewDelete().Model((*models.BookCategory)(nil)).Where("book_id = ?", id).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = tx.NewDelete().Model((*models.SavedBook)(nil)).Where("book_id = ?", id).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = tx.NewDelete().Model((*models.ReadingProgress)(nil)).Where("book_id = ?", id).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().Model((*models.Book)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Book")
		}
		return nil
	})
}

// ToggleSaved adds the book to the user's saved books, or removes it when it
// is already there. It reports whether the book ends up saved.
func (svc *Service) ToggleSaved(ctx context.Context, userID, bookID int) (bool, error) {
	exists, err := svc.db.
		NewSelect().
		Model((*models.Book)(nil)).
		Where("b.id = ?", bookID).
		Exists(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	if !exists {
		return false, errcodes.NotFound("Book")
	}

	res, err := svc.db.
		NewDelete().
		Model((*models.SavedBook)(nil)).
		Where("user_id = ?", userID).
		Where("book_id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}

	_, err = svc.db.
		NewInsert().
		Model(&models.SavedBook{UserID: userID, BookID: bookID, CreatedAt: time.Now()}).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return true, nil
}

// hydrate fills the category ids and saved-by users, which live in join
// tables rather than on the book row.
func (svc *Service) hydrate(ctx context.Context, books []*models.Book) error {
	if len(books) == 0 {
		return nil
	}
	byID := make(map[int]*models.Book, len(books))
	ids := make([]int, 0, len(books))
	for _, b := range books {
		b.CategoryIDs = []int{}
		b.SavedBy = []int{}
		if b.Resources == nil {
			b.Resources = []*models.Resource{}
		}
		byID[b.ID] = b
		ids = append(ids, b.ID)
	}

	var links []models.BookCategory
	err := svc.db.
		NewSelect().
		Model(&links).
		Where("bc.book_id IN (?)", bun.In(ids)).
		Order("bc.book_id ASC", "bc.category_id ASC").
		Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, l := range links {
		byID[l.BookID].CategoryIDs = append(byID[l.BookID].CategoryIDs, l.CategoryID)
	}

	var saves []models.SavedBook
	err = svc.db.
		NewSelect().
		Model(&saves).
		Where("sb.book_id IN (?)", bun.In(ids)).
		Order("sb.book_id ASC", "sb.user_id ASC").
		Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, s := range saves {
		byID[s.BookID].SavedBy = append(byID[s.BookID].SavedBy, s.UserID)
	}

	return nil
}

func insertCategoryLinks(ctx context.Context, tx bun.Tx, bookID int, categoryIDs []int) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	links := make([]*models.BookCategory, 0, len(categoryIDs))
	seen := make(map[int]struct{}, len(categoryIDs))
	for _, id := range categoryIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		links = append(links, &models.BookCategory{BookID: bookID, CategoryID: id})
	}
	_, err := tx.NewInsert().Model(&links).Exec(ctx)
	return errors.WithStack(err)
}

func insertResources(ctx context.Context, tx bun.Tx, bookID int, resources []*models.Resource, start int) error {
	if len(resources) == 0 {
		return nil
	}
	for i, r := range resources {
		r.ID = 0
		r.BookID = bookID
		r.Position = start + i
		if r.UploadedAt.IsZero() {
			r.UploadedAt = time.Now()
		}
	}
	_, err := tx.
		NewInsert().
		Model(&resources).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

func escapeLike(s string) string {
	r := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			r = append(r, '\\')
		}
		r = append(r, c)
	}
	return string(r)
}
