package activity

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/bookhub/pkg/books"
	"github.com/shishobooks/bookhub/pkg/errcodes"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/uptrace/bun"
)

type ListHistoryOptions struct {
	UserID *int
	Limit  *int
	Offset *int

	includeTotal bool
}

type Service struct {
	db    *bun.DB
	books *books.Service
}

func NewService(db *bun.DB, bookService *books.Service) *Service {
	return &Service{db, bookService}
}

// RecordHistory notes that userID opened bookID, copying the book's current
// title and cover onto the entry.
func (svc *Service) RecordHistory(ctx context.Context, userID, bookID int) (*models.ReadingHistory, error) {
	book, err := svc.books.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &bookID})
	if err != nil {
		return nil, err
	}

	entry := &models.ReadingHistory{
		UserID:        userID,
		BookID:        book.ID,
		BookTitle:     book.Title,
		CoverImageURL: book.CoverImageURL,
		ReadAt:        time.Now(),
	}
	_, err = svc.db.
		NewInsert().
		Model(entry).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return entry, nil
}

func (svc *Service) ListHistory(ctx context.Context, opts ListHistoryOptions) ([]*models.ReadingHistory, error) {
	h, _, err := svc.listHistoryWithTotal(ctx, opts)
	return h, errors.WithStack(err)
}

func (svc *Service) ListHistoryWithTotal(ctx context.Context, opts ListHistoryOptions) ([]*models.ReadingHistory, int, error) {
	opts.includeTotal = true
	return svc.listHistoryWithTotal(ctx, opts)
}

func (svc *Service) listHistoryWithTotal(ctx context.Context, opts ListHistoryOptions) ([]*models.ReadingHistory, int, error) {
	entries := []*models.ReadingHistory{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&entries).
		Order("rh.read_at DESC", "rh.id DESC")

	if opts.UserID != nil {
		q = q.Where("rh.user_id = ?", *opts.UserID)
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

	return entries, total, nil
}

// SaveProgress creates or replaces userID's progress through bookID.
func (svc *Service) SaveProgress(ctx context.Context, userID, bookID, currentPage, totalPages int) (*models.ReadingProgress, error) {
	if totalPages <= 0 {
		return nil, errcodes.ValidationError("total_pages must be greater than 0.")
	}
	if currentPage < 0 {
		return nil, errcodes.ValidationError("current_page must not be negative.")
	}
	if _, err := svc.books.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &bookID}); err != nil {
		return nil, err
	}

	now := time.Now()
	progress := &models.ReadingProgress{
		CreatedAt:   now,
		UpdatedAt:   now,
		UserID:      userID,
		BookID:      bookID,
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		Percentage:  Percentage(currentPage, totalPages),
	}
	_, err := svc.db.
		NewInsert().
		Model(progress).
		On("CONFLICT (user_id, book_id) DO UPDATE").
		Set("current_page = EXCLUDED.current_page").
		Set("total_pages = EXCLUDED.total_pages").
		Set("percentage = EXCLUDED.percentage").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return progress, nil
}

func (svc *Service) RetrieveProgress(ctx context.Context, userID, bookID int) (*models.ReadingProgress, error) {
	progress := &models.ReadingProgress{}

	err := svc.db.
		NewSelect().
		Model(progress).
		Where("rp.user_id = ?", userID).
		Where("rp.book_id = ?", bookID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Reading progress")
		}
		return nil, errors.WithStack(err)
	}

	return progress, nil
}

// Percentage is currentPage out of totalPages, clamped to [0, 100] and
// rounded to two decimals.
func Percentage(currentPage, totalPages int) float64 {
	if totalPages <= 0 {
		return 0
	}
	p := float64(currentPage) / float64(totalPages) * 100
	p = math.Max(0, math.Min(100, p))
	return math.Round(p*100) / 100
}
