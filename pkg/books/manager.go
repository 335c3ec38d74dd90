package books

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/bookhub/pkg/categories"
	"github.com/shishobooks/bookhub/pkg/errcodes"
	"github.com/shishobooks/bookhub/pkg/htmlutil"
	"github.com/shishobooks/bookhub/pkg/identifiers"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/shishobooks/bookhub/pkg/storage"
)

// CreateBookSpec is everything needed to add a book to the catalog.
type CreateBookSpec struct {
	Title         string
	Author        string
	Description   *string
	ISBN          *string
	PublishedDate *string
	CategoryIDs   []int
	RelatedBooks  []int
	Cover         *storage.Upload
	Files         []*storage.Upload
}

// UpdateBookSpec carries a partial update. Nil fields are left untouched; a
// non-empty Files replaces every book file.
type UpdateBookSpec struct {
	Title         *string
	Author        *string
	Description   *string
	ISBN          *string
	PublishedDate *string
	CategoryIDs   *[]int
	RelatedBooks  *[]int
	Cover         *storage.Upload
	Files         []*storage.Upload
}

// StoredBookSpec describes a book whose blobs are already in the blob store,
// as when a contribution is approved.
type StoredBookSpec struct {
	Title         string
	Author        string
	Description   *string
	ISBN          *string
	CategoryIDs   []int
	CoverImageURL *string
	BookFileURLs  []string
	AddedBy       int
}

// Manager owns the book lifecycle: it keeps blobs, book rows and category
// counts moving together.
type Manager struct {
	books      *Service
	categories *categories.Service
	store      *storage.Store
}

func NewManager(books *Service, categoryService *categories.Service, store *storage.Store) *Manager {
	return &Manager{books: books, categories: categoryService, store: store}
}

// Create validates the categories, uploads the cover and files, persists the
// book and only then counts it in its categories.
func (m *Manager) Create(ctx context.Context, actor *models.User, spec CreateBookSpec) (*models.Book, error) {
	if err := m.categories.ValidateCategoriesExist(ctx, spec.CategoryIDs); err != nil {
		return nil, err
	}
	isbn, err := NormalizeISBN(spec.ISBN)
	if err != nil {
		return nil, err
	}
	if len(spec.Files) == 0 {
		return nil, errcodes.ValidationError("At least one book file is required.")
	}
	resources, err := m.store.UploadSet(ctx, spec.Cover, spec.Files)
	if err != nil {
		return nil, err
	}

	book := &models.Book{
		Title:         strings.TrimSpace(spec.Title),
		Author:        strings.TrimSpace(spec.Author),
		Description:   htmlutil.SanitizeOptional(spec.Description),
		ISBN:          isbn,
		PublishedDate: blankToNil(spec.PublishedDate),
		RelatedBooks:  models.IntList(spec.RelatedBooks),
		CategoryIDs:   uniqueInts(spec.CategoryIDs),
		Resources:     resources,
	}
	if spec.Cover != nil {
		url := resources[0].ContentURL
		book.CoverImageURL = &url
	}
	if actor != nil {
		book.AddedBy = &actor.ID
		book.UpdatedBy = &actor.ID
	}

	if err := m.books.CreateBook(ctx, book); err != nil {
		m.store.DeleteBestEffort(ctx, resourceURLs(resources)...)
		return nil, errors.WithStack(err)
	}

	m.applyDelta(ctx, book.ID, book.CategoryIDs, 1)

	return m.books.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
}

// CreateFromStored materializes a book from blobs that were uploaded earlier.
// Nothing is uploaded again. The book is credited to spec.AddedBy and last
// updated by actor.
func (m *Manager) CreateFromStored(ctx context.Context, actor *models.User, spec StoredBookSpec) (*models.Book, error) {
	if err := m.categories.ValidateCategoriesExist(ctx, spec.CategoryIDs); err != nil {
		return nil, err
	}
	isbn, err := NormalizeISBN(spec.ISBN)
	if err != nil {
		return nil, err
	}

	resources := make([]*models.Resource, 0, len(spec.BookFileURLs)+1)
	var coverURL *string
	if spec.CoverImageURL != nil && *spec.CoverImageURL != "" {
		resources = append(resources, m.store.ImageResourceFromURL(ctx, *spec.CoverImageURL))
		url := *spec.CoverImageURL
		coverURL = &url
	}
	for _, url := range spec.BookFileURLs {
		resources = append(resources, m.store.ResourceFromURL(ctx, url))
	}

	book := &models.Book{
		Title:         spec.Title,
		Author:        spec.Author,
		Description:   htmlutil.SanitizeOptional(spec.Description),
		ISBN:          isbn,
		CoverImageURL: coverURL,
		RelatedBooks:  models.IntList{},
		CategoryIDs:   uniqueInts(spec.CategoryIDs),
		Resources:     resources,
	}
	if spec.AddedBy != 0 {
		book.AddedBy = &spec.AddedBy
	}
	if actor != nil {
		book.UpdatedBy = &actor.ID
	}

	if err := m.books.CreateBook(ctx, book); err != nil {
		return nil, errors.WithStack(err)
	}

	m.applyDelta(ctx, book.ID, book.CategoryIDs, 1)

	return m.books.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
}

// Update applies the fields present in spec. New blobs are uploaded first, so
// a failed upload changes nothing; the blobs they replace are then deleted on
// a best-effort basis before the new URLs are persisted. A changed category
// set only moves the counts of categories that were added or removed.
func (m *Manager) Update(ctx context.Context, actor *models.User, id int, spec UpdateBookSpec) (*models.Book, error) {
	book, err := m.books.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return nil, err
	}

	opts := UpdateBookOptions{}
	var added, removed []int

	if spec.Title != nil {
		book.Title = strings.TrimSpace(*spec.Title)
		opts.Columns = append(opts.Columns, "title")
	}
	if spec.Author != nil {
		book.Author = strings.TrimSpace(*spec.Author)
		opts.Columns = append(opts.Columns, "author")
	}
	if spec.Description != nil {
		book.Description = htmlutil.SanitizeOptional(spec.Description)
		opts.Columns = append(opts.Columns, "description")
	}
	if spec.ISBN != nil {
		isbn, err := NormalizeISBN(spec.ISBN)
		if err != nil {
			return nil, err
		}
		book.ISBN = isbn
		opts.Columns = append(opts.Columns, "isbn")
	}
	if spec.PublishedDate != nil {
		book.PublishedDate = blankToNil(spec.PublishedDate)
		opts.Columns = append(opts.Columns, "published_date")
	}
	if spec.RelatedBooks != nil {
		book.RelatedBooks = models.IntList(*spec.RelatedBooks)
		if book.RelatedBooks == nil {
			book.RelatedBooks = models.IntList{}
		}
		opts.Columns = append(opts.Columns, "related_books")
	}
	if spec.CategoryIDs != nil {
		next := uniqueInts(*spec.CategoryIDs)
		added, removed = symmetricDifference(book.CategoryIDs, next)
		if err := m.categories.ValidateCategoriesExist(ctx, added); err != nil {
			return nil, err
		}
		book.CategoryIDs = next
		opts.UpdateCategories = true
	}
	uploaded, err := m.store.UploadSet(ctx, spec.Cover, spec.Files)
	if err != nil {
		return nil, err
	}

	covers := book.CoverResources()
	files := book.BookFiles()
	var stale []string
	if spec.Cover != nil {
		if book.CoverImageURL != nil {
			stale = append(stale, *book.CoverImageURL)
		}
		stale = append(stale, resourceURLs(covers)...)
		covers = uploaded[:1]
		url := uploaded[0].ContentURL
		book.CoverImageURL = &url
		opts.Columns = append(opts.Columns, "cover_image_url")
		opts.ReplaceResources = true
	}
	if len(spec.Files) > 0 {
		stale = append(stale, resourceURLs(files)...)
		files = uploaded[len(uploaded)-len(spec.Files):]
		opts.ReplaceResources = true
	}
	if opts.ReplaceResources {
		book.Resources = append(append([]*models.Resource{}, covers...), files...)
	}
	m.store.DeleteBestEffort(ctx, dedupe(stale)...)

	if actor != nil {
		book.UpdatedBy = &actor.ID
		opts.Columns = append(opts.Columns, "updated_by")
	}

	if err := m.books.UpdateBook(ctx, book, opts); err != nil {
		m.store.DeleteBestEffort(ctx, resourceURLs(uploaded)...)
		return nil, errors.WithStack(err)
	}

	m.applyDelta(ctx, book.ID, removed, -1)
	m.applyDelta(ctx, book.ID, added, 1)

	return m.books.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
}

// Delete removes the book's blobs, takes it out of its category counts and
// deletes the row last. Running it again after a crash part way through only
// finds blobs that are already gone.
func (m *Manager) Delete(ctx context.Context, id int) error {
	book, err := m.books.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return err
	}

	var urls []string
	if book.CoverImageURL != nil {
		urls = append(urls, *book.CoverImageURL)
	}
	urls = append(urls, resourceURLs(book.Resources)...)
	m.store.DeleteBestEffort(ctx, dedupe(urls)...)

	m.applyDelta(ctx, book.ID, book.CategoryIDs, -1)

	return errors.WithStack(m.books.DeleteBook(ctx, id))
}

// DeleteRecord removes the book row and its category counts but leaves its
// blobs in place, for when the blobs are still owned elsewhere.
func (m *Manager) DeleteRecord(ctx context.Context, id int) error {
	book, err := m.books.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return err
	}

	m.applyDelta(ctx, book.ID, book.CategoryIDs, -1)

	return errors.WithStack(m.books.DeleteBook(ctx, id))
}

// applyDelta moves category counts after the book row is already saved. A
// failure is logged for the reconcile script to repair, not returned.
func (m *Manager) applyDelta(ctx context.Context, bookID int, categoryIDs []int, delta int) {
	if err := m.categories.ApplyDelta(ctx, categoryIDs, delta); err != nil {
		logger.FromContext(ctx).Err(err).Error("category counts out of sync", logger.Data{
			"book_id":      bookID,
			"category_ids": categoryIDs,
			"delta":        delta,
		})
	}
}

// NormalizeISBN checks and normalizes an optional ISBN. Blank means none.
func NormalizeISBN(value *string) (*string, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	isbn, ok := identifiers.NormalizeISBN(*value)
	if !ok {
		return nil, errcodes.ValidationError(`"isbn" is not a valid ISBN-10 or ISBN-13`)
	}
	return &isbn, nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func resourceURLs(resources []*models.Resource) []string {
	urls := make([]string, 0, len(resources))
	for _, r := range resources {
		urls = append(urls, r.ContentURL)
	}
	return urls
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func uniqueInts(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// symmetricDifference returns the ids only in next and the ids only in prev.
func symmetricDifference(prev, next []int) (added, removed []int) {
	inPrev := make(map[int]struct{}, len(prev))
	for _, id := range prev {
		inPrev[id] = struct{}{}
	}
	inNext := make(map[int]struct{}, len(next))
	for _, id := range next {
		inNext[id] = struct{}{}
		if _, ok := inPrev[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range prev {
		if _, ok := inNext[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}
