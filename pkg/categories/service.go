package categories

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/bookhub/pkg/errcodes"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/uptrace/bun"
)

const (
	MinNameLength = 2
	MaxNameLength = 50
)

type RetrieveCategoryOptions struct {
	ID   *int
	Name *string
}

type ListCategoriesOptions struct {
	Limit  *int
	Offset *int
	IDs    []int

	includeTotal bool
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < MinNameLength || n > MaxNameLength {
		return "", errcodes.ValidationError("Category name must be between 2 and 50 characters.")
	}
	return name, nil
}

func (svc *Service) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	if err := svc.ensureNameAvailable(ctx, name, 0); err != nil {
		return nil, err
	}

	now := time.Now()
	category := &models.Category{
		CreatedAt: now,
		UpdatedAt: now,
		Name:      name,
	}
	_, err = svc.db.
		NewInsert().
		Model(category).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateName(name)
		}
		return nil, errors.WithStack(err)
	}
	return category, nil
}

func (svc *Service) RetrieveCategory(ctx context.Context, opts RetrieveCategoryOptions) (*models.Category, error) {
	category := &models.Category{}

	q := svc.db.
		NewSelect().
		Model(category)

	if opts.ID != nil {
		q = q.Where("c.id = ?", *opts.ID)
	}
	if opts.Name != nil {
		q = q.Where("c.name = ? COLLATE NOCASE", strings.TrimSpace(*opts.Name))
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Category")
		}
		return nil, errors.WithStack(err)
	}

	return category, nil
}

func (svc *Service) ListCategories(ctx context.Context, opts ListCategoriesOptions) ([]*models.Category, error) {
	c, _, err := svc.listCategoriesWithTotal(ctx, opts)
	return c, errors.WithStack(err)
}

func (svc *Service) ListCategoriesWithTotal(ctx context.Context, opts ListCategoriesOptions) ([]*models.Category, int, error) {
	opts.includeTotal = true
	return svc.listCategoriesWithTotal(ctx, opts)
}

func (svc *Service) listCategoriesWithTotal(ctx context.Context, opts ListCategoriesOptions) ([]*models.Category, int, error) {
	categories := []*models.Category{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&categories).
		Order("c.name ASC")

	if opts.IDs != nil {
		q = q.Where("c.id IN (?)", bun.In(opts.IDs))
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

	return categories, total, nil
}

func (svc *Service) RenameCategory(ctx context.Context, id int, name string) (*models.Category, error) {
	category, err := svc.RetrieveCategory(ctx, RetrieveCategoryOptions{ID: &id})
	if err != nil {
		return nil, err
	}
	name, err = normalizeName(name)
	if err != nil {
		return nil, err
	}
	if name == category.Name {
		return category, nil
	}
	if err := svc.ensureNameAvailable(ctx, name, id); err != nil {
		return nil, err
	}

	category.Name = name
	category.UpdatedAt = time.Now()
	_, err = svc.db.
		NewUpdate().
		Model(category).
		Column("name", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateName(name)
		}
		return nil, errors.WithStack(err)
	}
	return category, nil
}

// DeleteCategory removes a category nobody references any more.
func (svc *Service) DeleteCategory(ctx context.Context, id int) error {
	category, err := svc.RetrieveCategory(ctx, RetrieveCategoryOptions{ID: &id})
	if err != nil {
		return err
	}
	if category.BookCount > 0 {
		return errcodes.ValidationError("Category is still assigned to books and cannot be deleted.")
	}

	res, err := svc.db.
		NewDelete().
		Model((*models.Category)(nil)).
		Where("id = ?", id).
		Where("book_count = 0").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// A book picked the category up between the read and the delete.
		return errcodes.ValidationError("Category is still assigned to books and cannot be deleted.")
	}
	return nil
}

// ValidateCategoriesExist fails with a ValidationError naming every id in ids
// that has no category.
func (svc *Service) ValidateCategoriesExist(ctx context.Context, ids []int) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	var found []int
	err := svc.db.
		NewSelect().
		Model((*models.Category)(nil)).
		Column("id").
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx, &found)
	if err != nil {
		return errors.WithStack(err)
	}

	existing := make(map[int]struct{}, len(found))
	for _, id := range found {
		existing[id] = struct{}{}
	}
	var missing []int
	for _, id := range ids {
		if _, ok := existing[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return errcodes.MissingReferences("Categories", missing)
	}
	return nil
}

// ApplyDelta adds delta to the book count of every category in ids, never
// going below zero. Each category is a separate single-row update; ids with no
// category are skipped. Every category is attempted even if one fails, and
// nothing is rolled back, so a failure can leave the delta partially applied.
func (svc *Service) ApplyDelta(ctx context.Context, ids []int, delta int) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 || delta == 0 {
		return nil
	}
	log := logger.FromContext(ctx)

	var firstErr error
	failed := 0
	for _, id := range ids {
		res, err := svc.db.
			NewUpdate().
			Model((*models.Category)(nil)).
			Set("book_count = MAX(0, book_count + ?)", delta).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			log.Err(err).Warn("category count update failed", logger.Data{"category_id": id, "delta": delta})
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			log.Debug("skipping count update for missing category", logger.Data{"category_id": id, "delta": delta})
		}
	}
	if firstErr != nil {
		return errors.Wrapf(firstErr, "failed to update %d of %d category counts", failed, len(ids))
	}
	return nil
}

// CountDrift is a category whose stored count disagreed with its references.
type CountDrift struct {
	CategoryID int    `bun:"id" json:"category_id"`
	Name       string `bun:"name" json:"name"`
	Stored     int    `bun:"book_count" json:"stored"`
	Actual     int    `bun:"actual" json:"actual"`
}

// FindCountDrift lists the categories whose stored book count disagrees with
// book_categories.
func (svc *Service) FindCountDrift(ctx context.Context) ([]CountDrift, error) {
	drifts := []CountDrift{}
	err := svc.db.
		NewSelect().
		TableExpr("categories AS c").
		ColumnExpr("c.id, c.name, c.book_count").
		ColumnExpr("(SELECT COUNT(*) FROM book_categories AS bc WHERE bc.category_id = c.id) AS actual").
		Where("c.book_count != (SELECT COUNT(*) FROM book_categories AS bc WHERE bc.category_id = c.id)").
		Order("c.id ASC").
		Scan(ctx, &drifts)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return drifts, nil
}

// ReconcileCounts rewrites every drifted count and returns what it fixed. It
// repairs deltas left half-applied by a crash and is not part of any request
// path.
func (svc *Service) ReconcileCounts(ctx context.Context) ([]CountDrift, error) {
	drifts, err := svc.FindCountDrift(ctx)
	if err != nil {
		return nil, err
	}

	for _, d := range drifts {
		_, err := svc.db.
			NewUpdate().
			Model((*models.Category)(nil)).
			Set("book_count = ?", d.Actual).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", d.CategoryID).
			Exec(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return drifts, nil
}

func (svc *Service) ensureNameAvailable(ctx context.Context, name string, exceptID int) error {
	q := svc.db.
		NewSelect().
		Model((*models.Category)(nil)).
		Where("c.name = ? COLLATE NOCASE", name)
	if exceptID != 0 {
		q = q.Where("c.id != ?", exceptID)
	}
	exists, err := q.Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if exists {
		return duplicateName(name)
	}
	return nil
}

func duplicateName(name string) error {
	return errcodes.Conflict("Category " + `"` + name + `"` + " already exists.")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
