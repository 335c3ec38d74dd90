package activity

import (
	"testing"
	"time"

	"github.com/shishobooks/bookhub/pkg/books"
	"github.com/shishobooks/bookhub/pkg/errcodes"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/shishobooks/bookhub/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type fixture struct {
	db       *bun.DB
	books    *books.Service
	activity *Service
	reader   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutils.NewDB(t)
	bookService := books.NewService(db)
	return &fixture{
		db:       db,
		books:    bookService,
		activity: NewService(db, bookService),
		reader:   testutils.CreateUser(t, db, models.RoleUser),
	}
}

func (f *fixture) book(t *testing.T, title string) *models.Book {
	t.Helper()
	cover := "mem://book-covers/" + title + ".png"
	book := &models.Book{Title: title, Author: "Octavia E. Butler", CoverImageURL: &cover}
	require.NoError(t, f.books.CreateBook(testutils.Context(), book))
	return book
}

func TestRecordHistory_KeepsCopyAfterBookDeleted(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := testutils.Context()
	book := f.book(t, "Kindred")

	entry, err := f.activity.RecordHistory(ctx, f.reader.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kindred", entry.BookTitle)
	assert.Equal(t, *book.CoverImageURL, *entry.CoverImageURL)

	require.NoError(t, f.books.DeleteBook(ctx, book.ID))

	history, err := f.activity.ListHistory(ctx, ListHistoryOptions{UserID: &f.reader.ID})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Kindred", history[0].BookTitle)
	assert.Equal(t, book.ID, history[0].BookID)
}

func TestRecordHistory_UnknownBook(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.activity.RecordHistory(testutils.Context(), f.reader.ID, 404)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeNotFound), "got %v", err)
}

func TestListHistory_NewestFirstPerUser(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := testutils.Context()
	other := testutils.CreateUser(t, f.db, models.RoleUser)
	kindred := f.book(t, "Kindred")
	dawn := f.book(t, "Dawn")

	_, err := f.activity.RecordHistory(ctx, f.reader.ID, kindred.ID)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = f.activity.RecordHistory(ctx, f.reader.ID, dawn.ID)
	require.NoError(t, err)
	_, err = f.activity.RecordHistory(ctx, other.ID, kindred.ID)
	require.NoError(t, err)

	history, total, err := f.activity.ListHistoryWithTotal(ctx, ListHistoryOptions{UserID: &f.reader.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, history, 2)
	assert.Equal(t, "Dawn", history[0].BookTitle)
	assert.Equal(t, "Kindred", history[1].BookTitle)
}

func TestSaveProgress_Upserts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := testutils.Context()
	book := f.book(t, "Kindred")

	first, err := f.activity.SaveProgress(ctx, f.reader.ID, book.ID, 50, 200)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, first.Percentage, 0.001)

	_, err = f.activity.SaveProgress(ctx, f.reader.ID, book.ID, 250, 200)
	require.NoError(t, err)

	got, err := f.activity.RetrieveProgress(ctx, f.reader.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 250, got.CurrentPage)
	assert.InDelta(t, 100.0, got.Percentage, 0.001)

	count, err := f.db.NewSelect().Model((*models.ReadingProgress)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSaveProgress_Invalid(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := testutils.Context()
	book := f.book(t, "Kindred")

	_, err := f.activity.SaveProgress(ctx, f.reader.ID, book.ID, 1, 0)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeValidationError), "got %v", err)
	_, err = f.activity.SaveProgress(ctx, f.reader.ID, book.ID, -1, 10)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeValidationError), "got %v", err)
	_, err = f.activity.SaveProgress(ctx, f.reader.ID, 404, 1, 10)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeNotFound), "got %v", err)
}

func TestProgressRemovedWithBook(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := testutils.Context()
	book := f.book(t, "Kindred")

	_, err := f.activity.SaveProgress(ctx, f.reader.ID, book.ID, 10, 100)
	require.NoError(t, err)
	require.NoError(t, f.books.DeleteBook(ctx, book.ID))

	_, err = f.activity.RetrieveProgress(ctx, f.reader.ID, book.ID)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeNotFound), "got %v", err)
}

func TestPercentage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		current, total int
		expected       float64
	}{
		{0, 100, 0},
		{1, 3, 33.33},
		{150, 300, 50},
		{400, 300, 100},
		{-5, 300, 0},
		{5, 0, 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, Percentage(tt.current, tt.total), 0.001, "%d/%d", tt.current, tt.total)
	}
}
