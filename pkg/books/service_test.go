package books

import (
	"testing"

	"github.com/shishobooks/bookhub/pkg/errcodes"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/shishobooks/bookhub/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListBooks_Filters(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := testutils.Context()
	fiction := testutils.CreateCategory(t, f.db, "Fiction", 0)

	dune := f.create(t, "Dune", fiction.ID)
	f.create(t, "Children of Dune")
	f.create(t, "Hyperion")

	books, total, err := f.books.ListBooksWithTotal(ctx, ListBooksOptions{Title: ptr("dune")})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, books, 2)

	books, total, err = f.books.ListBooksWithTotal(ctx, ListBooksOptions{CategoryID: &fiction.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, books, 1)
	assert.Equal(t, dune.ID, books[0].ID)
	assert.Equal(t, []int{fiction.ID}, books[0].CategoryIDs)

	books, total, err = f.books.ListBooksWithTotal(ctx, ListBooksOptions{Limit: ptr(1), Offset: ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, books, 1)

	books, err = f.books.ListBooks(ctx, ListBooksOptions{Title: ptr("100%")})
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestToggleSaved(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := testutils.Context()
	reader := testutils.CreateUser(t, f.db, models.RoleUser)
	book := f.create(t, "Dune")

	saved, err := f.books.ToggleSaved(ctx, reader.ID, book.ID)
	require.NoError(t, err)
	assert.True(t, saved)

	got, err := f.books.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, []int{reader.ID}, got.SavedBy)

	mine, err := f.books.ListBooks(ctx, ListBooksOptions{SavedByUser: &reader.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	saved, err = f.books.ToggleSaved(ctx, reader.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, saved)

	got, err = f.books.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Empty(t, got.SavedBy)

	_, err = f.books.ToggleSaved(ctx, reader.ID, 999)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeNotFound), "got %v", err)
}

func TestDeleteBook_RemovesDependentRows(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := testutils.Context()
	reader := testutils.CreateUser(t, f.db, models.RoleUser)
	book := f.create(t, "Dune")

	_, err := f.books.ToggleSaved(ctx, reader.ID, book.ID)
	require.NoError(t, err)
	_, err = f.db.NewInsert().Model(&models.ReadingProgress{
		UserID: reader.ID, BookID: book.ID, CurrentPage: 10, TotalPages: 100, Percentage: 10,
	}).Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, f.books.DeleteBook(ctx, book.ID))

	for _, model := range []interface{}{
		(*models.Resource)(nil),
		(*models.SavedBook)(nil),
		(*models.ReadingProgress)(nil),
	} {
		count, err := f.db.NewSelect().Model(model).Where("book_id = ?", book.ID).Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	}
}
