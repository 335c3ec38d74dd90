// Package testutils holds database fixtures shared by package tests.
package testutils

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/bookhub/pkg/migrations"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var userSeq int64

// Context returns a context carrying a logger, the way request contexts do.
func Context() context.Context {
	return logger.New().WithContext(context.Background())
}

// NewDB opens a migrated in-memory database. The pool is pinned to one
// connection since every new connection to :memory: is a separate database.
func NewDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	sqldb.SetConnMaxLifetime(0)
	sqldb.SetConnMaxIdleTime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// CreateUser inserts an active user with the given role.
func CreateUser(t *testing.T, db *bun.DB, role string) *models.User {
	t.Helper()

	n := atomic.AddInt64(&userSeq, 1)
	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Email:        fmt.Sprintf("reader%d@example.com", n),
		Username:     fmt.Sprintf("reader%d", n),
		PasswordHash: "unused",
		Role:         role,
		IsActive:     true,
	}
	_, err := db.NewInsert().Model(user).Returning("*").Exec(context.Background())
	require.NoError(t, err)
	return user
}

// CreateCategory inserts a category with the given starting count.
func CreateCategory(t *testing.T, db *bun.DB, name string, bookCount int) *models.Category {
	t.Helper()

	now := time.Now()
	category := &models.Category{
		CreatedAt: now,
		UpdatedAt: now,
		Name:      name,
		BookCount: bookCount,
	}
	_, err := db.NewInsert().Model(category).Returning("*").Exec(context.Background())
	require.NoError(t, err)
	return category
}

// BookCount reads the stored count of a category.
func BookCount(t *testing.T, db *bun.DB, categoryID int) int {
	t.Helper()

	category := &models.Category{}
	err := db.NewSelect().Model(category).Where("c.id = ?", categoryID).Scan(context.Background())
	require.NoError(t, err)
	return category.BookCount
}

// PNG returns a small valid PNG for cover uploads.
func PNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 4))
	img.Set(1, 1, color.RGBA{G: 180, A: 255})
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}
