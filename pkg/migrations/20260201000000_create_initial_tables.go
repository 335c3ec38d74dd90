package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		statements := []string{
			`
			CREATE TABLE users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				email TEXT NOT NULL,
				username TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'user',
				is_active BOOLEAN NOT NULL DEFAULT TRUE
			)
			`,
			`CREATE UNIQUE INDEX ux_users_email ON users (email COLLATE NOCASE)`,
			`
			CREATE TABLE categories (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				book_count INTEGER NOT NULL DEFAULT 0 CHECK (book_count >= 0)
			)
			`,
			`CREATE UNIQUE INDEX ux_categories_name ON categories (name COLLATE NOCASE)`,
			`
			CREATE TABLE books (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				title TEXT NOT NULL,
				author TEXT NOT NULL,
				description TEXT,
				cover_image_url TEXT,
				isbn TEXT,
				published_date TEXT,
				related_books TEXT NOT NULL DEFAULT '[]',
				added_by INTEGER REFERENCES users (id) ON DELETE SET NULL,
				updated_by INTEGER REFERENCES users (id) ON DELETE SET NULL
			)
			`,
			`CREATE INDEX ix_books_title ON books (title COLLATE NOCASE)`,
			// category_id is deliberately not a foreign key: a book may keep
			// referencing a category id the counter no longer finds.
			`
			CREATE TABLE book_categories (
				book_id INTEGER NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				category_id INTEGER NOT NULL,
				PRIMARY KEY (book_id, category_id)
			)
			`,
			`CREATE INDEX ix_book_categories_category_id ON book_categories (category_id)`,
			`
			CREATE TABLE resources (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				book_id INTEGER NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				type TEXT NOT NULL,
				content_url TEXT NOT NULL,
				size_bytes INTEGER NOT NULL DEFAULT 0,
				original_name TEXT NOT NULL,
				content_type TEXT,
				checksum TEXT,
				uploaded_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
			`,
			`CREATE INDEX ix_resources_book_id ON resources (book_id, position)`,
			`
			CREATE TABLE saved_books (
				user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
				book_id INTEGER NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (user_id, book_id)
			)
			`,
			`CREATE INDEX ix_saved_books_book_id ON saved_books (book_id)`,
			`
			CREATE TABLE requests (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				type TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'PENDING',
				title TEXT NOT NULL,
				author TEXT NOT NULL,
				description TEXT,
				isbn TEXT,
				category_ids TEXT NOT NULL DEFAULT '[]',
				user_id INTEGER NOT NULL REFERENCES users (id),
				cover_image_url TEXT,
				book_file_urls TEXT NOT NULL DEFAULT '[]',
				rejection_reason TEXT,
				created_book_id INTEGER
			)
			`,
			`CREATE INDEX ix_requests_status_type ON requests (status, type, created_at)`,
			`CREATE INDEX ix_requests_user_id ON requests (user_id, created_at)`,
		}
		for _, stmt := range statements {
			if _, err := db.Exec(stmt); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			DROP TABLE IF EXISTS requests;
			DROP TABLE IF EXISTS saved_books;
			DROP TABLE IF EXISTS resources;
			DROP TABLE IF EXISTS book_categories;
			DROP TABLE IF EXISTS books;
			DROP TABLE IF EXISTS categories;
			DROP TABLE IF EXISTS users;
		`)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
