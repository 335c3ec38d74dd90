package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID            int         `bun:",pk,autoincrement" json:"id"`
	CreatedAt     time.Time   `bun:",nullzero,notnull,default:current_timestamp" json:"added_on"`
	UpdatedAt     time.Time   `bun:",nullzero,notnull,default:current_timestamp" json:"updated_on"`
	Title         string      `bun:",notnull" json:"title"`
	Author        string      `bun:",notnull" json:"author"`
	Description   *string     `json:"description"`
	CoverImageURL *string     `bun:"cover_image_url" json:"cover_image_url"`
	ISBN          *string     `bun:"isbn" json:"isbn"`
	PublishedDate *string     `json:"published_date"`
	RelatedBooks  IntList     `bun:",notnull" json:"related_books"`
	AddedBy       *int        `json:"added_by"`
	UpdatedBy     *int        `json:"updated_by"`
	Resources     []*Resource `bun:"rel:has-many,join:id=book_id" json:"resources"`

	// Filled from book_categories and saved_books after the row is loaded.
	CategoryIDs []int `bun:"-" json:"category_ids"`
	SavedBy     []int `bun:"-" json:"saved_by"`
}

// CoverResources returns the cover image resources, in order. Book files are
// never images, so the type alone tells them apart.
func (b *Book) CoverResources() []*Resource {
	covers := make([]*Resource, 0, 1)
	for _, r := range b.Resources {
		if r.Type == ResourceTypeImage {
			covers = append(covers, r)
		}
	}
	return covers
}

// BookFiles returns every resource that is not the cover image, in order.
func (b *Book) BookFiles() []*Resource {
	files := make([]*Resource, 0, len(b.Resources))
	for _, r := range b.Resources {
		if r.Type != ResourceTypeImage {
			files = append(files, r)
		}
	}
	return files
}

type SavedBook struct {
	bun.BaseModel `bun:"table:saved_books,alias:sb"`

	UserID    int       `bun:",pk" json:"user_id"`
	BookID    int       `bun:",pk" json:"book_id"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
}
