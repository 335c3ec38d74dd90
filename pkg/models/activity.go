package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ReadingHistory keeps its own copy of the title and cover so entries stay
// readable after the book is gone.
type ReadingHistory struct {
	bun.BaseModel `bun:"table:reading_history,alias:rh"`

	ID            int       `bun:",pk,autoincrement" json:"id"`
	UserID        int       `bun:",notnull" json:"user_id"`
	BookID        int       `bun:",notnull" json:"book_id"`
	BookTitle     string    `bun:",notnull" json:"book_title"`
	CoverImageURL *string   `bun:"cover_image_url" json:"cover_image_url"`
	ReadAt        time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"read_at"`
}

type ReadingProgress struct {
	bun.BaseModel `bun:"table:reading_progress,alias:rp"`

	ID          int       `bun:",pk,autoincrement" json:"id"`
	CreatedAt   time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	UserID      int       `bun:",notnull" json:"user_id"`
	BookID      int       `bun:",notnull" json:"book_id"`
	CurrentPage int       `bun:",notnull" json:"current_page"`
	TotalPages  int       `bun:",notnull" json:"total_pages"`
	Percentage  float64   `bun:",notnull" json:"percentage"`
}
