package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID        int       `bun:",pk,autoincrement" json:"id"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	Name      string    `bun:",notnull" json:"name"`
	BookCount int       `bun:",notnull" json:"book_count"`
}

type BookCategory struct {
	bun.BaseModel `bun:"table:book_categories,alias:bc"`

	BookID     int `bun:",pk" json:"book_id"`
	CategoryID int `bun:",pk" json:"category_id"`
}
