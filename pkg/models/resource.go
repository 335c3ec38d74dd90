package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	ResourceTypeImage    = "IMAGE"
	ResourceTypeEbook    = "EBOOK"
	ResourceTypeDocument = "DOCUMENT"
)

// Resource describes one stored blob belonging to a book. Rows are never
// updated in place; replacing a book's files deletes and re-inserts them.
type Resource struct {
	bun.BaseModel `bun:"table:resources,alias:r"`

	ID           int       `bun:",pk,autoincrement" json:"-"`
	BookID       int       `bun:",notnull" json:"-"`
	Position     int       `bun:",notnull" json:"-"`
	Type         string    `bun:",notnull" json:"type"`
	ContentURL   string    `bun:",notnull" json:"content_url"`
	SizeBytes    int64     `bun:",notnull" json:"size_bytes"`
	OriginalName string    `bun:",notnull" json:"original_name"`
	ContentType  *string   `json:"content_type"`
	Checksum     *string   `json:"checksum,omitempty"`
	UploadedAt   time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"uploaded_at"`
}
