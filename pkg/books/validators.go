package books

import "mime/multipart"

// Multipart field names for uploaded files.
const (
	CoverImageField = "cover_image"
	BookFilesField  = "book_files"
)

type ListBooksQuery struct {
	Limit      int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset     int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Title      *string `query:"title" json:"title,omitempty" validate:"omitempty,max=300"`
	CategoryID *int    `query:"category_id" json:"category_id,omitempty" validate:"omitempty,min=1"`
}

type CreateBookPayload struct {
	Title         string  `form:"title" json:"title" mod:"trim" validate:"required,max=300"`
	Author        string  `form:"author" json:"author" mod:"trim" validate:"required,max=200"`
	Description   *string `form:"description" json:"description,omitempty" validate:"omitempty,max=10000"`
	ISBN          *string `form:"isbn" json:"isbn,omitempty" validate:"omitempty,isbn"`
	PublishedDate *string `form:"published_date" json:"published_date,omitempty" validate:"omitempty,date"`
	CategoryIDs   []int   `form:"category_ids" json:"category_ids" validate:"dive,min=1"`
	RelatedBooks  []int   `form:"related_books" json:"related_books" validate:"dive,min=1"`

	FormFiles map[string][]*multipart.FileHeader `form:"-" json:"-"`
}

// UpdateBookPayload is a partial update. A nil CategoryIDs or RelatedBooks
// leaves the field alone; an empty JSON array clears it.
type UpdateBookPayload struct {
	Title         *string `form:"title" json:"title,omitempty" mod:"trim" validate:"omitempty,min=1,max=300"`
	Author        *string `form:"author" json:"author,omitempty" mod:"trim" validate:"omitempty,min=1,max=200"`
	Description   *string `form:"description" json:"description,omitempty" validate:"omitempty,max=10000"`
	ISBN          *string `form:"isbn" json:"isbn,omitempty" validate:"omitempty,isbn"`
	PublishedDate *string `form:"published_date" json:"published_date,omitempty" validate:"omitempty,date"`
	CategoryIDs   []int   `form:"category_ids" json:"category_ids,omitempty" validate:"omitempty,dive,min=1"`
	RelatedBooks  []int   `form:"related_books" json:"related_books,omitempty" validate:"omitempty,dive,min=1"`

	FormFiles map[string][]*multipart.FileHeader `form:"-" json:"-"`
}

type SaveBookResponse struct {
	Saved bool `json:"saved"`
}
