package requests

import "mime/multipart"

// Multipart field names for contributed files.
const (
	CoverImageField = "cover_image"
	BookFilesField  = "book_files"
)

type ListRequestsQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Type   *string `query:"type" json:"type,omitempty" validate:"omitempty,oneof=CONTRIBUTION LOOKUP"`
	Status string  `query:"status" json:"status,omitempty" default:"PENDING" validate:"oneof=PENDING APPROVED REJECTED"`
}

type ListMyRequestsQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}

type ContributionPayload struct {
	Title       string  `form:"title" json:"title" mod:"trim" validate:"required,max=300"`
	Author      string  `form:"author" json:"author" mod:"trim" validate:"required,max=200"`
	Description *string `form:"description" json:"description,omitempty" validate:"omitempty,max=10000"`
	ISBN        *string `form:"isbn" json:"isbn,omitempty" validate:"omitempty,isbn"`
	CategoryIDs []int   `form:"category_ids" json:"category_ids" validate:"dive,min=1"`

	FormFiles map[string][]*multipart.FileHeader `form:"-" json:"-"`
}

type LookupPayload struct {
	Title       string  `json:"title" mod:"trim" validate:"required,max=300"`
	Author      string  `json:"author" mod:"trim" validate:"required,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=10000"`
	ISBN        *string `json:"isbn,omitempty" validate:"omitempty,isbn"`
	CategoryIDs []int   `json:"category_ids" validate:"dive,min=1"`
}

// ApprovePayload may be empty. CreatedBookID is required only for lookups,
// which the workflow checks itself.
type ApprovePayload struct {
	CreatedBookID *int `json:"created_book_id,omitempty"`
}

type RejectPayload struct {
	Reason string `json:"reason" mod:"trim" validate:"required,max=1000"`
}
