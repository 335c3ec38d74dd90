package activity

type RecordHistoryPayload struct {
	BookID int `json:"book_id" validate:"required,min=1"`
}

type ListHistoryQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"20" validate:"min=1,max=100"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}

type SaveProgressPayload struct {
	BookID      int `json:"book_id" validate:"required,min=1"`
	CurrentPage int `json:"current_page" validate:"min=0"`
	TotalPages  int `json:"total_pages" validate:"required,min=1"`
}
