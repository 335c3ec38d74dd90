package categories

type ListCategoriesQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"100" validate:"min=1,max=200"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}

type CreateCategoryPayload struct {
	Name string `json:"name" validate:"required,trimmedlen=2-50"`
}

type UpdateCategoryPayload struct {
	Name string `json:"name" validate:"required,trimmedlen=2-50"`
}
