package request

// SlugRequest creates a category or a genre. An empty slug is derived from the name.
type SlugRequest struct {
	Name string `json:"name" validate:"required,max=256"`
	Slug string `json:"slug" validate:"omitempty,max=50,slug"`
}
