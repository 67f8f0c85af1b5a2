package response

import "media-review/internal/data/entity"

// SlugResponse is the public shape of categories and genres.
type SlugResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Helper converters
func GenreToResponse(genre *entity.Genre) SlugResponse {
	return SlugResponse{
		Name: genre.Name,
		Slug: genre.Slug,
	}
}

func CategoryToResponse(category *entity.Category) SlugResponse {
	return SlugResponse{
		Name: category.Name,
		Slug: category.Slug,
	}
}
