package response

import "media-review/internal/data/entity"

type TitleResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Year        int            `json:"year"`
	Rating      *float64       `json:"rating"`
	Description *string        `json:"description"`
	Category    *SlugResponse  `json:"category"`
	Genre       []SlugResponse `json:"genre"`
}

// Helper converter
func TitleToResponse(title *entity.Title) TitleResponse {
	resp := TitleResponse{
		ID:          title.ID.String(),
		Name:        title.Name,
		Year:        title.Year,
		Rating:      title.Rating(),
		Description: title.Description,
		Genre:       make([]SlugResponse, 0, len(title.Genres)),
	}

	if title.Category != nil {
		category := CategoryToResponse(title.Category)
		resp.Category = &category
	}
	for i := range title.Genres {
		resp.Genre = append(resp.Genre, GenreToResponse(&title.Genres[i]))
	}

	return resp
}
