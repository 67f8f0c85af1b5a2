package request

import "media-review/pkg/utils"

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

type PaginatedRequest struct {
	Page    int `json:"page" validate:"min=1"`
	PerPage int `json:"per_page" validate:"min=1,max=100"`
}

// NewPaginatedRequest clamps raw query values into a usable page.
func NewPaginatedRequest(page, perPage int) PaginatedRequest {
	page, perPage = utils.ClampPage(page, perPage, DefaultPerPage, MaxPerPage)
	return PaginatedRequest{Page: page, PerPage: perPage}
}

func (p PaginatedRequest) Offset() int {
	page, perPage := utils.ClampPage(p.Page, p.PerPage, DefaultPerPage, MaxPerPage)
	return utils.CalculateOffset(page, perPage)
}

func (p PaginatedRequest) Limit() int {
	_, perPage := utils.ClampPage(p.Page, p.PerPage, DefaultPerPage, MaxPerPage)
	return perPage
}

// SearchQuery is a paginated list request with a name search term.
type SearchQuery struct {
	PaginatedRequest
	Search string
}
