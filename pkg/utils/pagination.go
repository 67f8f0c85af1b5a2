package utils

import "math"

// MaxPage bounds page numbers so that offsets stay far from int overflow.
const MaxPage = math.MaxInt32

// ClampPage normalises raw page and per-page values. Non-positive values
// fall back to page 1 and defaultPerPage; perPage is capped at maxPerPage
// and page at MaxPage.
func ClampPage(page, perPage, defaultPerPage, maxPerPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func CalculateTotalPages(total int64, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// CalculateOffset returns the row offset of page. The result saturates
// instead of overflowing.
func CalculateOffset(page, perPage int) int {
	if page < 1 || perPage < 1 {
		return 0
	}
	if page-1 > math.MaxInt/perPage {
		return math.MaxInt - math.MaxInt%perPage
	}
	return (page - 1) * perPage
}
