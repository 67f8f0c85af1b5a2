package entity

import "github.com/google/uuid"

type Title struct {
	Base
	Name        string     `db:"name"`
	Description *string    `db:"description"`
	Year        int        `db:"year"`
	CategoryID  *uuid.UUID `db:"category_id"`

	// Populated on read
	Category    *Category `db:"-"`
	Genres      []Genre   `db:"-"`
	ScoreSum    int64     `db:"score_sum"`
	ReviewCount int64     `db:"review_count"`
}

// Rating is the mean review score, or nil when the title has no reviews.
func (t *Title) Rating() *float64 {
	return MeanScore(t.ScoreSum, t.ReviewCount)
}

// MeanScore returns sum/count, or nil for count == 0.
func MeanScore(sum, count int64) *float64 {
	if count <= 0 {
		return nil
	}
	mean := float64(sum) / float64(count)
	return &mean
}
