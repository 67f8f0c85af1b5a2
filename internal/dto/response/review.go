package response

import (
	"time"

	"media-review/internal/data/entity"
)

type ReviewResponse struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	Score   int       `json:"score"`
	PubDate time.Time `json:"pub_date"`
}

type CommentResponse struct {
	ID      string    `json:"id"`
	Review  string    `json:"review"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	PubDate time.Time `json:"pub_date"`
}

// Helper converters
func ReviewToResponse(review *entity.Review) ReviewResponse {
	return ReviewResponse{
		ID:      review.ID.String(),
		Title:   review.TitleName,
		Author:  review.AuthorUsername,
		Text:    review.Text,
		Score:   review.Score,
		PubDate: review.PubDate,
	}
}

func CommentToResponse(comment *entity.Comment) CommentResponse {
	return CommentResponse{
		ID:      comment.ID.String(),
		Review:  comment.ReviewID.String(),
		Author:  comment.AuthorUsername,
		Text:    comment.Text,
		PubDate: comment.PubDate,
	}
}
