package wire

import (
	"media-review/internal/adaptor"
	"media-review/internal/policy"
	"media-review/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// wireReview configures /reviews and their comments inside a title route.
// Reads are public; writes need a login and the services check authorship.
func wireReview(r chi.Router, reviewHandler *adaptor.ReviewHandler, commentHandler *adaptor.CommentHandler, log *zap.Logger) {
	r.Route("/reviews", func(r chi.Router) {
		r.Use(middleware.Authorize(policy.Discussion, log))

		r.Get("/", reviewHandler.GetReviews)
		r.Post("/", reviewHandler.CreateReview)

		r.Route("/{review_id}", func(r chi.Router) {
			r.Get("/", reviewHandler.GetReview)
			r.Patch("/", reviewHandler.UpdateReview)
			r.Delete("/", reviewHandler.DeleteReview)

			r.Route("/comments", func(r chi.Router) {
				r.Get("/", commentHandler.GetComments)
				r.Post("/", commentHandler.CreateComment)
				r.Get("/{comment_id}", commentHandler.GetComment)
				r.Patch("/{comment_id}", commentHandler.UpdateComment)
				r.Delete("/{comment_id}", commentHandler.DeleteComment)
			})
		})
	})
}
