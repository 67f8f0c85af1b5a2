package wire

import (
	"media-review/internal/adaptor"
	"media-review/internal/policy"
	"media-review/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// wireCatalog configures categories and genres: public reads, admin writes
func wireCatalog(r chi.Router, categoryHandler *adaptor.CategoryHandler, genreHandler *adaptor.GenreHandler, log *zap.Logger) {
	r.Route("/categories", func(r chi.Router) {
		r.Use(middleware.Authorize(policy.Catalog, log))

		r.Get("/", categoryHandler.GetCategories)
		r.Post("/", categoryHandler.CreateCategory)
		r.Delete("/{slug}", categoryHandler.DeleteCategory)
	})

	r.Route("/genres", func(r chi.Router) {
		r.Use(middleware.Authorize(policy.Catalog, log))

		r.Get("/", genreHandler.GetGenres)
		r.Post("/", genreHandler.CreateGenre)
		r.Delete("/{slug}", genreHandler.DeleteGenre)
	})
}

// wireTitle configures titles (public reads, admin writes) and mounts the
// discussion routes under each title
func wireTitle(
	r chi.Router,
	titleHandler *adaptor.TitleHandler,
	reviewHandler *adaptor.ReviewHandler,
	commentHandler *adaptor.CommentHandler,
	log *zap.Logger,
) {
	catalog := middleware.Authorize(policy.Catalog, log)

	r.Route("/titles", func(r chi.Router) {
		r.With(catalog).Get("/", titleHandler.GetTitles)
		r.With(catalog).Post("/", titleHandler.CreateTitle)

		r.Route("/{title_id}", func(r chi.Router) {
			r.With(catalog).Get("/", titleHandler.GetTitle)
			r.With(catalog).Patch("/", titleHandler.UpdateTitle)
			r.With(catalog).Delete("/", titleHandler.DeleteTitle)

			wireReview(r, reviewHandler, commentHandler, log)
		})
	})
}
