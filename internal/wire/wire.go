// internal/wire/wire.go
package wire

import (
	"context"
	"net/http"
	"time"

	"media-review/internal/adaptor"
	"media-review/internal/data/repository"
	"media-review/internal/usecase"
	"media-review/pkg/middleware"
	"media-review/pkg/security"
	"media-review/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// App holds the wired application
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Wiring builds services, handlers and the router
func Wiring(repo *repository.Repository, deps usecase.Deps, db Pinger, logger *zap.Logger) *App {
	service := usecase.NewService(repo, deps, logger)
	handler := adaptor.NewHandler(service, logger)

	return &App{
		Router:  setupRouter(handler, repo.User, deps.Tokens, db, logger),
		Service: service,
	}
}

// setupRouter configures the chi route tree
func setupRouter(
	handler *adaptor.Handler,
	users middleware.UserLoader,
	tokens *security.TokenService,
	db Pinger,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	r.Route("/api/v1", func(r chi.Router) {
		// signup and token exchange ignore any Authorization header
		wireAuth(r, handler.Auth)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(tokens, users, logger))

			wireUser(r, handler.User, logger)
			wireCatalog(r, handler.Category, handler.Genre, logger)
			wireTitle(r, handler.Title, handler.Review, handler.Comment, logger)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			logger.Warn("Health check failed", zap.Error(err))
			utils.ResponseJSON(w, http.StatusServiceUnavailable, false, "Database unavailable", nil, nil)
			return
		}
		utils.ResponseSuccess(w, "OK", nil)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.ResponseNotFound(w, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.ResponseJSON(w, http.StatusMethodNotAllowed, false, "Method not allowed", nil, nil)
	})

	return r
}
