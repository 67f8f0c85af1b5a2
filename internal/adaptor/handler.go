package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"media-review/internal/dto/request"
	"media-review/internal/usecase"
	"media-review/pkg/apperr"
	"media-review/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Auth     *AuthHandler
	User     *UserHandler
	Category *CategoryHandler
	Genre    *GenreHandler
	Title    *TitleHandler
	Review   *ReviewHandler
	Comment  *CommentHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(service.Auth, log),
		User:     NewUserHandler(service.User, log),
		Category: NewCategoryHandler(service.Category, log),
		Genre:    NewGenreHandler(service.Genre, log),
		Title:    NewTitleHandler(service.Title, log),
		Review:   NewReviewHandler(service.Review, log),
		Comment:  NewCommentHandler(service.Comment, log),
	}
}

// decodeBody reads a JSON request body into dst and writes a 400 when it
// cannot. An empty body decodes to the zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// paginationFromQuery reads ?page= and ?per_page=.
func paginationFromQuery(r *http.Request) request.PaginatedRequest {
	query := r.URL.Query()
	return request.NewPaginatedRequest(
		utils.ParseInt(query.Get("page"), 1),
		utils.ParseInt(query.Get("per_page"), request.DefaultPerPage),
	)
}

func searchFromQuery(r *http.Request) request.SearchQuery {
	return request.SearchQuery{
		PaginatedRequest: paginationFromQuery(r),
		Search:           r.URL.Query().Get("search"),
	}
}

// requireActor returns the authenticated caller or writes a 401.
func requireActor(w http.ResponseWriter, r *http.Request) (usecase.Actor, bool) {
	actor, ok := usecase.ActorFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
	}
	return actor, ok
}

// writeError renders a service error. Client errors are logged at debug level.
func writeError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	if ae := apperr.As(err); ae != nil && ae.HTTPStatus < http.StatusInternalServerError {
		log.Debug(operation+" rejected",
			zap.String("code", ae.Code),
			zap.String("message", ae.Message))
	} else {
		log.Error("Failed to "+operation, zap.Error(err))
	}
	utils.ResponseError(w, err)
}
