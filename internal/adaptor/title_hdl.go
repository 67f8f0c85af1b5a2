package adaptor

import (
	"net/http"

	"media-review/internal/dto/request"
	"media-review/internal/usecase"
	"media-review/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TitleHandler struct {
	service usecase.TitleService
	log     *zap.Logger
}

func NewTitleHandler(service usecase.TitleService, log *zap.Logger) *TitleHandler {
	return &TitleHandler{
		service: service,
		log:     log.With(zap.String("handler", "title")),
	}
}

// GetTitles handles GET /api/v1/titles?genre=&category=&name=&year=
func (h *TitleHandler) GetTitles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := request.TitleListQuery{
		PaginatedRequest: paginationFromQuery(r),
		Genre:            query.Get("genre"),
		Category:         query.Get("category"),
		Name:             query.Get("name"),
		Year:             utils.ParseOptionalInt(query.Get("year")),
	}

	titles, err := h.service.GetTitles(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err, "list titles")
		return
	}

	utils.ResponseSuccess(w, "success", titles)
}

// GetTitle handles GET /api/v1/titles/{title_id}
func (h *TitleHandler) GetTitle(w http.ResponseWriter, r *http.Request) {
	title, err := h.service.GetTitleByID(r.Context(), chi.URLParam(r, "title_id"))
	if err != nil {
		writeError(w, h.log, err, "get title")
		return
	}

	utils.ResponseSuccess(w, "success", title)
}

// CreateTitle handles POST /api/v1/titles
func (h *TitleHandler) CreateTitle(w http.ResponseWriter, r *http.Request) {
	var req request.TitleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	title, err := h.service.CreateTitle(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err, "create title")
		return
	}

	utils.ResponseCreated(w, "success", title)
}

// UpdateTitle handles PATCH /api/v1/titles/{title_id}
func (h *TitleHandler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	var req request.TitleUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	title, err := h.service.UpdateTitle(r.Context(), chi.URLParam(r, "title_id"), &req)
	if err != nil {
		writeError(w, h.log, err, "update title")
		return
	}

	utils.ResponseSuccess(w, "success", title)
}

// DeleteTitle handles DELETE /api/v1/titles/{title_id}
func (h *TitleHandler) DeleteTitle(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTitle(r.Context(), chi.URLParam(r, "title_id")); err != nil {
		writeError(w, h.log, err, "delete title")
		return
	}

	utils.ResponseNoContent(w)
}
