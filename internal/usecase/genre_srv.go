package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"media-review/internal/data/entity"
	"media-review/internal/data/repository"
	"media-review/internal/dto/request"
	"media-review/internal/dto/response"
	"media-review/pkg/apperr"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type GenreService interface {
	GetGenres(ctx context.Context, req request.SearchQuery) (*response.PaginatedResponse[response.SlugResponse], error)
	CreateGenre(ctx context.Context, req *request.SlugRequest) (*response.SlugResponse, error)
	DeleteGenre(ctx context.Context, slug string) error
}

type genreService struct {
	genreRepo repository.GenreRepository
	now       func() time.Time
	log       *zap.Logger
}

func NewGenreService(genreRepo repository.GenreRepository, now func() time.Time, log *zap.Logger) GenreService {
	return &genreService{
		genreRepo: genreRepo,
		now:       now,
		log:       log.With(zap.String("service", "genre")),
	}
}

func (s *genreService) GetGenres(ctx context.Context, req request.SearchQuery) (*response.PaginatedResponse[response.SlugResponse], error) {
	params := repository.ListParams{
		Limit:  req.Limit(),
		Offset: req.Offset(),
		Search: strings.TrimSpace(req.Search),
	}

	genres, err := s.genreRepo.FindAll(ctx, params)
	if err != nil {
		s.log.Error("Failed to get genres", zap.Error(err))
		return nil, apperr.Internal(err)
	}

	total, err := s.genreRepo.CountAll(ctx, params.Search)
	if err != nil {
		s.log.Error("Failed to count genres", zap.Error(err))
		return nil, apperr.Internal(err)
	}

	return response.MapPage(genres, response.GenreToResponse, req.Page, req.Limit(), total), nil
}

func (s *genreService) CreateGenre(ctx context.Context, req *request.SlugRequest) (*response.SlugResponse, error) {
	if err := normalizeSlugRequest(req); err != nil {
		return nil, err
	}

	genre := &entity.Genre{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: s.now(),
		},
		Name: req.Name,
		Slug: req.Slug,
	}

	if err := s.genreRepo.Create(ctx, genre); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.ConstraintViolation("Genre with this slug already exists",
				apperr.FieldError{Field: "slug", Message: "Already taken"})
		}
		s.log.Error("Failed to create genre", zap.Error(err), zap.String("slug", req.Slug))
		return nil, apperr.Internal(err)
	}

	s.log.Info("Genre created", zap.String("slug", genre.Slug))

	resp := response.GenreToResponse(genre)
	return &resp, nil
}

func (s *genreService) DeleteGenre(ctx context.Context, slug string) error {
	if err := s.genreRepo.DeleteBySlug(ctx, slug); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Genre")
		}
		s.log.Error("Failed to delete genre", zap.Error(err), zap.String("slug", slug))
		return apperr.Internal(err)
	}
	return nil
}
