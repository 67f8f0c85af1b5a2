package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"media-review/internal/data/entity"
	"media-review/internal/data/repository"
	"media-review/internal/dto/request"
	"media-review/internal/dto/response"
	"media-review/pkg/apperr"
	"media-review/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TitleService interface {
	GetTitles(ctx context.Context, req request.TitleListQuery) (*response.PaginatedResponse[response.TitleResponse], error)
	GetTitleByID(ctx context.Context, titleID string) (*response.TitleResponse, error)
	CreateTitle(ctx context.Context, req *request.TitleRequest) (*response.TitleResponse, error)
	UpdateTitle(ctx context.Context, titleID string, req *request.TitleUpdateRequest) (*response.TitleResponse, error)
	DeleteTitle(ctx context.Context, titleID string) error
}

type titleService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewTitleService(repo *repository.Repository, now func() time.Time, log *zap.Logger) TitleService {
	return &titleService{
		repo: repo,
		now:  now,
		log:  log.With(zap.String("service", "title")),
	}
}

func (s *titleService) GetTitles(ctx context.Context, req request.TitleListQuery) (*response.PaginatedResponse[response.TitleResponse], error) {
	filter := repository.TitleFilter{
		Genre:    strings.TrimSpace(req.Genre),
		Category: strings.TrimSpace(req.Category),
		Name:     strings.TrimSpace(req.Name),
		Year:     req.Year,
	}

	titles, err := s.repo.Title.FindAll(ctx, filter, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to get titles", zap.Error(err))
		return nil, apperr.Internal(err)
	}

	total, err := s.repo.Title.CountAll(ctx, filter)
	if err != nil {
		s.log.Error("Failed to count titles", zap.Error(err))
		return nil, apperr.Internal(err)
	}

	return response.MapPage(titles, response.TitleToResponse, req.Page, req.Limit(), total), nil
}

func (s *titleService) find(ctx context.Context, titleID string) (*entity.Title, error) {
	id, ok := parseID(titleID)
	if !ok {
		return nil, apperr.NotFound("Title")
	}

	title, err := s.repo.Title.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to find title", zap.Error(err), zap.String("title_id", titleID))
		return nil, apperr.Internal(err)
	}
	if title == nil {
		return nil, apperr.NotFound("Title")
	}
	return title, nil
}

func (s *titleService) GetTitleByID(ctx context.Context, titleID string) (*response.TitleResponse, error) {
	title, err := s.find(ctx, titleID)
	if err != nil {
		return nil, err
	}

	resp := response.TitleToResponse(title)
	return &resp, nil
}

func (s *titleService) validateYear(year int) *apperr.AppError {
	if year > s.now().Year() {
		return apperr.ValidationError("Validation failed",
			apperr.FieldError{Field: "year", Message: "Year cannot be in the future"})
	}
	return nil
}

func (s *titleService) resolveCategory(ctx context.Context, categorySlug string) (*entity.Category, error) {
	category, err := s.repo.Category.FindBySlug(ctx, categorySlug)
	if err != nil {
		s.log.Error("Failed to find category", zap.Error(err), zap.String("slug", categorySlug))
		return nil, apperr.Internal(err)
	}
	if category == nil {
		return nil, apperr.ValidationError("Validation failed",
			apperr.FieldError{Field: "category", Message: fmt.Sprintf("Category %q does not exist", categorySlug)})
	}
	return category, nil
}

// resolveGenres maps slugs to genre ids, ignoring repeats. Every slug must exist.
func (s *titleService) resolveGenres(ctx context.Context, slugs []string) ([]uuid.UUID, error) {
	unique := make([]string, 0, len(slugs))
	seen := make(map[string]struct{}, len(slugs))
	for _, sl := range slugs {
		if _, dup := seen[sl]; dup {
			continue
		}
		seen[sl] = struct{}{}
		unique = append(unique, sl)
	}

	genres, err := s.repo.Genre.FindBySlugs(ctx, unique)
	if err != nil {
		s.log.Error("Failed to find genres", zap.Error(err), zap.Strings("slugs", unique))
		return nil, apperr.Internal(err)
	}

	found := make(map[string]uuid.UUID, len(genres))
	for _, g := range genres {
		found[g.Slug] = g.ID
	}

	ids := make([]uuid.UUID, 0, len(unique))
	for _, sl := range unique {
		id, ok := found[sl]
		if !ok {
			return nil, apperr.ValidationError("Validation failed",
				apperr.FieldError{Field: "genre", Message: fmt.Sprintf("Genre %q does not exist", sl)})
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func titleSaveError(err error) *apperr.AppError {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperr.ConstraintViolation("Title with this name already exists in the category",
			apperr.FieldError{Field: "name", Message: "Already exists in this category"})
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Title")
	}
	return apperr.Internal(err)
}

func (s *titleService) CreateTitle(ctx context.Context, req *request.TitleRequest) (*response.TitleResponse, error) {
	// Validate request data
	req.Name = strings.TrimSpace(req.Name)
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.FromFields("Validation failed", errs)
	}
	if err := s.validateYear(req.Year); err != nil {
		return nil, err
	}

	// Resolve references by slug
	category, err := s.resolveCategory(ctx, req.Category)
	if err != nil {
		return nil, err
	}
	genreIDs, err := s.resolveGenres(ctx, req.Genre)
	if err != nil {
		return nil, err
	}

	now := s.now()
	title := &entity.Title{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        req.Name,
		Description: req.Description,
		Year:        req.Year,
		CategoryID:  &category.ID,
	}

	if err := s.repo.Title.Create(ctx, title, genreIDs); err != nil {
		appErr := titleSaveError(err)
		if appErr.Cause != nil {
			s.log.Error("Failed to create title", zap.Error(err), zap.String("name", req.Name))
		}
		return nil, appErr
	}

	s.log.Info("Title created",
		zap.String("title_id", title.ID.String()),
		zap.String("name", title.Name),
		zap.Int("genre_count", len(genreIDs)),
	)

	return s.GetTitleByID(ctx, title.ID.String())
}

func (s *titleService) UpdateTitle(ctx context.Context, titleID string, req *request.TitleUpdateRequest) (*response.TitleResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.FromFields("Validation failed", errs)
	}

	title, err := s.find(ctx, titleID)
	if err != nil {
		return nil, err
	}

	// Apply partial update
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.ValidationError("Validation failed",
				apperr.FieldError{Field: "name", Message: "This field is required"})
		}
		title.Name = name
	}
	if req.Year != nil {
		if err := s.validateYear(*req.Year); err != nil {
			return nil, err
		}
		title.Year = *req.Year
	}
	if req.Description != nil {
		title.Description = req.Description
	}
	if req.Category != nil {
		category, err := s.resolveCategory(ctx, *req.Category)
		if err != nil {
			return nil, err
		}
		title.CategoryID = &category.ID
	}

	var genreIDs []uuid.UUID
	if req.Genre != nil {
		if genreIDs, err = s.resolveGenres(ctx, req.Genre); err != nil {
			return nil, err
		}
	}

	title.UpdatedAt = s.now()
	if err := s.repo.Title.Update(ctx, title, genreIDs); err != nil {
		appErr := titleSaveError(err)
		if appErr.Cause != nil {
			s.log.Error("Failed to update title", zap.Error(err), zap.String("title_id", titleID))
		}
		return nil, appErr
	}

	s.log.Info("Title updated", zap.String("title_id", titleID))

	return s.GetTitleByID(ctx, titleID)
}

func (s *titleService) DeleteTitle(ctx context.Context, titleID string) error {
	id, ok := parseID(titleID)
	if !ok {
		return apperr.NotFound("Title")
	}

	if err := s.repo.Title.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Title")
		}
		s.log.Error("Failed to delete title", zap.Error(err), zap.String("title_id", titleID))
		return apperr.Internal(err)
	}
	return nil
}
