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
	"media-review/pkg/slug"
	"media-review/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CategoryService interface {
	GetCategories(ctx context.Context, req request.SearchQuery) (*response.PaginatedResponse[response.SlugResponse], error)
	CreateCategory(ctx context.Context, req *request.SlugRequest) (*response.SlugResponse, error)
	DeleteCategory(ctx context.Context, categorySlug string) error
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
	now          func() time.Time
	log          *zap.Logger
}

func NewCategoryService(categoryRepo repository.CategoryRepository, now func() time.Time, log *zap.Logger) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		now:          now,
		log:          log.With(zap.String("service", "category")),
	}
}

// normalizeSlugRequest validates req and fills in a slug derived from the name.
func normalizeSlugRequest(req *request.SlugRequest) *apperr.AppError {
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.TrimSpace(req.Slug)
	if req.Slug == "" {
		req.Slug = slug.From(req.Name)
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return apperr.FromFields("Validation failed", errs)
	}
	if req.Slug == "" {
		return apperr.ValidationError("Validation failed",
			apperr.FieldError{Field: "slug", Message: "Cannot derive a slug from this name, provide one"})
	}
	return nil
}

func (s *categoryService) GetCategories(ctx context.Context, req request.SearchQuery) (*response.PaginatedResponse[response.SlugResponse], error) {
	params := repository.ListParams{
		Limit:  req.Limit(),
		Offset: req.Offset(),
		Search: strings.TrimSpace(req.Search),
	}

	categories, err := s.categoryRepo.FindAll(ctx, params)
	if err != nil {
		s.log.Error("Failed to get categories", zap.Error(err))
		return nil, apperr.Internal(err)
	}

	total, err := s.categoryRepo.CountAll(ctx, params.Search)
	if err != nil {
		s.log.Error("Failed to count categories", zap.Error(err))
		return nil, apperr.Internal(err)
	}

	return response.MapPage(categories, response.CategoryToResponse, req.Page, req.Limit(), total), nil
}

func (s *categoryService) CreateCategory(ctx context.Context, req *request.SlugRequest) (*response.SlugResponse, error) {
	if err := normalizeSlugRequest(req); err != nil {
		return nil, err
	}

	category := &entity.Category{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: s.now(),
		},
		Name: req.Name,
		Slug: req.Slug,
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.ConstraintViolation("Category with this slug already exists",
				apperr.FieldError{Field: "slug", Message: "Already taken"})
		}
		s.log.Error("Failed to create category", zap.Error(err), zap.String("slug", req.Slug))
		return nil, apperr.Internal(err)
	}

	s.log.Info("Category created", zap.String("slug", category.Slug))

	resp := response.CategoryToResponse(category)
	return &resp, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, categorySlug string) error {
	if err := s.categoryRepo.DeleteBySlug(ctx, categorySlug); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Category")
		}
		s.log.Error("Failed to delete category", zap.Error(err), zap.String("slug", categorySlug))
		return apperr.Internal(err)
	}
	return nil
}
