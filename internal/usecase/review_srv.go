package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"media-review/internal/data/entity"
	"media-review/internal/data/repository"
	"media-review/internal/dto/request"
	"media-review/internal/dto/response"
	"media-review/internal/policy"
	"media-review/pkg/apperr"
	"media-review/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReviewService interface {
	GetReviews(ctx context.Context, titleID string, req request.PaginatedRequest) (*response.PaginatedResponse[response.ReviewResponse], error)
	GetReview(ctx context.Context, titleID, reviewID string) (*response.ReviewResponse, error)
	// CreateReview fails with a constraint violation when actor already reviewed the title.
	CreateReview(ctx context.Context, actor Actor, titleID string, req *request.ReviewRequest) (*response.ReviewResponse, error)
	UpdateReview(ctx context.Context, actor Actor, titleID, reviewID string, req *request.ReviewUpdateRequest) (*response.ReviewResponse, error)
	DeleteReview(ctx context.Context, actor Actor, titleID, reviewID string) error
}

type reviewService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewReviewService(repo *repository.Repository, now func() time.Time, log *zap.Logger) ReviewService {
	return &reviewService{
		repo: repo,
		now:  now,
		log:  log.With(zap.String("service", "review")),
	}
}

// requireTitle returns the parsed id of an existing title.
func requireTitle(ctx context.Context, repo repository.TitleRepository, log *zap.Logger, titleID string) (uuid.UUID, error) {
	id, ok := parseID(titleID)
	if !ok {
		return uuid.Nil, apperr.NotFound("Title")
	}

	title, err := repo.FindByID(ctx, id)
	if err != nil {
		log.Error("Failed to find title", zap.Error(err), zap.String("title_id", titleID))
		return uuid.Nil, apperr.Internal(err)
	}
	if title == nil {
		return uuid.Nil, apperr.NotFound("Title")
	}
	return id, nil
}

// requireReview loads a review and checks that it belongs to the title.
func requireReview(ctx context.Context, repo repository.ReviewRepository, log *zap.Logger, titleID uuid.UUID, reviewID string) (*entity.Review, error) {
	id, ok := parseID(reviewID)
	if !ok {
		return nil, apperr.NotFound("Review")
	}

	review, err := repo.FindByID(ctx, id)
	if err != nil {
		log.Error("Failed to find review", zap.Error(err), zap.String("review_id", reviewID))
		return nil, apperr.Internal(err)
	}
	if review == nil || review.TitleID != titleID {
		return nil, apperr.NotFound("Review")
	}
	return review, nil
}

// authorize applies the discussion rules with the real author of the object.
func authorize(actor Actor, method string, authorID uuid.UUID) error {
	if !policy.Decide(actor.Role, policy.Discussion, method, actor.ID == authorID) {
		return apperr.Forbidden("You do not have permission to perform this action")
	}
	return nil
}

func (s *reviewService) GetReviews(ctx context.Context, titleID string, req request.PaginatedRequest) (*response.PaginatedResponse[response.ReviewResponse], error) {
	id, err := requireTitle(ctx, s.repo.Title, s.log, titleID)
	if err != nil {
		return nil, err
	}

	reviews, err := s.repo.Review.FindByTitleID(ctx, id, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to get reviews", zap.Error(err), zap.String("title_id", titleID))
		return nil, apperr.Internal(err)
	}

	total, err := s.repo.Review.CountByTitleID(ctx, id)
	if err != nil {
		s.log.Error("Failed to count reviews", zap.Error(err), zap.String("title_id", titleID))
		return nil, apperr.Internal(err)
	}

	return response.MapPage(reviews, response.ReviewToResponse, req.Page, req.Limit(), total), nil
}

func (s *reviewService) GetReview(ctx context.Context, titleID, reviewID string) (*response.ReviewResponse, error) {
	tid, err := requireTitle(ctx, s.repo.Title, s.log, titleID)
	if err != nil {
		return nil, err
	}

	review, err := requireReview(ctx, s.repo.Review, s.log, tid, reviewID)
	if err != nil {
		return nil, err
	}

	resp := response.ReviewToResponse(review)
	return &resp, nil
}

func (s *reviewService) CreateReview(ctx context.Context, actor Actor, titleID string, req *request.ReviewRequest) (*response.ReviewResponse, error) {
	// 1. Validate input
	req.Text = strings.TrimSpace(req.Text)
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.FromFields("Validation failed", errs)
	}

	// 2. Check permission and parent
	if !policy.Decide(actor.Role, policy.Discussion, http.MethodPost, false) {
		return nil, apperr.Forbidden("You do not have permission to perform this action")
	}
	tid, err := requireTitle(ctx, s.repo.Title, s.log, titleID)
	if err != nil {
		return nil, err
	}

	// 3. Insert; the (author, title) unique index rejects a second review
	now := s.now()
	review := &entity.Review{
		ID:        uuid.New(),
		TitleID:   tid,
		AuthorID:  actor.ID,
		Text:      req.Text,
		Score:     req.Score,
		PubDate:   now,
		UpdatedAt: now,
	}

	if err := s.repo.Review.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.ConstraintViolation("You have already reviewed this title")
		}
		s.log.Error("Failed to create review",
			zap.Error(err),
			zap.String("title_id", titleID),
			zap.String("author_id", actor.ID.String()))
		return nil, apperr.Internal(err)
	}

	s.log.Info("Review created",
		zap.String("review_id", review.ID.String()),
		zap.String("title_id", titleID),
		zap.Int("score", review.Score))

	return s.GetReview(ctx, titleID, review.ID.String())
}

func (s *reviewService) UpdateReview(ctx context.Context, actor Actor, titleID, reviewID string, req *request.ReviewUpdateRequest) (*response.ReviewResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.FromFields("Validation failed", errs)
	}

	tid, err := requireTitle(ctx, s.repo.Title, s.log, titleID)
	if err != nil {
		return nil, err
	}
	review, err := requireReview(ctx, s.repo.Review, s.log, tid, reviewID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, http.MethodPatch, review.AuthorID); err != nil {
		return nil, err
	}

	if req.Text != nil {
		text := strings.TrimSpace(*req.Text)
		if text == "" {
			return nil, apperr.ValidationError("Validation failed",
				apperr.FieldError{Field: "text", Message: "This field is required"})
		}
		review.Text = text
	}
	if req.Score != nil {
		review.Score = *req.Score
	}
	review.UpdatedAt = s.now()

	if err := s.repo.Review.Update(ctx, review); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Review")
		}
		s.log.Error("Failed to update review", zap.Error(err), zap.String("review_id", reviewID))
		return nil, apperr.Internal(err)
	}

	resp := response.ReviewToResponse(review)
	return &resp, nil
}

func (s *reviewService) DeleteReview(ctx context.Context, actor Actor, titleID, reviewID string) error {
	tid, err := requireTitle(ctx, s.repo.Title, s.log, titleID)
	if err != nil {
		return err
	}
	review, err := requireReview(ctx, s.repo.Review, s.log, tid, reviewID)
	if err != nil {
		return err
	}
	if err := authorize(actor, http.MethodDelete, review.AuthorID); err != nil {
		return err
	}

	if err := s.repo.Review.Delete(ctx, review.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Review")
		}
		s.log.Error("Failed to delete review", zap.Error(err), zap.String("review_id", reviewID))
		return apperr.Internal(err)
	}

	s.log.Info("Review deleted",
		zap.String("review_id", reviewID),
		zap.String("by", actor.ID.String()),
		zap.String("role", string(actor.Role)))
	return nil
}
