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

type CommentService interface {
	GetComments(ctx context.Context, titleID, reviewID string, req request.PaginatedRequest) (*response.PaginatedResponse[response.CommentResponse], error)
	GetComment(ctx context.Context, titleID, reviewID, commentID string) (*response.CommentResponse, error)
	CreateComment(ctx context.Context, actor Actor, titleID, reviewID string, req *request.CommentRequest) (*response.CommentResponse, error)
	UpdateComment(ctx context.Context, actor Actor, titleID, reviewID, commentID string, req *request.CommentRequest) (*response.CommentResponse, error)
	DeleteComment(ctx context.Context, actor Actor, titleID, reviewID, commentID string) error
}

type commentService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewCommentService(repo *repository.Repository, now func() time.Time, log *zap.Logger) CommentService {
	return &commentService{
		repo: repo,
		now:  now,
		log:  log.With(zap.String("service", "comment")),
	}
}

// parent resolves /titles/{title}/reviews/{review} to a review of that title.
func (s *commentService) parent(ctx context.Context, titleID, reviewID string) (*entity.Review, error) {
	tid, err := requireTitle(ctx, s.repo.Title, s.log, titleID)
	if err != nil {
		return nil, err
	}
	return requireReview(ctx, s.repo.Review, s.log, tid, reviewID)
}

func (s *commentService) find(ctx context.Context, titleID, reviewID, commentID string) (*entity.Comment, error) {
	review, err := s.parent(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}

	id, ok := parseID(commentID)
	if !ok {
		return nil, apperr.NotFound("Comment")
	}

	comment, err := s.repo.Comment.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to find comment", zap.Error(err), zap.String("comment_id", commentID))
		return nil, apperr.Internal(err)
	}
	if comment == nil || comment.ReviewID != review.ID {
		return nil, apperr.NotFound("Comment")
	}
	return comment, nil
}

func (s *commentService) GetComments(ctx context.Context, titleID, reviewID string, req request.PaginatedRequest) (*response.PaginatedResponse[response.CommentResponse], error) {
	review, err := s.parent(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}

	comments, err := s.repo.Comment.FindByReviewID(ctx, review.ID, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to get comments", zap.Error(err), zap.String("review_id", reviewID))
		return nil, apperr.Internal(err)
	}

	total, err := s.repo.Comment.CountByReviewID(ctx, review.ID)
	if err != nil {
		s.log.Error("Failed to count comments", zap.Error(err), zap.String("review_id", reviewID))
		return nil, apperr.Internal(err)
	}

	return response.MapPage(comments, response.CommentToResponse, req.Page, req.Limit(), total), nil
}

func (s *commentService) GetComment(ctx context.Context, titleID, reviewID, commentID string) (*response.CommentResponse, error) {
	comment, err := s.find(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}

	resp := response.CommentToResponse(comment)
	return &resp, nil
}

func (s *commentService) CreateComment(ctx context.Context, actor Actor, titleID, reviewID string, req *request.CommentRequest) (*response.CommentResponse, error) {
	req.Text = strings.TrimSpace(req.Text)
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.FromFields("Validation failed", errs)
	}
	if !policy.Decide(actor.Role, policy.Discussion, http.MethodPost, false) {
		return nil, apperr.Forbidden("You do not have permission to perform this action")
	}

	review, err := s.parent(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	comment := &entity.Comment{
		ID:             uuid.New(),
		ReviewID:       review.ID,
		AuthorID:       actor.ID,
		Text:           req.Text,
		PubDate:        now,
		UpdatedAt:      now,
		AuthorUsername: actor.Username,
	}

	if err := s.repo.Comment.Create(ctx, comment); err != nil {
		s.log.Error("Failed to create comment", zap.Error(err), zap.String("review_id", reviewID))
		return nil, apperr.Internal(err)
	}

	s.log.Info("Comment created",
		zap.String("comment_id", comment.ID.String()),
		zap.String("review_id", reviewID))

	resp := response.CommentToResponse(comment)
	return &resp, nil
}

func (s *commentService) UpdateComment(ctx context.Context, actor Actor, titleID, reviewID, commentID string, req *request.CommentRequest) (*response.CommentResponse, error) {
	req.Text = strings.TrimSpace(req.Text)
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.FromFields("Validation failed", errs)
	}

	comment, err := s.find(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, http.MethodPatch, comment.AuthorID); err != nil {
		return nil, err
	}

	comment.Text = req.Text
	comment.UpdatedAt = s.now()

	if err := s.repo.Comment.Update(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Comment")
		}
		s.log.Error("Failed to update comment", zap.Error(err), zap.String("comment_id", commentID))
		return nil, apperr.Internal(err)
	}

	resp := response.CommentToResponse(comment)
	return &resp, nil
}

func (s *commentService) DeleteComment(ctx context.Context, actor Actor, titleID, reviewID, commentID string) error {
	comment, err := s.find(ctx, titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	if err := authorize(actor, http.MethodDelete, comment.AuthorID); err != nil {
		return err
	}

	if err := s.repo.Comment.Delete(ctx, comment.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Comment")
		}
		s.log.Error("Failed to delete comment", zap.Error(err), zap.String("comment_id", commentID))
		return apperr.Internal(err)
	}

	s.log.Info("Comment deleted",
		zap.String("comment_id", commentID),
		zap.String("by", actor.ID.String()))
	return nil
}
