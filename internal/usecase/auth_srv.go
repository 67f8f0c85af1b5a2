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
	"media-review/pkg/mailer"
	"media-review/pkg/security"
	"media-review/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService interface {
	// Signup registers (or re-confirms) a user and emails a confirmation code.
	Signup(ctx context.Context, req *request.SignupRequest) (*response.SignupResponse, error)
	// CreateToken exchanges a confirmation code for an access token.
	CreateToken(ctx context.Context, req *request.TokenRequest) (*response.TokenResponse, error)
}

type authService struct {
	userRepo repository.UserRepository
	tokens   *security.TokenService
	codes    *security.ConfirmationCodes
	mailer   mailer.Mailer
	now      func() time.Time
	log      *zap.Logger
}

func NewAuthService(userRepo repository.UserRepository, deps Deps, log *zap.Logger) AuthService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &authService{
		userRepo: userRepo,
		tokens:   deps.Tokens,
		codes:    deps.Codes,
		mailer:   deps.Mailer,
		now:      now,
		log:      log.With(zap.String("service", "auth")),
	}
}

func codeState(user *entity.User) security.CodeState {
	return security.CodeState{
		UserID:    user.ID,
		Email:     user.Email,
		LastLogin: user.LastLogin,
	}
}

func (s *authService) Signup(ctx context.Context, req *request.SignupRequest) (*response.SignupResponse, error) {
	// 1. Validate input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Debug("Signup validation failed", zap.Any("errors", errs))
		return nil, apperr.FromFields("Validation failed", errs)
	}
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 2. Reuse the existing account when the pair already matches
	user, err := s.findPair(ctx, username, email)
	if err != nil {
		return nil, err
	}

	// 3. Otherwise create an unverified user
	if user == nil {
		now := s.now()
		user = &entity.User{
			Base: entity.Base{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			Username: username,
			Email:    email,
			Role:     entity.RoleUser,
		}

		if err := s.userRepo.Create(ctx, user); err != nil {
			if constraint, ok := repository.DuplicateConstraint(err); ok {
				// lost a race with a concurrent signup
				return nil, duplicateUserError(constraint)
			}
			s.log.Error("Failed to create user", zap.Error(err), zap.String("username", username))
			return nil, apperr.Internal(err)
		}

		s.log.Info("User signed up",
			zap.String("user_id", user.ID.String()),
			zap.String("username", user.Username))
	}

	// 4. Send the code; delivery failures reach the caller
	code := s.codes.Make(codeState(user))
	msg := mailer.Message{
		To:      user.Email,
		Subject: "Your confirmation code",
		Body: fmt.Sprintf("Hello %s,\n\nyour confirmation code is: %s\n\n"+
			"Exchange it for an access token at POST /api/v1/auth/token.\n", user.Username, code),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Error("Failed to deliver confirmation code",
			zap.Error(err),
			zap.String("user_id", user.ID.String()))
		return nil, apperr.DeliveryFailed(err)
	}

	return &response.SignupResponse{
		Username: user.Username,
		Email:    user.Email,
	}, nil
}

// findPair returns the user owning both username and email, nil when neither
// is taken, and a validation error when only one of them is.
func (s *authService) findPair(ctx context.Context, username, email string) (*entity.User, error) {
	byUsername, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		s.log.Error("Failed to check username", zap.Error(err), zap.String("username", username))
		return nil, apperr.Internal(err)
	}
	if byUsername != nil {
		if strings.EqualFold(byUsername.Email, email) {
			return byUsername, nil
		}
		return nil, apperr.ValidationError("Validation failed",
			apperr.FieldError{Field: "username", Message: "Username is already registered with another email"})
	}

	byEmail, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.log.Error("Failed to check email", zap.Error(err), zap.String("email", email))
		return nil, apperr.Internal(err)
	}
	if byEmail != nil {
		return nil, apperr.ValidationError("Validation failed",
			apperr.FieldError{Field: "email", Message: "Email is already registered with another username"})
	}

	return nil, nil
}

func duplicateUserError(constraint string) *apperr.AppError {
	switch constraint {
	case repository.ConstraintEmail:
		return apperr.ValidationError("Validation failed",
			apperr.FieldError{Field: "email", Message: "Email is already registered"})
	default:
		return apperr.ValidationError("Validation failed",
			apperr.FieldError{Field: "username", Message: "Username is already taken"})
	}
}

func (s *authService) CreateToken(ctx context.Context, req *request.TokenRequest) (*response.TokenResponse, error) {
	// 1. Validate input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.FromFields("Validation failed", errs)
	}

	// 2. Find user
	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		s.log.Error("Failed to find user", zap.Error(err), zap.String("username", req.Username))
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.NotFound("User")
	}

	// 3. Check the code against the current user state
	if !s.codes.Check(codeState(user), strings.TrimSpace(req.ConfirmationCode)) {
		s.log.Warn("Invalid confirmation code", zap.String("user_id", user.ID.String()))
		return nil, apperr.Unauthorized("Invalid confirmation code")
	}

	// 4. Stamp the login against the state the code was checked with.
	// A concurrent exchange of the same code stamps first and this one loses.
	if err := s.userRepo.MarkLogin(ctx, user.ID, user.LastLogin, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("Confirmation code already used", zap.String("user_id", user.ID.String()))
			return nil, apperr.Unauthorized("Invalid confirmation code")
		}
		s.log.Error("Failed to stamp login", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, apperr.Internal(err)
	}

	// 5. Issue the token
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Username, string(user.Role))
	if err != nil {
		s.log.Error("Failed to issue token", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, apperr.Internal(err)
	}

	s.log.Info("Access token issued",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username))

	return &response.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
