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
	"media-review/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService interface {
	// Self profile
	GetMe(ctx context.Context, actor Actor) (*response.UserResponse, error)
	UpdateMe(ctx context.Context, actor Actor, req *request.UpdateProfileRequest) (*response.UserResponse, error)

	// Admin user management
	GetAllUsers(ctx context.Context, req request.SearchQuery) (*response.PaginatedResponse[response.UserResponse], error)
	CreateUser(ctx context.Context, req *request.AdminCreateUserRequest) (*response.UserResponse, error)
	GetUser(ctx context.Context, username string) (*response.UserResponse, error)
	UpdateUser(ctx context.Context, username string, req *request.AdminUpdateUserRequest) (*response.UserResponse, error)
	DeleteUser(ctx context.Context, username string) error

	// EnsureAdmin creates or promotes the bootstrap admin account.
	EnsureAdmin(ctx context.Context, username, email string) error
}

type userService struct {
	userRepo repository.UserRepository
	now      func() time.Time
	log      *zap.Logger
}

func NewUserService(userRepo repository.UserRepository, now func() time.Time, log *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		now:      now,
		log:      log.With(zap.String("service", "user")),
	}
}

func (us *userService) findByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := us.userRepo.FindByID(ctx, id)
	if err != nil {
		us.log.Error("Failed to find user", zap.Error(err), zap.String("user_id", id.String()))
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.NotFound("User")
	}
	return user, nil
}

func (us *userService) findByUsername(ctx context.Context, username string) (*entity.User, error) {
	user, err := us.userRepo.FindByUsername(ctx, username)
	if err != nil {
		us.log.Error("Failed to find user", zap.Error(err), zap.String("username", username))
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.NotFound("User")
	}
	return user, nil
}

func (us *userService) save(ctx context.Context, user *entity.User) error {
	user.UpdatedAt = us.now()

	if err := us.userRepo.Update(ctx, user); err != nil {
		if constraint, ok := repository.DuplicateConstraint(err); ok {
			return duplicateUserError(constraint)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("User")
		}
		us.log.Error("Failed to update user", zap.Error(err), zap.String("user_id", user.ID.String()))
		return apperr.Internal(err)
	}
	return nil
}

func (us *userService) GetMe(ctx context.Context, actor Actor) (*response.UserResponse, error) {
	user, err := us.findByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

// UpdateMe applies a self-edit. The request shape has no role, so the
// caller's role always stays what it was.
func (us *userService) UpdateMe(ctx context.Context, actor Actor, req *request.UpdateProfileRequest) (*response.UserResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.FromFields("Validation failed", errs)
	}

	user, err := us.findByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}

	if err := us.save(ctx, user); err != nil {
		return nil, err
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (us *userService) GetAllUsers(ctx context.Context, req request.SearchQuery) (*response.PaginatedResponse[response.UserResponse], error) {
	params := repository.ListParams{
		Limit:  req.Limit(),
		Offset: req.Offset(),
		Search: strings.TrimSpace(req.Search),
	}

	users, err := us.userRepo.FindAll(ctx, params)
	if err != nil {
		us.log.Error("Failed to get users", zap.Error(err))
		return nil, apperr.Internal(err)
	}

	total, err := us.userRepo.CountAll(ctx, params.Search)
	if err != nil {
		us.log.Error("Failed to count users", zap.Error(err))
		return nil, apperr.Internal(err)
	}

	return response.MapPage(users, response.UserToResponse, req.Page, req.Limit(), total), nil
}

func (us *userService) CreateUser(ctx context.Context, req *request.AdminCreateUserRequest) (*response.UserResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.FromFields("Validation failed", errs)
	}

	role := entity.RoleUser
	if req.Role != "" {
		role = entity.UserRole(req.Role)
	}

	now := us.now()
	user := &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Role:      role,
	}

	if err := us.userRepo.Create(ctx, user); err != nil {
		if constraint, ok := repository.DuplicateConstraint(err); ok {
			return nil, duplicateUserError(constraint)
		}
		us.log.Error("Failed to create user", zap.Error(err), zap.String("username", user.Username))
		return nil, apperr.Internal(err)
	}

	us.log.Info("User created by admin",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (us *userService) GetUser(ctx context.Context, username string) (*response.UserResponse, error) {
	user, err := us.findByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (us *userService) UpdateUser(ctx context.Context, username string, req *request.AdminUpdateUserRequest) (*response.UserResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.FromFields("Validation failed", errs)
	}

	user, err := us.findByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		user.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Role != nil {
		user.Role = entity.UserRole(*req.Role)
	}

	if err := us.save(ctx, user); err != nil {
		return nil, err
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (us *userService) DeleteUser(ctx context.Context, username string) error {
	user, err := us.findByUsername(ctx, username)
	if err != nil {
		return err
	}

	if err := us.userRepo.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("User")
		}
		us.log.Error("Failed to delete user", zap.Error(err), zap.String("user_id", user.ID.String()))
		return apperr.Internal(err)
	}

	us.log.Info("User deleted", zap.String("user_id", user.ID.String()), zap.String("username", username))
	return nil
}

func (us *userService) EnsureAdmin(ctx context.Context, username, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := us.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return err
	}

	if user == nil {
		_, err := us.CreateUser(ctx, &request.AdminCreateUserRequest{
			Username: username,
			Email:    email,
			Role:     string(entity.RoleAdmin),
		})
		if err != nil {
			return err
		}
		us.log.Info("Bootstrap admin created", zap.String("username", username))
		return nil
	}

	if user.Role.IsAdmin() {
		return nil
	}

	user.Role = entity.RoleAdmin
	if err := us.save(ctx, user); err != nil {
		return err
	}
	us.log.Info("Bootstrap admin promoted", zap.String("username", username))
	return nil
}
