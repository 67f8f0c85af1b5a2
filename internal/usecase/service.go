package usecase

import (
	"context"
	"time"

	"media-review/internal/data/entity"
	"media-review/internal/data/repository"
	"media-review/pkg/mailer"
	"media-review/pkg/security"
	"media-review/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	Auth     AuthService
	User     UserService
	Category CategoryService
	Genre    GenreService
	Title    TitleService
	Review   ReviewService
	Comment  CommentService
}

// Deps are the collaborators shared by the services.
type Deps struct {
	Tokens *security.TokenService
	Codes  *security.ConfirmationCodes
	Mailer mailer.Mailer
	Now    func() time.Time
}

func NewService(repo *repository.Repository, deps Deps, log *zap.Logger) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Service{
		Auth:     NewAuthService(repo.User, deps, log),
		User:     NewUserService(repo.User, deps.Now, log),
		Category: NewCategoryService(repo.Category, deps.Now, log),
		Genre:    NewGenreService(repo.Genre, deps.Now, log),
		Title:    NewTitleService(repo, deps.Now, log),
		Review:   NewReviewService(repo, deps.Now, log),
		Comment:  NewCommentService(repo, deps.Now, log),
	}
}

// NewSecurity derives the token and confirmation-code services from the app secret.
func NewSecurity(config *utils.Config) (*security.TokenService, *security.ConfirmationCodes, error) {
	tokenKey, err := security.DeriveKey(config.App.SecretKey, security.PurposeAccessToken)
	if err != nil {
		return nil, nil, err
	}
	codeKey, err := security.DeriveKey(config.App.SecretKey, security.PurposeConfirmationCode)
	if err != nil {
		return nil, nil, err
	}

	tokens := security.NewTokenService(tokenKey, config.JWT.Issuer, time.Duration(config.JWT.ExpiryHours)*time.Hour)
	codes := security.NewConfirmationCodes(codeKey, time.Duration(config.Confirmation.ExpiryHours)*time.Hour)
	return tokens, codes, nil
}

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	ID       uuid.UUID
	Username string
	Role     entity.UserRole
}

// ActorFromContext reads the caller placed in ctx by the auth middleware.
// ok is false for anonymous requests.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	id, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return Actor{}, false
	}
	role, _ := utils.GetRoleFromContext(ctx)
	username, _ := utils.GetUsernameFromContext(ctx)

	return Actor{ID: id, Username: username, Role: entity.UserRole(role)}, true
}

// parseID turns a path parameter into a UUID. Malformed ids can never match a row.
func parseID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
