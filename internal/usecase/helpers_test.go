package usecase

import (
	"context"
	"regexp"
	"testing"
	"time"

	"media-review/internal/data/entity"
	"media-review/internal/data/repository"
	"media-review/pkg/apperr"
	"media-review/pkg/security"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef-test"

type testEnv struct {
	store  *memStore
	repo   *repository.Repository
	svc    *Service
	mail   *fakeMailer
	clock  *fakeClock
	tokens *security.TokenService
	deps   Deps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tokenKey, err := security.DeriveKey(testSecret, security.PurposeAccessToken)
	require.NoError(t, err)
	codeKey, err := security.DeriveKey(testSecret, security.PurposeConfirmationCode)
	require.NoError(t, err)

	clock := newFakeClock()
	tokens := security.NewTokenService(tokenKey, "media-review-test", time.Hour).WithClock(clock.Now)
	codes := security.NewConfirmationCodes(codeKey, 24*time.Hour).WithClock(clock.Now)

	store := newMemStore()
	repo := store.repository()
	mail := &fakeMailer{}

	deps := Deps{
		Tokens: tokens,
		Codes:  codes,
		Mailer: mail,
		Now:    clock.Now,
	}
	svc := NewService(repo, deps, zap.NewNop())

	return &testEnv{
		store:  store,
		repo:   repo,
		svc:    svc,
		mail:   mail,
		clock:  clock,
		tokens: tokens,
		deps:   deps,
	}
}

func (e *testEnv) addUser(t *testing.T, username string, role entity.UserRole) Actor {
	t.Helper()
	user := &entity.User{
		Base:     entity.Base{ID: uuid.New(), CreatedAt: e.clock.Now(), UpdatedAt: e.clock.Now()},
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
	}
	require.NoError(t, e.repo.User.Create(context.Background(), user))
	return Actor{ID: user.ID, Username: username, Role: role}
}

func (e *testEnv) addCategory(t *testing.T, name, slug string) *entity.Category {
	t.Helper()
	c := &entity.Category{BaseSimple: entity.BaseSimple{ID: uuid.New()}, Name: name, Slug: slug}
	require.NoError(t, e.repo.Category.Create(context.Background(), c))
	return c
}

func (e *testEnv) addGenre(t *testing.T, name, slug string) *entity.Genre {
	t.Helper()
	g := &entity.Genre{BaseSimple: entity.BaseSimple{ID: uuid.New()}, Name: name, Slug: slug}
	require.NoError(t, e.repo.Genre.Create(context.Background(), g))
	return g
}

func (e *testEnv) addTitle(t *testing.T, name string, category *entity.Category, genres ...*entity.Genre) *entity.Title {
	t.Helper()
	title := &entity.Title{
		Base: entity.Base{ID: uuid.New()},
		Name: name,
		Year: 2000,
	}
	if category != nil {
		title.CategoryID = &category.ID
	}
	ids := make([]uuid.UUID, 0, len(genres))
	for _, g := range genres {
		ids = append(ids, g.ID)
	}
	require.NoError(t, e.repo.Title.Create(context.Background(), title, ids))
	return title
}

var codePattern = regexp.MustCompile(`confirmation code is: (\S+)`)

// lastCode extracts the confirmation code from the most recent email.
func (e *testEnv) lastCode(t *testing.T) string {
	t.Helper()
	m := codePattern.FindStringSubmatch(e.mail.last().Body)
	require.Len(t, m, 2, "no confirmation code in email")
	return m[1]
}

// requireAppError asserts err is an *apperr.AppError with the given code and status.
func requireAppError(t *testing.T, err error, code string, status int) *apperr.AppError {
	t.Helper()
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae, "expected *apperr.AppError, got %T: %v", err, err)
	require.Equal(t, code, ae.Code)
	require.Equal(t, status, ae.HTTPStatus)
	return ae
}

func hasField(ae *apperr.AppError, field string) bool {
	for _, d := range ae.Details {
		if d.Field == field {
			return true
		}
	}
	return false
}
