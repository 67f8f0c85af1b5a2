package wire

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"media-review/internal/adaptor"
	"media-review/internal/data/entity"
	"media-review/internal/dto/request"
	"media-review/internal/dto/response"
	"media-review/internal/usecase"
	"media-review/pkg/security"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Stubs embed the service interface; only the methods the routes under test
// reach are implemented.
type stubCategories struct{ usecase.CategoryService }

func (stubCategories) GetCategories(context.Context, request.SearchQuery) (*response.PaginatedResponse[response.SlugResponse], error) {
	return response.NewPaginatedResponse([]response.SlugResponse{{Name: "Movie", Slug: "movie"}}, 1, 10, 1), nil
}

func (stubCategories) CreateCategory(_ context.Context, req *request.SlugRequest) (*response.SlugResponse, error) {
	return &response.SlugResponse{Name: req.Name, Slug: req.Slug}, nil
}

type stubReviews struct{ usecase.ReviewService }

func (stubReviews) CreateReview(_ context.Context, actor usecase.Actor, titleID string, req *request.ReviewRequest) (*response.ReviewResponse, error) {
	return &response.ReviewResponse{Title: titleID, Author: actor.Username, Score: req.Score}, nil
}

type stubAuth struct{ usecase.AuthService }

func (stubAuth) Signup(_ context.Context, req *request.SignupRequest) (*response.SignupResponse, error) {
	return &response.SignupResponse{Username: req.Username, Email: req.Email}, nil
}

func (stubAuth) CreateToken(context.Context, *request.TokenRequest) (*response.TokenResponse, error) {
	return &response.TokenResponse{Token: "fresh"}, nil
}

type stubUsers struct{ usecase.UserService }

func (stubUsers) GetMe(_ context.Context, actor usecase.Actor) (*response.UserResponse, error) {
	return &response.UserResponse{Username: actor.Username, Role: actor.Role}, nil
}

type userTable map[uuid.UUID]*entity.User

func (u userTable) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	return u[id], nil
}

type fakeDB struct{ err error }

func (f *fakeDB) Ping(context.Context) error { return f.err }

type router struct {
	handler http.Handler
	tokens  *security.TokenService
	users   userTable
	db      *fakeDB
}

func newRouter(t *testing.T) *router {
	t.Helper()
	key, err := security.DeriveKey("0123456789abcdef0123456789abcdef", security.PurposeAccessToken)
	require.NoError(t, err)
	tokens := security.NewTokenService(key, "test", time.Hour)
	users := userTable{}

	log := zap.NewNop()
	h := &adaptor.Handler{
		Auth:     adaptor.NewAuthHandler(stubAuth{}, log),
		User:     adaptor.NewUserHandler(stubUsers{}, log),
		Category: adaptor.NewCategoryHandler(stubCategories{}, log),
		Genre:    adaptor.NewGenreHandler(nil, log),
		Title:    adaptor.NewTitleHandler(nil, log),
		Review:   adaptor.NewReviewHandler(stubReviews{}, log),
		Comment:  adaptor.NewCommentHandler(nil, log),
	}

	db := &fakeDB{}
	return &router{handler: setupRouter(h, users, tokens, db, log), tokens: tokens, users: users, db: db}
}

func (rt *router) login(t *testing.T, username string, role entity.UserRole) string {
	t.Helper()
	user := &entity.User{Base: entity.Base{ID: uuid.New()}, Username: username, Role: role}
	rt.users[user.ID] = user
	token, _, err := rt.tokens.Issue(user.ID, username, string(role))
	require.NoError(t, err)
	return token
}

func (rt *router) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	rt.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	rt := newRouter(t)

	assert.Equal(t, http.StatusOK, rt.do(http.MethodGet, "/health", "", "").Code)

	rt.db.err = errors.New("connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, rt.do(http.MethodGet, "/health", "", "").Code)
}

func TestRouter_CatalogGate(t *testing.T) {
	rt := newRouter(t)
	user := rt.login(t, "bob", entity.RoleUser)
	admin := rt.login(t, "root", entity.RoleAdmin)
	body := `{"name":"Movie","slug":"movie"}`

	assert.Equal(t, http.StatusOK, rt.do(http.MethodGet, "/api/v1/categories", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, rt.do(http.MethodPost, "/api/v1/categories", "", body).Code)
	assert.Equal(t, http.StatusForbidden, rt.do(http.MethodPost, "/api/v1/categories", user, body).Code)
	assert.Equal(t, http.StatusCreated, rt.do(http.MethodPost, "/api/v1/categories", admin, body).Code)
	assert.Equal(t, http.StatusForbidden, rt.do(http.MethodDelete, "/api/v1/titles/"+uuid.NewString(), user, "").Code)
}

func TestRouter_ReviewsNestedUnderTitle(t *testing.T) {
	rt := newRouter(t)
	user := rt.login(t, "bob", entity.RoleUser)
	titleID := uuid.NewString()
	path := "/api/v1/titles/" + titleID + "/reviews"

	assert.Equal(t, http.StatusUnauthorized, rt.do(http.MethodPost, path, "", `{"text":"x","score":5}`).Code)

	rec := rt.do(http.MethodPost, path, user, `{"text":"x","score":5}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var envelope struct {
		Data response.ReviewResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, titleID, envelope.Data.Title)
	assert.Equal(t, "bob", envelope.Data.Author)
}

func TestRouter_UsersArea(t *testing.T) {
	rt := newRouter(t)
	user := rt.login(t, "bob", entity.RoleUser)
	mod := rt.login(t, "mia", entity.RoleModerator)

	assert.Equal(t, http.StatusUnauthorized, rt.do(http.MethodGet, "/api/v1/users/me", "", "").Code)
	assert.Equal(t, http.StatusForbidden, rt.do(http.MethodGet, "/api/v1/users", user, "").Code)
	assert.Equal(t, http.StatusForbidden, rt.do(http.MethodGet, "/api/v1/users/bob", mod, "").Code)
	assert.Equal(t, http.StatusForbidden, rt.do(http.MethodDelete, "/api/v1/users/me", user, "").Code)

	rec := rt.do(http.MethodGet, "/api/v1/users/me", mod, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"mia"`)
	assert.Contains(t, rec.Body.String(), `"role":"moderator"`)
}

func TestRouter_RoleChangeAppliesImmediately(t *testing.T) {
	rt := newRouter(t)
	token := rt.login(t, "bob", entity.RoleAdmin)
	body := `{"name":"Movie"}`

	assert.Equal(t, http.StatusCreated, rt.do(http.MethodPost, "/api/v1/categories", token, body).Code)

	for _, u := range rt.users {
		u.Role = entity.RoleUser
	}
	assert.Equal(t, http.StatusForbidden, rt.do(http.MethodPost, "/api/v1/categories", token, body).Code)

	for id := range rt.users {
		delete(rt.users, id)
	}
	assert.Equal(t, http.StatusUnauthorized, rt.do(http.MethodPost, "/api/v1/categories", token, body).Code)
}

func TestRouter_NotFound(t *testing.T) {
	rt := newRouter(t)

	rec := rt.do(http.MethodGet, "/api/v1/movies", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":false`)
}

func TestRouter_AuthRoutesIgnoreStaleToken(t *testing.T) {
	rt := newRouter(t)
	stale, _, err := rt.tokens.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).
		Issue(uuid.New(), "bob", "user")
	require.NoError(t, err)

	signup := rt.do(http.MethodPost, "/api/v1/auth/signup", stale, `{"username":"bob","email":"bob@x.com"}`)
	assert.Equal(t, http.StatusOK, signup.Code)

	token := rt.do(http.MethodPost, "/api/v1/auth/token", "garbage", `{"username":"bob","confirmation_code":"x"}`)
	assert.Equal(t, http.StatusOK, token.Code)

	// other routes still reject the stale token
	assert.Equal(t, http.StatusUnauthorized, rt.do(http.MethodGet, "/api/v1/categories", stale, "").Code)
}
