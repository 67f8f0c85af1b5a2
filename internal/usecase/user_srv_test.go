package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"media-review/internal/data/entity"
	"media-review/internal/dto/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateMe_CannotChangeOwnRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.addUser(t, "bob", entity.RoleUser)

	var req request.UpdateProfileRequest
	require.NoError(t, json.Unmarshal([]byte(`{"role":"admin","bio":"film nerd"}`), &req))

	resp, err := env.svc.User.UpdateMe(ctx, bob, &req)
	require.NoError(t, err)

	assert.Equal(t, entity.RoleUser, resp.Role)
	assert.Equal(t, "film nerd", resp.Bio)

	stored, _ := env.repo.User.FindByID(ctx, bob.ID)
	assert.Equal(t, entity.RoleUser, stored.Role)
}

func TestGetMe(t *testing.T) {
	env := newTestEnv(t)
	mod := env.addUser(t, "mod", entity.RoleModerator)

	resp, err := env.svc.User.GetMe(context.Background(), mod)
	require.NoError(t, err)
	assert.Equal(t, "mod", resp.Username)
	assert.Equal(t, entity.RoleModerator, resp.Role)

	_, err = env.svc.User.GetMe(context.Background(), Actor{})
	requireAppError(t, err, "NOT_FOUND", http.StatusNotFound)
}

func TestUpdateMe_EmailTaken(t *testing.T) {
	env := newTestEnv(t)
	bob := env.addUser(t, "bob", entity.RoleUser)
	env.addUser(t, "alice", entity.RoleUser)

	taken := "alice@example.com"
	_, err := env.svc.User.UpdateMe(context.Background(), bob, &request.UpdateProfileRequest{Email: &taken})

	ae := requireAppError(t, err, "VALIDATION_ERROR", http.StatusBadRequest)
	assert.True(t, hasField(ae, "email"))
}

func TestAdminUpdateUser_ChangesRole(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "bob", entity.RoleUser)

	role := "moderator"
	resp, err := env.svc.User.UpdateUser(context.Background(), "bob", &request.AdminUpdateUserRequest{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleModerator, resp.Role)

	bad := "root"
	_, err = env.svc.User.UpdateUser(context.Background(), "bob", &request.AdminUpdateUserRequest{Role: &bad})
	requireAppError(t, err, "VALIDATION_ERROR", http.StatusBadRequest)
}

func TestAdminCreateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.svc.User.CreateUser(ctx, &request.AdminCreateUserRequest{Username: "carol", Email: "carol@x.com"})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleUser, resp.Role)

	_, err = env.svc.User.CreateUser(ctx, &request.AdminCreateUserRequest{Username: "Me", Email: "me@x.com"})
	ae := requireAppError(t, err, "VALIDATION_ERROR", http.StatusBadRequest)
	assert.True(t, hasField(ae, "username"))

	_, err = env.svc.User.CreateUser(ctx, &request.AdminCreateUserRequest{Username: "carol", Email: "c2@x.com"})
	ae = requireAppError(t, err, "VALIDATION_ERROR", http.StatusBadRequest)
	assert.True(t, hasField(ae, "username"))
}

func TestAdminListAndDeleteUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "zed", entity.RoleUser)
	env.addUser(t, "amy", entity.RoleUser)
	env.addUser(t, "bob", entity.RoleUser)

	list, err := env.svc.User.GetAllUsers(ctx, request.SearchQuery{PaginatedRequest: request.NewPaginatedRequest(1, 2)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Pagination.Total)
	assert.Equal(t, 2, list.Pagination.TotalPages)
	require.Len(t, list.Data, 2)
	assert.Equal(t, "amy", list.Data[0].Username)

	search, err := env.svc.User.GetAllUsers(ctx, request.SearchQuery{PaginatedRequest: request.NewPaginatedRequest(1, 10), Search: "ze"})
	require.NoError(t, err)
	require.Len(t, search.Data, 1)
	assert.Equal(t, "zed", search.Data[0].Username)

	require.NoError(t, env.svc.User.DeleteUser(ctx, "zed"))
	err = env.svc.User.DeleteUser(ctx, "zed")
	requireAppError(t, err, "NOT_FOUND", http.StatusNotFound)
}

func TestEnsureAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.User.EnsureAdmin(ctx, "root", "root@x.com"))
	user, _ := env.repo.User.FindByUsername(ctx, "root")
	require.NotNil(t, user)
	assert.Equal(t, entity.RoleAdmin, user.Role)

	// idempotent
	require.NoError(t, env.svc.User.EnsureAdmin(ctx, "root", "root@x.com"))
	assert.Len(t, env.store.users, 1)

	// promotes an existing account
	env.addUser(t, "bob", entity.RoleUser)
	require.NoError(t, env.svc.User.EnsureAdmin(ctx, "bob", "bob@example.com"))
	bob, _ := env.repo.User.FindByUsername(ctx, "bob")
	assert.Equal(t, entity.RoleAdmin, bob.Role)
}
