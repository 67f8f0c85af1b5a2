package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"media-review/internal/data/entity"
	"media-review/internal/data/repository"
	"media-review/internal/dto/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSignup_ReservedUsername(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Auth.Signup(context.Background(), &request.SignupRequest{Username: "me", Email: "a@b.com"})

	ae := requireAppError(t, err, "VALIDATION_ERROR", http.StatusBadRequest)
	assert.True(t, hasField(ae, "username"))
	assert.Empty(t, env.store.users)
	assert.Empty(t, env.mail.sent)
}

func TestSignup_CreatesUnverifiedUserAndSendsCode(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Auth.Signup(context.Background(), &request.SignupRequest{Username: "bob", Email: "Bob@X.com"})
	require.NoError(t, err)

	assert.Equal(t, "bob", resp.Username)
	assert.Equal(t, "bob@x.com", resp.Email)

	user, _ := env.repo.User.FindByUsername(context.Background(), "bob")
	require.NotNil(t, user)
	assert.False(t, user.EmailVerified)
	assert.Equal(t, "user", string(user.Role))

	require.Len(t, env.mail.sent, 1)
	assert.Equal(t, "bob@x.com", env.mail.last().To)
	assert.NotEmpty(t, env.lastCode(t))
}

func TestSignup_IdempotentForSamePair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Auth.Signup(ctx, &request.SignupRequest{Username: "bob", Email: "bob@x.com"})
	require.NoError(t, err)
	_, err = env.svc.Auth.Signup(ctx, &request.SignupRequest{Username: "bob", Email: "BOB@x.com"})
	require.NoError(t, err)

	assert.Len(t, env.store.users, 1)
	assert.Len(t, env.mail.sent, 2)
}

func TestSignup_ConflictingPairs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Auth.Signup(ctx, &request.SignupRequest{Username: "bob", Email: "bob@x.com"})
	require.NoError(t, err)

	_, err = env.svc.Auth.Signup(ctx, &request.SignupRequest{Username: "bob", Email: "other@x.com"})
	ae := requireAppError(t, err, "VALIDATION_ERROR", http.StatusBadRequest)
	assert.True(t, hasField(ae, "username"))

	_, err = env.svc.Auth.Signup(ctx, &request.SignupRequest{Username: "alice", Email: "bob@x.com"})
	ae = requireAppError(t, err, "VALIDATION_ERROR", http.StatusBadRequest)
	assert.True(t, hasField(ae, "email"))

	assert.Len(t, env.store.users, 1)
}

func TestSignup_DeliveryFailurePropagates(t *testing.T) {
	env := newTestEnv(t)
	smtpErr := errors.New("connection refused")
	env.mail.err = smtpErr

	_, err := env.svc.Auth.Signup(context.Background(), &request.SignupRequest{Username: "bob", Email: "bob@x.com"})

	requireAppError(t, err, "DELIVERY_FAILED", http.StatusBadGateway)
	assert.ErrorIs(t, err, smtpErr)
}

func TestCreateToken_Flow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Auth.Signup(ctx, &request.SignupRequest{Username: "bob", Email: "bob@x.com"})
	require.NoError(t, err)
	code := env.lastCode(t)

	resp, err := env.svc.Auth.CreateToken(ctx, &request.TokenRequest{Username: "bob", ConfirmationCode: code})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	claims, err := env.tokens.Verify(resp.Token)
	require.NoError(t, err)
	user, _ := env.repo.User.FindByUsername(ctx, "bob")
	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.Equal(t, "bob", claims.Username)
	assert.Equal(t, "user", claims.Role)

	assert.True(t, user.EmailVerified)
	require.NotNil(t, user.LastLogin)

	// the login stamp changed the code state
	_, err = env.svc.Auth.CreateToken(ctx, &request.TokenRequest{Username: "bob", ConfirmationCode: code})
	requireAppError(t, err, "UNAUTHORIZED", http.StatusUnauthorized)
}

func TestCreateToken_WrongCodeChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Auth.Signup(ctx, &request.SignupRequest{Username: "bob", Email: "bob@x.com"})
	require.NoError(t, err)

	_, err = env.svc.Auth.CreateToken(ctx, &request.TokenRequest{Username: "bob", ConfirmationCode: "wrong-code"})
	requireAppError(t, err, "UNAUTHORIZED", http.StatusUnauthorized)

	user, _ := env.repo.User.FindByUsername(ctx, "bob")
	assert.False(t, user.EmailVerified)
	assert.Nil(t, user.LastLogin)

	// the real code is still usable
	_, err = env.svc.Auth.CreateToken(ctx, &request.TokenRequest{Username: "bob", ConfirmationCode: env.lastCode(t)})
	assert.NoError(t, err)
}

func TestCreateToken_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Auth.CreateToken(context.Background(), &request.TokenRequest{Username: "ghost", ConfirmationCode: "x-y"})

	requireAppError(t, err, "NOT_FOUND", http.StatusNotFound)
}

func TestCreateToken_ExpiredCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Auth.Signup(ctx, &request.SignupRequest{Username: "bob", Email: "bob@x.com"})
	require.NoError(t, err)
	code := env.lastCode(t)

	env.clock.Advance(25 * time.Hour)

	_, err = env.svc.Auth.CreateToken(ctx, &request.TokenRequest{Username: "bob", ConfirmationCode: code})
	requireAppError(t, err, "UNAUTHORIZED", http.StatusUnauthorized)
}

func TestCreateToken_CodeBoundToEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Auth.Signup(ctx, &request.SignupRequest{Username: "bob", Email: "bob@x.com"})
	require.NoError(t, err)
	code := env.lastCode(t)

	user, _ := env.repo.User.FindByUsername(ctx, "bob")
	newEmail := "robert@x.com"
	_, err = env.svc.User.UpdateMe(ctx, Actor{ID: user.ID, Role: user.Role}, &request.UpdateProfileRequest{Email: &newEmail})
	require.NoError(t, err)

	_, err = env.svc.Auth.CreateToken(ctx, &request.TokenRequest{Username: "bob", ConfirmationCode: code})
	requireAppError(t, err, "UNAUTHORIZED", http.StatusUnauthorized)
}

// concurrentLogin lets another exchange of the same code win between the
// read of the user and the login stamp.
type concurrentLogin struct {
	repository.UserRepository
	at time.Time
}

func (c *concurrentLogin) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	user, err := c.UserRepository.FindByUsername(ctx, username)
	if err != nil || user == nil {
		return user, err
	}
	if err := c.UserRepository.MarkLogin(ctx, user.ID, user.LastLogin, c.at); err != nil {
		return nil, err
	}
	return user, nil
}

func TestCreateToken_ConcurrentExchangeIssuesOneToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Auth.Signup(ctx, &request.SignupRequest{Username: "bob", Email: "bob@x.com"})
	require.NoError(t, err)
	code := env.lastCode(t)

	auth := NewAuthService(&concurrentLogin{UserRepository: env.repo.User, at: env.clock.Now()}, env.deps, zap.NewNop())

	resp, err := auth.CreateToken(ctx, &request.TokenRequest{Username: "bob", ConfirmationCode: code})

	requireAppError(t, err, "UNAUTHORIZED", http.StatusUnauthorized)
	assert.Nil(t, resp)
}
