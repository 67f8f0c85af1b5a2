package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const identityKey contextKey = "identity"

// identity is the authenticated caller stored on the request context.
type identity struct {
	userID   uuid.UUID
	username string
	role     string
}

func identityFrom(ctx context.Context) (identity, bool) {
	id, ok := ctx.Value(identityKey).(identity)
	return id, ok && id.userID != uuid.Nil
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := identityFrom(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return id.userID, true
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	id, ok := identityFrom(ctx)
	if !ok {
		return "", false
	}
	return id.role, true
}

// GetUsernameFromContext returns the username of the authenticated caller.
func GetUsernameFromContext(ctx context.Context) (string, bool) {
	id, ok := identityFrom(ctx)
	if !ok {
		return "", false
	}
	return id.username, true
}

func SetUserContext(ctx context.Context, userID uuid.UUID, username, role string) context.Context {
	return context.WithValue(ctx, identityKey, identity{userID: userID, username: username, role: role})
}
