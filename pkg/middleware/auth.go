package middleware

import (
	"context"
	"net/http"
	"strings"

	"media-review/internal/data/entity"
	"media-review/internal/policy"
	"media-review/pkg/security"
	"media-review/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserLoader is the part of the user repository the auth middleware needs.
type UserLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

// Authenticate resolves an optional bearer token into the caller's identity.
// Requests without an Authorization header pass through as anonymous; a
// malformed, expired or orphaned token is rejected with 401.
func Authenticate(tokens *security.TokenService, users UserLoader, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Extract token
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			// 2. Verify signature and expiry
			claims, err := tokens.Verify(strings.TrimSpace(token))
			if err != nil {
				logger.Warn("Rejected access token", zap.Error(err), zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			// 3. Reload the user so role changes and deletions apply immediately
			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				logger.Error("Failed to load token user",
					zap.Error(err),
					zap.String("user_id", userID.String()))
				utils.ResponseInternalError(w, "Internal server error")
				return
			}
			if user == nil {
				logger.Warn("Token for deleted user", zap.String("user_id", userID.String()))
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := utils.SetUserContext(r.Context(), user.ID, user.Username, string(user.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			utils.ResponseUnauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Authorize applies the role gate of resource to the request method.
// Ownership of discussion objects is checked later by the services.
func Authorize(resource policy.Resource, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := policy.Anonymous
			if raw, ok := utils.GetRoleFromContext(r.Context()); ok {
				role = entity.UserRole(raw)
			}

			if policy.Gate(role, resource, r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			if role == policy.Anonymous {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			logger.Warn("Access denied",
				zap.String("role", string(role)),
				zap.String("resource", string(resource)),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path))
			utils.ResponseForbidden(w, "You do not have permission to perform this action")
		})
	}
}
