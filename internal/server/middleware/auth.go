package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/eduhub/internal/server/auth"
	"github.com/iudanet/eduhub/internal/server/handlers"
	"github.com/iudanet/eduhub/internal/server/jwt"
)

// Authenticator validates an access token
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*jwt.AccessClaims, error)
}

// AuthMiddleware requires a valid access token, taken from the accessToken
// cookie or an "Authorization: Bearer" header, and puts the caller's
// identity into the request context.
func AuthMiddleware(logger *slog.Logger, authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tokenString, err := accessToken(r)
			if err != nil {
				logger.WarnContext(ctx, "rejected request without usable token", slog.Any("error", err))
				handlers.SendError(logger, w, http.StatusUnauthorized, "unauthorized request")
				return
			}

			claims, err := authenticator.Authenticate(ctx, tokenString)
			if err != nil {
				logger.WarnContext(ctx, "invalid access token", slog.Any("error", err))
				message := "invalid access token"
				var authErr *auth.Error
				if errors.As(err, &authErr) {
					message = authErr.Message
				}
				handlers.SendError(logger, w, http.StatusUnauthorized, message)
				return
			}

			ctx = handlers.WithUser(ctx, claims.UserID, claims.Username)

			logger.DebugContext(ctx, "user authenticated", slog.String("user_id", claims.UserID))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var (
	errMissingToken       = errors.New("missing access token")
	errInvalidTokenFormat = errors.New("invalid authorization header format")
)

// accessToken prefers the cookie over the Authorization header.
func accessToken(r *http.Request) (string, error) {
	if c, err := r.Cookie(handlers.AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errMissingToken
	}

	// "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errInvalidTokenFormat
	}

	return strings.TrimSpace(parts[1]), nil
}
