package middleware

import (
	"net/http"
	"strings"

	"csms/internal/infrastructure/auth"
	"csms/internal/pkg/errors"
	"csms/internal/pkg/reqctx"
)

// AuthMiddleware validates bearer access tokens and injects the authenticated
// principal into the request context. Per §6/§9, the token is accepted only
// from the Authorization header; there is no query-string fallback.
type AuthMiddleware struct {
	jwt *auth.JWTService
}

// NewAuthMiddleware constructs an AuthMiddleware backed by the given JWT service.
func NewAuthMiddleware(jwt *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Authenticate requires a valid access token and populates reqctx on success.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			respondError(w, r, err)
			return
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			respondError(w, r, errors.Unauthorized("invalid or expired token"))
			return
		}

		ctx := reqctx.WithUser(r.Context(), claims.Subject, claims.Email, claims.IsAdmin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects non-admin principals; must run after Authenticate.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !reqctx.IsAdmin(r.Context()) {
			respondError(w, r, errors.Forbidden("access", "admin-only endpoint"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.Unauthorized("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.Unauthorized("authorization header must be a bearer token")
	}
	return strings.TrimSpace(parts[1]), nil
}
