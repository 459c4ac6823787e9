package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csms/internal/infrastructure/auth"
	"csms/internal/pkg/reqctx"
)

func newTestJWT() *auth.JWTService {
	return auth.NewJWTService("test-secret", 30*time.Minute, 7*24*time.Hour, "csms-test")
}

func echoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(reqctx.UserID(r.Context())))
	})
}

func TestAuthMiddleware_Authenticate_RejectsMissingHeader(t *testing.T) {
	m := NewAuthMiddleware(newTestJWT())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	m.Authenticate(echoHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_Authenticate_RejectsMalformedHeader(t *testing.T) {
	m := NewAuthMiddleware(newTestJWT())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()

	m.Authenticate(echoHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_Authenticate_RejectsInvalidToken(t *testing.T) {
	m := NewAuthMiddleware(newTestJWT())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()

	m.Authenticate(echoHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_Authenticate_AcceptsValidToken(t *testing.T) {
	jwtSvc := newTestJWT()
	token, err := jwtSvc.GenerateAccessToken("user-42", "user@example.com", false)
	require.NoError(t, err)

	m := NewAuthMiddleware(jwtSvc)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	m.Authenticate(echoHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-42", rec.Body.String())
}

func TestAuthMiddleware_Authenticate_RejectsRefreshTokenAsAccessToken(t *testing.T) {
	jwtSvc := newTestJWT()
	refreshToken, err := jwtSvc.GenerateRefreshToken("user-42")
	require.NoError(t, err)

	m := NewAuthMiddleware(jwtSvc)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+refreshToken)
	rec := httptest.NewRecorder()

	m.Authenticate(echoHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "a refresh token must not authenticate an access-protected route")
}

func TestAuthMiddleware_RequireAdmin(t *testing.T) {
	m := NewAuthMiddleware(newTestJWT())

	adminReq := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(
		reqctx.WithUser(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "admin-1", "a@x.com", true))
	rec := httptest.NewRecorder()
	m.RequireAdmin(echoHandler()).ServeHTTP(rec, adminReq)
	assert.Equal(t, http.StatusOK, rec.Code)

	nonAdminReq := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(
		reqctx.WithUser(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "user-1", "u@x.com", false))
	rec2 := httptest.NewRecorder()
	m.RequireAdmin(echoHandler()).ServeHTTP(rec2, nonAdminReq)
	assert.Equal(t, http.StatusForbidden, rec2.Code)
}
