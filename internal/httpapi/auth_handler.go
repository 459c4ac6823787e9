package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"csms/internal/domain/user"
	"csms/internal/infrastructure/auth"
	"csms/internal/pkg/errors"
	"csms/internal/pkg/httputil"
	"csms/internal/pkg/reqctx"
)

// AuthHandler exposes registration, login, and refresh over the JWT issuer.
type AuthHandler struct {
	users     user.Repository
	jwt       *auth.JWTService
	passwords *auth.PasswordService
	logger    *zap.Logger
}

// NewAuthHandler constructs the auth endpoints handler.
func NewAuthHandler(users user.Repository, jwt *auth.JWTService, passwords *auth.PasswordService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt, passwords: passwords, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// Register creates a new account and returns a fresh token pair.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := auth.ValidateEmail(req.Email); err != nil {
		respondErr(w, r, errors.Validation("email", err.Error()))
		return
	}

	hash, err := h.passwords.HashPassword(req.Password)
	if err != nil {
		respondErr(w, r, errors.Validation("password", err.Error()))
		return
	}

	if _, found, err := h.users.GetByEmail(r.Context(), req.Email); err != nil {
		respondErr(w, r, err)
		return
	} else if found {
		respondErr(w, r, errors.AlreadyExists("user", "email", req.Email))
		return
	}

	created, err := h.users.Create(r.Context(), user.Entity{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Phone:        req.Phone,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	pair, err := h.jwt.GenerateTokenPair(created.ID, created.Email, created.IsAdmin)
	if err != nil {
		respondErr(w, r, errors.Internal("issue token pair", err))
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, pair)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates by email/password and returns a token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	u, found, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if !found || !h.passwords.CheckPasswordHash(req.Password, u.PasswordHash) {
		respondErr(w, r, errors.Unauthorized("invalid email or password"))
		return
	}

	pair, err := h.jwt.GenerateTokenPair(u.ID, u.Email, u.IsAdmin)
	if err != nil {
		respondErr(w, r, errors.Internal("issue token pair", err))
		return
	}
	httputil.RespondJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new access token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	claims, err := h.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		respondErr(w, r, errors.Unauthorized("invalid or expired refresh token"))
		return
	}

	u, found, err := h.users.GetByID(r.Context(), claims.Subject)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if !found {
		respondErr(w, r, errors.NotFoundWithID("user", claims.Subject))
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(u.ID, u.Email, u.IsAdmin)
	if err != nil {
		respondErr(w, r, errors.Internal("issue access token", err))
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": accessToken,
	})
}

// Me returns the authenticated principal's own profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, found, err := h.users.GetByID(r.Context(), reqctx.UserID(r.Context()))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if !found {
		respondErr(w, r, errors.NotFoundWithID("user", reqctx.UserID(r.Context())))
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"id":        u.ID,
		"email":     u.Email,
		"full_name": u.FullName,
		"phone":     u.Phone,
		"is_admin":  u.IsAdmin,
	})
}
