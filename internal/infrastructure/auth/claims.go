package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// tokenType distinguishes access from refresh tokens so one cannot be used
// in place of the other even though both are signed with the same secret.
type tokenType string

const (
	tokenTypeAccess  tokenType = "access"
	tokenTypeRefresh tokenType = "refresh"
)

// Claims is the access token payload: {sub, email, is_admin, type, iat, exp}.
type Claims struct {
	Email   string    `json:"email"`
	IsAdmin bool      `json:"is_admin"`
	Type    tokenType `json:"type"`
	jwt.RegisteredClaims
}

// RefreshClaims is the refresh token payload: {sub, type, iat, exp}.
type RefreshClaims struct {
	Type tokenType `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is returned from the register and login flows; refresh returns
// only a new access token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // Access token expiry in seconds
}
