package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "type" claim. Access tokens authenticate API
// requests; refresh tokens are only redeemable at the refresh endpoint.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the claim set for both access and refresh tokens:
// subject account id, email, role, and the token type.
type TokenClaims struct {
	Type      string `json:"type"`
	AccountID string `json:"account_id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair is the result of every issuing flow.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
