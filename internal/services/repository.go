package services

import (
	"context"
	"time"

	"github.com/calebmaitland/gatehouse/internal/models"
)

// AccountRepository is the persistence boundary for account records.
// Declared here, at the consumer, so the storage engine stays swappable
// and test doubles are trivial.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdateProfile(ctx context.Context, id, firstName, lastName string) (*models.Account, error)

	SetPassword(ctx context.Context, id, passwordHash string) error
	RecordLogin(ctx context.Context, id, refreshTokenHash, ip string) error
	SetRefreshTokenHash(ctx context.Context, id, hash string) error
	RotateRefreshTokenHash(ctx context.Context, id, oldHash, newHash string) (bool, error)
	ClearRefreshTokenHash(ctx context.Context, id string) error

	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	GetByResetToken(ctx context.Context, token string) (*models.Account, error)
	SetVerifyToken(ctx context.Context, id, token string, expiresAt time.Time) error
	GetByVerifyToken(ctx context.Context, token string) (*models.Account, error)
	MarkEmailVerified(ctx context.Context, id string) error

	SetTOTP(ctx context.Context, id string, secret, nonce []byte, enabled bool) error
	ClearExpiredTokens(ctx context.Context) (int64, error)
}

// TokenManager issues and verifies the signed token pair.
type TokenManager interface {
	GenerateAccessToken(accountID, email, role string) (string, error)
	GenerateRefreshToken(accountID, email, role string) (string, error)
	ValidateRefreshToken(tokenString string) (*models.TokenClaims, error)
}

// AccountResponse is the public projection of an account. The password
// hash and every server-side token never leave the service layer.
type AccountResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Role          string `json:"role"`
	Status        string `json:"status"`
	EmailVerified bool   `json:"email_verified"`
	TOTPEnabled   bool   `json:"totp_enabled"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// AuthResponse is the result of every token-issuing flow.
type AuthResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	Account      *AccountResponse `json:"account"`
}

func accountToResponse(a *models.Account) *AccountResponse {
	return &AccountResponse{
		ID:            a.ID,
		Email:         a.Email,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Role:          a.Role,
		Status:        a.Status,
		EmailVerified: a.EmailVerified,
		TOTPEnabled:   a.TOTPEnabled,
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     a.UpdatedAt.Format(time.RFC3339),
	}
}
