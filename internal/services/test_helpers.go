package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/calebmaitland/gatehouse/internal/models"
	pkglogger "github.com/calebmaitland/gatehouse/pkg/logger"
)

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	GetByIDFunc                func(ctx context.Context, id string) (*models.Account, error)
	GetByEmailFunc             func(ctx context.Context, email string) (*models.Account, error)
	CreateFunc                 func(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdateProfileFunc          func(ctx context.Context, id, firstName, lastName string) (*models.Account, error)
	SetPasswordFunc            func(ctx context.Context, id, passwordHash string) error
	RecordLoginFunc            func(ctx context.Context, id, refreshTokenHash, ip string) error
	SetRefreshTokenHashFunc    func(ctx context.Context, id, hash string) error
	RotateRefreshTokenHashFunc func(ctx context.Context, id, oldHash, newHash string) (bool, error)
	ClearRefreshTokenHashFunc  func(ctx context.Context, id string) error
	SetResetTokenFunc          func(ctx context.Context, id, token string, expiresAt time.Time) error
	GetByResetTokenFunc        func(ctx context.Context, token string) (*models.Account, error)
	SetVerifyTokenFunc         func(ctx context.Context, id, token string, expiresAt time.Time) error
	GetByVerifyTokenFunc       func(ctx context.Context, token string) (*models.Account, error)
	MarkEmailVerifiedFunc      func(ctx context.Context, id string) error
	SetTOTPFunc                func(ctx context.Context, id string, secret, nonce []byte, enabled bool) error
	ClearExpiredTokensFunc     func(ctx context.Context) (int64, error)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	account.ID = "account_123"
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	return account, nil
}

func (m *MockAccountRepository) UpdateProfile(ctx context.Context, id, firstName, lastName string) (*models.Account, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, firstName, lastName)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) SetPassword(ctx context.Context, id, passwordHash string) error {
	if m.SetPasswordFunc != nil {
		return m.SetPasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockAccountRepository) RecordLogin(ctx context.Context, id, refreshTokenHash, ip string) error {
	if m.RecordLoginFunc != nil {
		return m.RecordLoginFunc(ctx, id, refreshTokenHash, ip)
	}
	return nil
}

func (m *MockAccountRepository) SetRefreshTokenHash(ctx context.Context, id, hash string) error {
	if m.SetRefreshTokenHashFunc != nil {
		return m.SetRefreshTokenHashFunc(ctx, id, hash)
	}
	return nil
}

func (m *MockAccountRepository) RotateRefreshTokenHash(ctx context.Context, id, oldHash, newHash string) (bool, error) {
	if m.RotateRefreshTokenHashFunc != nil {
		return m.RotateRefreshTokenHashFunc(ctx, id, oldHash, newHash)
	}
	return true, nil
}

func (m *MockAccountRepository) ClearRefreshTokenHash(ctx context.Context, id string) error {
	if m.ClearRefreshTokenHashFunc != nil {
		return m.ClearRefreshTokenHashFunc(ctx, id)
	}
	return nil
}

func (m *MockAccountRepository) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	if m.SetResetTokenFunc != nil {
		return m.SetResetTokenFunc(ctx, id, token, expiresAt)
	}
	return nil
}

func (m *MockAccountRepository) GetByResetToken(ctx context.Context, token string) (*models.Account, error) {
	if m.GetByResetTokenFunc != nil {
		return m.GetByResetTokenFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) SetVerifyToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	if m.SetVerifyTokenFunc != nil {
		return m.SetVerifyTokenFunc(ctx, id, token, expiresAt)
	}
	return nil
}

func (m *MockAccountRepository) GetByVerifyToken(ctx context.Context, token string) (*models.Account, error) {
	if m.GetByVerifyTokenFunc != nil {
		return m.GetByVerifyTokenFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) MarkEmailVerified(ctx context.Context, id string) error {
	if m.MarkEmailVerifiedFunc != nil {
		return m.MarkEmailVerifiedFunc(ctx, id)
	}
	return nil
}

func (m *MockAccountRepository) SetTOTP(ctx context.Context, id string, secret, nonce []byte, enabled bool) error {
	if m.SetTOTPFunc != nil {
		return m.SetTOTPFunc(ctx, id, secret, nonce, enabled)
	}
	return nil
}

func (m *MockAccountRepository) ClearExpiredTokens(ctx context.Context) (int64, error) {
	if m.ClearExpiredTokensFunc != nil {
		return m.ClearExpiredTokensFunc(ctx)
	}
	return 0, nil
}

// MockTokenManager implements TokenManager for testing
type MockTokenManager struct {
	GenerateAccessTokenFunc  func(accountID, email, role string) (string, error)
	GenerateRefreshTokenFunc func(accountID, email, role string) (string, error)
	ValidateRefreshTokenFunc func(tokenString string) (*models.TokenClaims, error)
}

func (m *MockTokenManager) GenerateAccessToken(accountID, email, role string) (string, error) {
	if m.GenerateAccessTokenFunc != nil {
		return m.GenerateAccessTokenFunc(accountID, email, role)
	}
	return "access-token", nil
}

func (m *MockTokenManager) GenerateRefreshToken(accountID, email, role string) (string, error) {
	if m.GenerateRefreshTokenFunc != nil {
		return m.GenerateRefreshTokenFunc(accountID, email, role)
	}
	return "refresh-token", nil
}

func (m *MockTokenManager) ValidateRefreshToken(tokenString string) (*models.TokenClaims, error) {
	if m.ValidateRefreshTokenFunc != nil {
		return m.ValidateRefreshTokenFunc(tokenString)
	}
	return nil, models.ErrUnauthorized
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendVerificationEmailFunc  func(ctx context.Context, email, token string, expiresAt time.Time) error
	SendPasswordResetEmailFunc func(ctx context.Context, email, token string, expiresAt time.Time) error
}

func (m *MockEmailService) SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendVerificationEmailFunc != nil {
		return m.SendVerificationEmailFunc(ctx, email, token, expiresAt)
	}
	return nil
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, email, token, expiresAt)
	}
	return nil
}

// MockTOTPValidator implements TOTPValidator for testing
type MockTOTPValidator struct {
	ValidateCodeFunc func(encryptedSecret, nonce []byte, code string) (bool, error)
}

func (m *MockTOTPValidator) ValidateCode(encryptedSecret, nonce []byte, code string) (bool, error) {
	if m.ValidateCodeFunc != nil {
		return m.ValidateCodeFunc(encryptedSecret, nonce, code)
	}
	return false, nil
}

// testLogger returns a logger that discards everything
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(testLogger())
}

// testAccount returns an active, verified account suitable for most tests
func testAccount() *models.Account {
	now := time.Now()
	return &models.Account{
		ID:            "account_123",
		Email:         "alice@example.com",
		PasswordHash:  "$2a$12$not-a-real-hash",
		FirstName:     "Alice",
		LastName:      "Doe",
		Role:          models.RoleCustomer,
		Status:        models.StatusActive,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
