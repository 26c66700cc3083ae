package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/calebmaitland/gatehouse/internal/auth"
	"github.com/calebmaitland/gatehouse/internal/models"
	"github.com/calebmaitland/gatehouse/internal/services"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc    func(ctx context.Context, in services.RegisterInput) (*services.AuthResponse, error)
	LoginFunc       func(ctx context.Context, in services.LoginInput) (*services.AuthResponse, error)
	RefreshFunc     func(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	LogoutFunc      func(ctx context.Context, accountID string) error
	LogoutAllFunc   func(ctx context.Context, accountID string) error
	GetSessionsFunc func(ctx context.Context, accountID string) ([]models.Session, error)
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput) (*services.AuthResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, in)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) Login(ctx context.Context, in services.LoginInput) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, in)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return nil, models.ErrRefreshTokenInvalid
}

func (m *MockAuthService) Logout(ctx context.Context, accountID string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, accountID)
	}
	return nil
}

func (m *MockAuthService) LogoutAll(ctx context.Context, accountID string) error {
	if m.LogoutAllFunc != nil {
		return m.LogoutAllFunc(ctx, accountID)
	}
	return nil
}

func (m *MockAuthService) GetSessions(ctx context.Context, accountID string) ([]models.Session, error) {
	if m.GetSessionsFunc != nil {
		return m.GetSessionsFunc(ctx, accountID)
	}
	return []models.Session{}, nil
}

// MockPasswordService implements PasswordServiceInterface for testing
type MockPasswordService struct {
	RequestResetFunc func(ctx context.Context, email string)
	ResetFunc        func(ctx context.Context, token, newPassword string) error
	ChangeFunc       func(ctx context.Context, accountID, currentPassword, newPassword string) error
}

func (m *MockPasswordService) RequestReset(ctx context.Context, email string) {
	if m.RequestResetFunc != nil {
		m.RequestResetFunc(ctx, email)
	}
}

func (m *MockPasswordService) Reset(ctx context.Context, token, newPassword string) error {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, token, newPassword)
	}
	return nil
}

func (m *MockPasswordService) Change(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if m.ChangeFunc != nil {
		return m.ChangeFunc(ctx, accountID, currentPassword, newPassword)
	}
	return nil
}

// MockVerificationService implements VerificationServiceInterface for testing
type MockVerificationService struct {
	RequestFunc func(ctx context.Context, email string)
	VerifyFunc  func(ctx context.Context, token string) (string, error)
}

func (m *MockVerificationService) Request(ctx context.Context, email string) {
	if m.RequestFunc != nil {
		m.RequestFunc(ctx, email)
	}
}

func (m *MockVerificationService) Verify(ctx context.Context, token string) (string, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, token)
	}
	return "", models.ErrTokenExpired
}

// MockAccountService implements AccountServiceInterface for testing
type MockAccountService struct {
	GetProfileFunc    func(ctx context.Context, id string) (*services.AccountResponse, error)
	UpdateProfileFunc func(ctx context.Context, id string, update services.ProfileUpdate) (*services.AccountResponse, error)
}

func (m *MockAccountService) GetProfile(ctx context.Context, id string) (*services.AccountResponse, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountService) UpdateProfile(ctx context.Context, id string, update services.ProfileUpdate) (*services.AccountResponse, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, update)
	}
	return nil, models.ErrNotFound
}

// MockMFAService implements MFAServiceInterface for testing
type MockMFAService struct {
	SetupFunc    func(ctx context.Context, accountID string) (*services.MFASetupResponse, error)
	ActivateFunc func(ctx context.Context, accountID, code string) error
	DisableFunc  func(ctx context.Context, accountID, password string) error
}

func (m *MockMFAService) Setup(ctx context.Context, accountID string) (*services.MFASetupResponse, error) {
	if m.SetupFunc != nil {
		return m.SetupFunc(ctx, accountID)
	}
	return nil, models.ErrInternalServer
}

func (m *MockMFAService) Activate(ctx context.Context, accountID, code string) error {
	if m.ActivateFunc != nil {
		return m.ActivateFunc(ctx, accountID, code)
	}
	return nil
}

func (m *MockMFAService) Disable(ctx context.Context, accountID, password string) error {
	if m.DisableFunc != nil {
		return m.DisableFunc(ctx, accountID, password)
	}
	return nil
}

// testAuthResponse builds a minimal successful auth payload
func testAuthResponse() *services.AuthResponse {
	return &services.AuthResponse{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		Account: &services.AccountResponse{
			ID:     "account_123",
			Email:  "alice@example.com",
			Role:   models.RoleCustomer,
			Status: models.StatusActive,
		},
	}
}

// withClaims injects token claims the way the auth middleware does
func withClaims(r *http.Request, accountID string) *http.Request {
	claims := &models.TokenClaims{
		Type:      models.TokenTypeAccess,
		AccountID: accountID,
		Email:     "alice@example.com",
		Role:      models.RoleCustomer,
	}
	ctx := context.WithValue(r.Context(), auth.ClaimsContextKey, claims)
	return r.WithContext(ctx)
}

func doRequest(handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}
