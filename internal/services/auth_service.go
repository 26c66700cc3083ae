package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/calebmaitland/gatehouse/internal/auth"
	"github.com/calebmaitland/gatehouse/internal/models"
	pkgauth "github.com/calebmaitland/gatehouse/pkg/auth"
	pkglogger "github.com/calebmaitland/gatehouse/pkg/logger"
)

// TOTPValidator checks a two-factor code against an account's stored secret.
type TOTPValidator interface {
	ValidateCode(encryptedSecret, nonce []byte, code string) (bool, error)
}

// AuthService implements registration, login, refresh rotation, logout,
// and session introspection.
type AuthService struct {
	repo              AccountRepository
	tm                TokenManager
	hasher            *pkgauth.PasswordHasher
	totp              TOTPValidator
	email             EmailService
	logger            *slog.Logger
	auditLogger       *pkglogger.AuditLogger
	verifyTokenExpiry time.Duration

	// Digest compared against on the unknown-email path so that a missing
	// account costs the same bcrypt work as a wrong password.
	dummyHash string
}

// NewAuthService creates a new AuthService
func NewAuthService(
	repo AccountRepository,
	tm TokenManager,
	hasher *pkgauth.PasswordHasher,
	totp TOTPValidator,
	email EmailService,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	verifyTokenExpiry time.Duration,
) *AuthService {
	dummyHash, err := hasher.Hash(context.Background(), "gatehouse.invalid")
	if err != nil {
		logger.Error("failed to precompute dummy password hash", slog.Any("error", err))
	}

	return &AuthService{
		repo:              repo,
		tm:                tm,
		hasher:            hasher,
		totp:              totp,
		email:             email,
		logger:            logger,
		auditLogger:       auditLogger,
		verifyTokenExpiry: verifyTokenExpiry,
		dummyHash:         dummyHash,
	}
}

// RegisterInput carries the registration request fields.
type RegisterInput struct {
	Email         string
	Password      string
	FirstName     string
	LastName      string
	AcceptedTerms bool
}

// Register creates a new account, issues its first token pair, and
// enqueues a verification email.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	if !in.AcceptedTerms {
		return nil, models.ErrTermsNotAccepted
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, models.ErrValidation
	}

	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	// Case-insensitive existence check
	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: account already exists")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if account exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	passwordHash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	verifyToken, err := pkgauth.GenerateToken()
	if err != nil {
		s.logger.Error("failed to generate verification token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	verifyExpiry := time.Now().Add(s.verifyTokenExpiry)

	account := &models.Account{
		Email:             email,
		PasswordHash:      passwordHash,
		FirstName:         strings.TrimSpace(in.FirstName),
		LastName:          strings.TrimSpace(in.LastName),
		Role:              models.RoleCustomer,
		Status:            models.StatusActive,
		EmailVerified:     false,
		VerifyToken:       &verifyToken,
		VerifyTokenExpiry: &verifyExpiry,
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	pair, err := s.issuePair(created)
	if err != nil {
		s.logger.Error("failed to issue token pair", slog.String("account_id", created.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.repo.SetRefreshTokenHash(ctx, created.ID, pkgauth.HashToken(pair.RefreshToken)); err != nil {
		s.logger.Error("failed to persist refresh token hash", slog.String("account_id", created.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Fire-and-forget; a dispatch failure must never fail registration.
	s.dispatchVerificationEmail(created.Email, verifyToken, verifyExpiry)

	s.logger.Info("account registered", slog.String("account_id", created.ID))
	s.auditLogger.LogAccountAction("account_registered", created.ID, "", nil)

	return &AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Account:      accountToResponse(created),
	}, nil
}

// LoginInput carries the login request fields. RememberMe only affects how
// the caller stores the refresh token client-side; the server-side expiry
// is fixed.
type LoginInput struct {
	Email      string
	Password   string
	TOTPCode   string
	IP         string
	RememberMe bool
}

// Login authenticates credentials and replaces any prior session.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, models.ErrUnauthorized
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Burn a compare so the response is indistinguishable from a
			// wrong password in timing as well as in payload
			_ = s.hasher.Compare(ctx, s.dummyHash, in.Password)
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				IPAddress:     in.IP,
				FailureReason: "invalid_credentials",
			})
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get account by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := accountStateError(account); err != nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			AccountID:     account.ID,
			IPAddress:     in.IP,
			FailureReason: "account_" + account.Status,
		})
		return nil, err
	}

	if err := s.hasher.Compare(ctx, account.PasswordHash, in.Password); err != nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			AccountID:     account.ID,
			IPAddress:     in.IP,
			FailureReason: "invalid_credentials",
		})
		return nil, models.ErrUnauthorized
	}

	if account.TOTPEnabled {
		valid, err := s.totp.ValidateCode(account.TOTPSecret, account.TOTPNonce, in.TOTPCode)
		if err != nil {
			s.logger.Error("totp validation error", slog.String("account_id", account.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		if !valid {
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				AccountID:     account.ID,
				IPAddress:     in.IP,
				FailureReason: "invalid_totp_code",
			})
			return nil, models.ErrInvalidTOTPCode
		}
	}

	if in.RememberMe {
		// Extension point only: the flag does not alter the server-side
		// refresh TTL.
		s.logger.Debug("remember-me flag set", slog.String("account_id", account.ID))
	}

	pair, err := s.issuePair(account)
	if err != nil {
		s.logger.Error("failed to issue token pair", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Overwrites any prior session hash; this is where the single-session
	// invariant is enforced.
	if err := s.repo.RecordLogin(ctx, account.ID, pkgauth.HashToken(pair.RefreshToken), in.IP); err != nil {
		s.logger.Error("failed to record login", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now()
	account.LastLoginAt = &now
	if in.IP != "" {
		account.LastLoginIP = &in.IP
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		AccountID: account.ID,
		IPAddress: in.IP,
		Success:   true,
	})

	return &AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Account:      accountToResponse(account),
	}, nil
}

// Refresh rotates a refresh token. Presenting a superseded token is
// treated as evidence of theft and revokes the whole session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, models.ErrRefreshTokenInvalid
	}

	claims, err := s.tm.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrRefreshTokenInvalid
	}

	account, err := s.repo.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrRefreshTokenInvalid
		}
		s.logger.Error("failed to get account for refresh", slog.String("account_id", claims.AccountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// A structurally valid token whose hash is not the stored one is
	// either forged or a previously rotated token being replayed. Both
	// revoke the live session, forcing re-authentication.
	if !account.HasActiveSession() || !pkgauth.TokenHashEquals(*account.RefreshTokenHash, refreshToken) {
		if err := s.repo.ClearRefreshTokenHash(ctx, account.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to revoke session on reuse", slog.String("account_id", account.ID), slog.Any("error", err))
		}
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "refresh_reuse_detected",
			AccountID:     account.ID,
			FailureReason: "superseded_token_replayed",
		})
		return nil, models.ErrRefreshTokenReused
	}

	if account.Status != models.StatusActive {
		return nil, models.ErrRefreshAccountFrozen
	}

	pair, err := s.issuePair(account)
	if err != nil {
		s.logger.Error("failed to issue token pair", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Single conditional update against the hash we just validated. Losing
	// the race to a concurrent legitimate rotation is not reuse: reject
	// without revoking, so the winner's token stays valid.
	rotated, err := s.repo.RotateRefreshTokenHash(ctx, account.ID,
		pkgauth.HashToken(refreshToken), pkgauth.HashToken(pair.RefreshToken))
	if err != nil {
		s.logger.Error("failed to rotate refresh token", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !rotated {
		s.logger.Info("refresh rotation lost race", slog.String("account_id", account.ID))
		return nil, models.ErrRefreshTokenStale
	}

	s.logger.Info("refresh token rotated", slog.String("account_id", account.ID))

	return &AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Account:      accountToResponse(account),
	}, nil
}

// Logout clears the active session.
func (s *AuthService) Logout(ctx context.Context, accountID string) error {
	if err := s.repo.ClearRefreshTokenHash(ctx, accountID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to clear session", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("logout", accountID, "", nil)
	return nil
}

// LogoutAll is identical to Logout under the single-session model.
func (s *AuthService) LogoutAll(ctx context.Context, accountID string) error {
	return s.Logout(ctx, accountID)
}

// GetSessions returns at most one session descriptor.
func (s *AuthService) GetSessions(ctx context.Context, accountID string) ([]models.Session, error) {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.String("account_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !account.HasActiveSession() {
		return []models.Session{}, nil
	}

	return []models.Session{{
		Active:      true,
		LastLoginAt: account.LastLoginAt,
		LastLoginIP: account.LastLoginIP,
	}}, nil
}

func (s *AuthService) issuePair(account *models.Account) (*models.TokenPair, error) {
	accessToken, err := s.tm.GenerateAccessToken(account.ID, account.Email, account.Role)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tm.GenerateRefreshToken(account.ID, account.Email, account.Role)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *AuthService) dispatchVerificationEmail(email, token string, expiresAt time.Time) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.email.SendVerificationEmail(ctx, email, token, expiresAt); err != nil {
			s.logger.Error("failed to send verification email",
				slog.String("email", pkglogger.SanitizedEmail(email)),
				slog.Any("error", err))
		}
	}()
}

// accountStateError maps a non-active status to its login error. The
// disabled branch may reveal account existence; accepted tradeoff.
func accountStateError(account *models.Account) error {
	switch account.Status {
	case models.StatusActive:
		return nil
	case models.StatusSuspended:
		return models.ErrAccountSuspended
	default:
		return models.ErrAccountDisabled
	}
}

// guard against accidental interface drift
var _ TokenManager = (*auth.TokenManager)(nil)
