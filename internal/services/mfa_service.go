package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/calebmaitland/gatehouse/internal/auth"
	"github.com/calebmaitland/gatehouse/internal/models"
	pkgauth "github.com/calebmaitland/gatehouse/pkg/auth"
	pkglogger "github.com/calebmaitland/gatehouse/pkg/logger"
)

// MFAService manages optional TOTP two-factor enrollment. Enrollment is
// two-step: Setup stores a pending secret, Activate turns enforcement on
// only after the client proves it can produce a valid code.
type MFAService struct {
	repo        AccountRepository
	totp        *auth.TOTPManager
	hasher      *pkgauth.PasswordHasher
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewMFAService creates a new MFAService
func NewMFAService(
	repo AccountRepository,
	totp *auth.TOTPManager,
	hasher *pkgauth.PasswordHasher,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *MFAService {
	return &MFAService{
		repo:        repo,
		totp:        totp,
		hasher:      hasher,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// MFASetupResponse carries the enrollment material for the client.
type MFASetupResponse struct {
	Secret string `json:"secret"`
	QRCode string `json:"qr_code"` // PNG data URL
}

// Setup generates a pending TOTP secret. Re-running setup replaces any
// earlier pending secret; it cannot run while MFA is already active.
func (s *MFAService) Setup(ctx context.Context, accountID string) (*MFASetupResponse, error) {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.String("account_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if account.TOTPEnabled {
		return nil, models.ErrConflict
	}

	enrollment, err := s.totp.GenerateEnrollment(account.Email)
	if err != nil {
		s.logger.Error("failed to generate TOTP enrollment", slog.String("account_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.repo.SetTOTP(ctx, accountID, enrollment.Encrypted, enrollment.Nonce, false); err != nil {
		s.logger.Error("failed to store pending TOTP secret", slog.String("account_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &MFASetupResponse{
		Secret: enrollment.Secret,
		QRCode: enrollment.QRDataURL,
	}, nil
}

// Activate enables enforcement after the client presents a valid code for
// the pending secret.
func (s *MFAService) Activate(ctx context.Context, accountID, code string) error {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if account.TOTPEnabled {
		return models.ErrConflict
	}
	if len(account.TOTPSecret) == 0 {
		return models.ErrValidation
	}

	valid, err := s.totp.ValidateCode(account.TOTPSecret, account.TOTPNonce, code)
	if err != nil {
		s.logger.Error("totp validation error", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !valid {
		return models.ErrInvalidTOTPCode
	}

	if err := s.repo.SetTOTP(ctx, accountID, account.TOTPSecret, account.TOTPNonce, true); err != nil {
		s.logger.Error("failed to enable TOTP", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("mfa_enabled", accountID, "", nil)
	return nil
}

// Disable removes the TOTP secret. Requires the account password so a
// hijacked access token alone cannot weaken the account.
func (s *MFAService) Disable(ctx context.Context, accountID, password string) error {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.hasher.Compare(ctx, account.PasswordHash, password); err != nil {
		return models.ErrUnauthorized
	}

	if err := s.repo.SetTOTP(ctx, accountID, nil, nil, false); err != nil {
		s.logger.Error("failed to disable TOTP", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("mfa_disabled", accountID, "", nil)
	return nil
}
