package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/calebmaitland/gatehouse/internal/models"
	pkgauth "github.com/calebmaitland/gatehouse/pkg/auth"
	pkglogger "github.com/calebmaitland/gatehouse/pkg/logger"
)

// ResetRequestMessage is returned by RequestReset regardless of whether a
// reset was actually issued, to prevent account enumeration. Byte-for-byte
// identical on every branch.
const ResetRequestMessage = "If an account with that email exists, a password reset link has been sent."

// PasswordService implements the two-phase reset flow and the
// authenticated password change.
type PasswordService struct {
	repo        AccountRepository
	hasher      *pkgauth.PasswordHasher
	email       EmailService
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger

	tokenExpiry     time.Duration
	requestCooldown time.Duration
}

// NewPasswordService creates a new PasswordService
func NewPasswordService(
	repo AccountRepository,
	hasher *pkgauth.PasswordHasher,
	email EmailService,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	tokenExpiry, requestCooldown time.Duration,
) *PasswordService {
	return &PasswordService{
		repo:            repo,
		hasher:          hasher,
		email:           email,
		logger:          logger,
		auditLogger:     auditLogger,
		tokenExpiry:     tokenExpiry,
		requestCooldown: requestCooldown,
	}
}

// RequestReset is phase one: mint a reset token and enqueue the email.
// Every branch, including internal failure, produces the same caller-visible
// outcome; only the logs differ.
func (s *PasswordService) RequestReset(ctx context.Context, email string) {
	email = strings.ToLower(strings.TrimSpace(email))

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up account for reset", slog.Any("error", err))
		}
		return
	}

	if account.Status != models.StatusActive {
		s.logger.Info("reset request for non-active account", slog.String("account_id", account.ID))
		return
	}

	// Rate limit: an unexpired token younger than the cooldown blocks a
	// new one. Age is derived from the remaining lifetime.
	if account.ResetTokenExpiry != nil {
		remaining := time.Until(*account.ResetTokenExpiry)
		if remaining > s.tokenExpiry-s.requestCooldown {
			s.logger.Info("reset request rate limited", slog.String("account_id", account.ID))
			return
		}
	}

	token, err := pkgauth.GenerateToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return
	}
	expiresAt := time.Now().Add(s.tokenExpiry)

	if err := s.repo.SetResetToken(ctx, account.ID, token, expiresAt); err != nil {
		s.logger.Error("failed to store reset token", slog.String("account_id", account.ID), slog.Any("error", err))
		return
	}

	s.auditLogger.LogAccountAction("password_reset_requested", account.ID, "", nil)

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.email.SendPasswordResetEmail(sendCtx, account.Email, token, expiresAt); err != nil {
			s.logger.Error("failed to send reset email",
				slog.String("email", pkglogger.SanitizedEmail(account.Email)),
				slog.Any("error", err))
		}
	}()
}

// Reset is phase two: redeem the token and replace the credential. The
// stored refresh token hash is cleared in the same update, so no session
// issued under the old password survives.
func (s *PasswordService) Reset(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.ErrTokenExpired
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return models.NewValidationError(err.Error())
	}

	account, err := s.repo.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrTokenExpired
		}
		s.logger.Error("failed to look up reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	// Reuse check goes through the hasher, never plaintext equality.
	if err := s.hasher.Compare(ctx, account.PasswordHash, newPassword); err == nil {
		return models.ErrPasswordReuse
	}

	newHash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.SetPassword(ctx, account.ID, newHash); err != nil {
		s.logger.Error("failed to store new password", slog.String("account_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogPasswordChange(account.ID, "", true)
	s.logger.Info("password reset completed", slog.String("account_id", account.ID))
	return nil
}

// Change replaces the credential for an authenticated account. Clears the
// active session the same way Reset does, one consistent policy for both
// credential-replacement paths.
func (s *PasswordService) Change(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.hasher.Compare(ctx, account.PasswordHash, currentPassword); err != nil {
		s.auditLogger.LogPasswordChange(account.ID, "", false)
		return models.ErrUnauthorized
	}

	if currentPassword == newPassword {
		return models.ErrPasswordReuse
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return models.NewValidationError(err.Error())
	}

	newHash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.SetPassword(ctx, account.ID, newHash); err != nil {
		s.logger.Error("failed to store new password", slog.String("account_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogPasswordChange(account.ID, "", true)
	s.logger.Info("password changed", slog.String("account_id", account.ID))
	return nil
}
