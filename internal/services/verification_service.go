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

// Generic messages for the enumeration-sensitive request flow and the two
// redeem outcomes.
const (
	VerificationRequestMessage = "If an account with that email exists, a verification email has been sent."
	VerifiedMessage            = "Email verified successfully."
	AlreadyVerifiedMessage     = "Email is already verified."
)

// VerificationService manages email-verification tokens.
type VerificationService struct {
	repo        AccountRepository
	email       EmailService
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger

	tokenExpiry    time.Duration
	resendCooldown time.Duration
}

// NewVerificationService creates a new VerificationService
func NewVerificationService(
	repo AccountRepository,
	email EmailService,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	tokenExpiry, resendCooldown time.Duration,
) *VerificationService {
	return &VerificationService{
		repo:           repo,
		email:          email,
		logger:         logger,
		auditLogger:    auditLogger,
		tokenExpiry:    tokenExpiry,
		resendCooldown: resendCooldown,
	}
}

// Request mints a fresh verification token and enqueues the email. Like
// the reset request, every branch looks identical to the caller.
func (s *VerificationService) Request(ctx context.Context, email string) {
	email = strings.ToLower(strings.TrimSpace(email))

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up account for verification", slog.Any("error", err))
		}
		return
	}

	if account.EmailVerified {
		return
	}

	// Refuse while the existing token still has more than
	// (expiry − cooldown) remaining, i.e. for a short window after issue.
	if account.VerifyTokenExpiry != nil {
		remaining := time.Until(*account.VerifyTokenExpiry)
		if remaining > s.tokenExpiry-s.resendCooldown {
			s.logger.Info("verification resend rate limited", slog.String("account_id", account.ID))
			return
		}
	}

	token, err := pkgauth.GenerateToken()
	if err != nil {
		s.logger.Error("failed to generate verification token", slog.Any("error", err))
		return
	}
	expiresAt := time.Now().Add(s.tokenExpiry)

	if err := s.repo.SetVerifyToken(ctx, account.ID, token, expiresAt); err != nil {
		s.logger.Error("failed to store verification token", slog.String("account_id", account.ID), slog.Any("error", err))
		return
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.email.SendVerificationEmail(sendCtx, account.Email, token, expiresAt); err != nil {
			s.logger.Error("failed to send verification email",
				slog.String("email", pkglogger.SanitizedEmail(account.Email)),
				slog.Any("error", err))
		}
	}()
}

// Verify redeems a verification token. Idempotent on an already-verified
// account: the token is consumed either way and the caller gets a benign
// message rather than a failure.
func (s *VerificationService) Verify(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", models.ErrTokenExpired
	}

	account, err := s.repo.GetByVerifyToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrTokenExpired
		}
		s.logger.Error("failed to look up verification token", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	alreadyVerified := account.EmailVerified

	if err := s.repo.MarkEmailVerified(ctx, account.ID); err != nil {
		s.logger.Error("failed to mark email verified", slog.String("account_id", account.ID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if alreadyVerified {
		return AlreadyVerifiedMessage, nil
	}

	s.auditLogger.LogAccountAction("email_verified", account.ID, "", nil)
	s.logger.Info("email verified", slog.String("account_id", account.ID))
	return VerifiedMessage, nil
}
