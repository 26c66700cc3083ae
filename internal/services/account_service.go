package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/calebmaitland/gatehouse/internal/models"
)

// AccountService exposes the profile read/update surface.
type AccountService struct {
	repo   AccountRepository
	logger *slog.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(repo AccountRepository, logger *slog.Logger) *AccountService {
	return &AccountService{
		repo:   repo,
		logger: logger,
	}
}

// GetProfile returns the public projection of an account.
func (s *AccountService) GetProfile(ctx context.Context, id string) (*AccountResponse, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.String("account_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return accountToResponse(account), nil
}

// ProfileUpdate carries the mutable profile fields. Email is immutable
// through this path.
type ProfileUpdate struct {
	FirstName string
	LastName  string
}

// UpdateProfile applies non-empty updates to the profile fields.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*AccountResponse, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.String("account_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	firstName := account.FirstName
	lastName := account.LastName
	if v := strings.TrimSpace(update.FirstName); v != "" {
		firstName = v
	}
	if v := strings.TrimSpace(update.LastName); v != "" {
		lastName = v
	}

	updated, err := s.repo.UpdateProfile(ctx, id, firstName, lastName)
	if err != nil {
		s.logger.Error("failed to update profile", slog.String("account_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("profile updated", slog.String("account_id", id))
	return accountToResponse(updated), nil
}
