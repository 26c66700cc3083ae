package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/calebmaitland/gatehouse/internal/database"
	"github.com/calebmaitland/gatehouse/internal/models"
	"github.com/google/uuid"
)

const accountColumns = `id, email, password_hash, first_name, last_name, role, status,
		email_verified, verify_token, verify_token_expires_at,
		reset_token, reset_token_expires_at, refresh_token_hash,
		totp_secret, totp_nonce, totp_enabled,
		last_login_at, last_login_ip, created_at, updated_at`

type AccountRepository struct {
	db *database.DB
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// rowScanner covers pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var a models.Account

	err := scanner.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &a.Role, &a.Status,
		&a.EmailVerified, &a.VerifyToken, &a.VerifyTokenExpiry,
		&a.ResetToken, &a.ResetTokenExpiry, &a.RefreshTokenHash,
		&a.TOTPSecret, &a.TOTPNonce, &a.TOTPEnabled,
		&a.LastLoginAt, &a.LastLoginIP, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &a, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`
	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, email))
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.ID = uuid.New().String()
	account.Email = strings.ToLower(account.Email)

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	if account.Role == "" {
		account.Role = models.RoleCustomer
	}
	if account.Status == "" {
		account.Status = models.StatusActive
	}

	query := `
		INSERT INTO accounts (id, email, password_hash, first_name, last_name, role, status,
			email_verified, verify_token, verify_token_expires_at,
			refresh_token_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + accountColumns

	return scanAccountRow(r.db.Pool.QueryRow(ctx, query,
		account.ID, account.Email, account.PasswordHash, account.FirstName, account.LastName,
		account.Role, account.Status, account.EmailVerified,
		account.VerifyToken, account.VerifyTokenExpiry,
		account.RefreshTokenHash, account.CreatedAt, account.UpdatedAt,
	))
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, id, firstName, lastName string) (*models.Account, error) {
	query := `
		UPDATE accounts SET first_name = $1, last_name = $2, updated_at = now()
		WHERE id = $3
		RETURNING ` + accountColumns

	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, firstName, lastName, id))
}

// SetPassword replaces the credential and invalidates the live session and
// any pending reset token in the same statement, so a credential change can
// never leave an old session or reset link alive.
func (r *AccountRepository) SetPassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $1,
		    refresh_token_hash = NULL,
		    reset_token = NULL,
		    reset_token_expires_at = NULL,
		    updated_at = now()
		WHERE id = $2`

	result, err := r.db.Pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RecordLogin persists the new session hash and the audit fields of a
// successful login in one write, overwriting any prior session.
func (r *AccountRepository) RecordLogin(ctx context.Context, id, refreshTokenHash, ip string) error {
	query := `
		UPDATE accounts
		SET refresh_token_hash = $1,
		    last_login_at = now(),
		    last_login_ip = NULLIF($2, ''),
		    updated_at = now()
		WHERE id = $3`

	result, err := r.db.Pool.Exec(ctx, query, refreshTokenHash, ip, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetRefreshTokenHash unconditionally stores a new session hash. Used at
// registration, where there is no prior session to compare against.
func (r *AccountRepository) SetRefreshTokenHash(ctx context.Context, id, hash string) error {
	query := `UPDATE accounts SET refresh_token_hash = $1, updated_at = now() WHERE id = $2`

	result, err := r.db.Pool.Exec(ctx, query, hash, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RotateRefreshTokenHash atomically replaces the stored hash, conditional
// on it still holding the hash the caller validated against. Returns false
// when a concurrent rotation or a revocation got there first.
func (r *AccountRepository) RotateRefreshTokenHash(ctx context.Context, id, oldHash, newHash string) (bool, error) {
	query := `
		UPDATE accounts
		SET refresh_token_hash = $1, updated_at = now()
		WHERE id = $2 AND refresh_token_hash = $3`

	result, err := r.db.Pool.Exec(ctx, query, newHash, id, oldHash)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *AccountRepository) ClearRefreshTokenHash(ctx context.Context, id string) error {
	query := `UPDATE accounts SET refresh_token_hash = NULL, updated_at = now() WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	query := `
		UPDATE accounts
		SET reset_token = $1, reset_token_expires_at = $2, updated_at = now()
		WHERE id = $3`

	result, err := r.db.Pool.Exec(ctx, query, token, expiresAt, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// GetByResetToken only matches unexpired tokens; an expired token is
// indistinguishable from an absent one.
func (r *AccountRepository) GetByResetToken(ctx context.Context, token string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + `
		FROM accounts
		WHERE reset_token = $1 AND reset_token_expires_at > now()`
	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, token))
}

func (r *AccountRepository) SetVerifyToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	query := `
		UPDATE accounts
		SET verify_token = $1, verify_token_expires_at = $2, updated_at = now()
		WHERE id = $3`

	result, err := r.db.Pool.Exec(ctx, query, token, expiresAt, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) GetByVerifyToken(ctx context.Context, token string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + `
		FROM accounts
		WHERE verify_token = $1 AND verify_token_expires_at > now()`
	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, token))
}

// MarkEmailVerified flips the flag and consumes the token in one write.
func (r *AccountRepository) MarkEmailVerified(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET email_verified = TRUE,
		    verify_token = NULL,
		    verify_token_expires_at = NULL,
		    updated_at = now()
		WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) SetTOTP(ctx context.Context, id string, secret, nonce []byte, enabled bool) error {
	query := `
		UPDATE accounts
		SET totp_secret = $1, totp_nonce = $2, totp_enabled = $3, updated_at = now()
		WHERE id = $4`

	result, err := r.db.Pool.Exec(ctx, query, secret, nonce, enabled, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ClearExpiredTokens nulls out verify and reset tokens whose expiry has
// passed. Used by the background cleanup job; purely hygienic, since the
// lookup queries already ignore expired rows.
func (r *AccountRepository) ClearExpiredTokens(ctx context.Context) (int64, error) {
	query := `
		UPDATE accounts
		SET verify_token = CASE WHEN verify_token_expires_at <= now() THEN NULL ELSE verify_token END,
		    verify_token_expires_at = CASE WHEN verify_token_expires_at <= now() THEN NULL ELSE verify_token_expires_at END,
		    reset_token = CASE WHEN reset_token_expires_at <= now() THEN NULL ELSE reset_token END,
		    reset_token_expires_at = CASE WHEN reset_token_expires_at <= now() THEN NULL ELSE reset_token_expires_at END
		WHERE (verify_token IS NOT NULL AND verify_token_expires_at <= now())
		   OR (reset_token IS NOT NULL AND reset_token_expires_at <= now())`

	result, err := r.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired tokens: %w", err)
	}
	return result.RowsAffected(), nil
}
