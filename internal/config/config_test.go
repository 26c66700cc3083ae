package config

import (
	"bytes"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET", "access-secret-for-tests-0123456789")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret-for-tests-0123456789")
	t.Setenv("DB_PASSWORD", "db-password")
	t.Setenv("TOTP_ENCRYPTION_KEY", hex.EncodeToString(bytes.Repeat([]byte{0x42}, 32)))
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenExpiry)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenExpiry)
	assert.Equal(t, "gatehouse", cfg.Auth.Issuer)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 24*time.Hour, cfg.Auth.VerifyTokenExpiry)
	assert.Equal(t, 1*time.Hour, cfg.Auth.ResetTokenExpiry)
	assert.Len(t, cfg.Auth.TOTPEncryptionKey, 32)
	assert.NotEmpty(t, cfg.Server.AllowedOrigins, "development allows localhost origins")
}

func TestLoad_MissingSecrets(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("REFRESH_TOKEN_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_IdenticalSecretsRejected(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REFRESH_TOKEN_SECRET", "access-secret-for-tests-0123456789")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestLoad_MissingDBPassword(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_PASSWORD", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestLoad_BadTOTPKey(t *testing.T) {
	setRequiredEnv(t)

	t.Run("not hex", func(t *testing.T) {
		t.Setenv("TOTP_ENCRYPTION_KEY", "zz-not-hex")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("wrong length", func(t *testing.T) {
		t.Setenv("TOTP_ENCRYPTION_KEY", "deadbeef")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoad_DurationOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ACCESS_TOKEN_EXPIRY", "5m")
	t.Setenv("REFRESH_TOKEN_EXPIRY", "48h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenExpiry)
	assert.Equal(t, 48*time.Hour, cfg.Auth.RefreshTokenExpiry)
}

func TestValidateSecret(t *testing.T) {
	assert.NoError(t, validateSecret("X", "a-reasonably-long-secret", "development"))
	assert.Error(t, validateSecret("X", "short", "development"))
	assert.Error(t, validateSecret("X", "a-reasonably-long-secret", "production"),
		"production requires 32+ characters")
	assert.NoError(t, validateSecret("X", "a-32-character-production-secret", "production"))
	assert.Error(t, validateSecret("X", "changeme", "development"))
}

func TestDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "postgres",
		Password: "pw", Name: "gatehouse", SSLMode: "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=pw dbname=gatehouse sslmode=disable",
		cfg.DSN())
}
