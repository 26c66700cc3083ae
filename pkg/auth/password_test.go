package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHasher_RoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(4)
	ctx := context.Background()

	hash, err := hasher.Hash(ctx, "Secret123!")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123!", hash)

	assert.NoError(t, hasher.Compare(ctx, hash, "Secret123!"))
	assert.Error(t, hasher.Compare(ctx, hash, "WrongPassword1"))
}

func TestPasswordHasher_EmptyPassword(t *testing.T) {
	hasher := NewPasswordHasher(4)

	_, err := hasher.Hash(context.Background(), "")
	assert.Error(t, err)
}

func TestPasswordHasher_InvalidCostFallsBack(t *testing.T) {
	hasher := NewPasswordHasher(99)
	assert.Equal(t, DefaultBcryptCost, hasher.cost)

	hasher = NewPasswordHasher(0)
	assert.Equal(t, DefaultBcryptCost, hasher.cost)
}

func TestPasswordHasher_CancelledContext(t *testing.T) {
	hasher := NewPasswordHasher(4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := hasher.Hash(ctx, "Secret123!")
	assert.Error(t, err)
}

func TestGenerateToken(t *testing.T) {
	token1, err := GenerateToken()
	require.NoError(t, err)
	token2, err := GenerateToken()
	require.NoError(t, err)

	assert.NotEqual(t, token1, token2)
	assert.NotContains(t, token1, "+", "token must be URL-safe")
	assert.NotContains(t, token1, "/", "token must be URL-safe")
	assert.GreaterOrEqual(t, len(token1), 43, "32 bytes base64url is at least 43 characters")
}

func TestHashToken(t *testing.T) {
	hash := HashToken("some-refresh-token")

	assert.Len(t, hash, 64, "sha256 hex digest")
	assert.Equal(t, hash, HashToken("some-refresh-token"), "digest must be deterministic")
	assert.NotEqual(t, hash, HashToken("other-token"))
}

func TestTokenHashEquals(t *testing.T) {
	stored := HashToken("the-token")

	assert.True(t, TokenHashEquals(stored, "the-token"))
	assert.False(t, TokenHashEquals(stored, "not-the-token"))
	assert.False(t, TokenHashEquals("", "the-token"))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"valid", "Secret123!", ""},
		{"too short", "Ab1", "at least 8 characters"},
		{"too long", strings.Repeat("Aa1", 50), "at most 128 characters"},
		{"no uppercase", "secret123", "uppercase"},
		{"no lowercase", "SECRET123", "lowercase"},
		{"no digit", "SecretPass", "digit"},
		{"common password", "Password123!", "too common"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
