package auth

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTOTPManager(t *testing.T) *TOTPManager {
	t.Helper()
	manager, err := NewTOTPManager(bytes.Repeat([]byte{0x42}, 32), "gatehouse-test")
	require.NoError(t, err)
	return manager
}

func TestNewTOTPManager_KeyLength(t *testing.T) {
	_, err := NewTOTPManager([]byte("too short"), "gatehouse-test")
	assert.Error(t, err)

	_, err = NewTOTPManager(bytes.Repeat([]byte{0x01}, 32), "gatehouse-test")
	assert.NoError(t, err)
}

func TestGenerateEnrollment(t *testing.T) {
	manager := newTestTOTPManager(t)

	enrollment, err := manager.GenerateEnrollment("alice@example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, enrollment.Secret)
	assert.True(t, strings.HasPrefix(enrollment.QRDataURL, "data:image/png;base64,"))
	assert.NotEqual(t, []byte(enrollment.Secret), enrollment.Encrypted,
		"the stored form must be the ciphertext, not the plaintext secret")

	plaintext, err := manager.DecryptSecret(enrollment.Encrypted, enrollment.Nonce)
	require.NoError(t, err)
	assert.Equal(t, enrollment.Secret, string(plaintext))
}

func TestEncryptDecryptSecret(t *testing.T) {
	manager := newTestTOTPManager(t)

	encrypted, nonce, err := manager.EncryptSecret([]byte("JBSWY3DPEHPK3PXP"))
	require.NoError(t, err)

	plaintext, err := manager.DecryptSecret(encrypted, nonce)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", string(plaintext))
}

func TestDecryptSecret_WrongKey(t *testing.T) {
	manager := newTestTOTPManager(t)
	other, err := NewTOTPManager(bytes.Repeat([]byte{0x7f}, 32), "gatehouse-test")
	require.NoError(t, err)

	encrypted, nonce, err := manager.EncryptSecret([]byte("JBSWY3DPEHPK3PXP"))
	require.NoError(t, err)

	_, err = other.DecryptSecret(encrypted, nonce)
	assert.Error(t, err, "GCM must reject a ciphertext under the wrong key")
}

func TestValidateCode(t *testing.T) {
	manager := newTestTOTPManager(t)

	enrollment, err := manager.GenerateEnrollment("alice@example.com")
	require.NoError(t, err)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)

	valid, err := manager.ValidateCode(enrollment.Encrypted, enrollment.Nonce, code)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = manager.ValidateCode(enrollment.Encrypted, enrollment.Nonce, "000000")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestValidateCode_ClockDrift(t *testing.T) {
	manager := newTestTOTPManager(t)

	enrollment, err := manager.GenerateEnrollment("alice@example.com")
	require.NoError(t, err)

	// One period behind is within the configured skew
	code, err := totp.GenerateCode(enrollment.Secret, time.Now().Add(-30*time.Second))
	require.NoError(t, err)

	valid, err := manager.ValidateCode(enrollment.Encrypted, enrollment.Nonce, code)
	require.NoError(t, err)
	assert.True(t, valid)
}
