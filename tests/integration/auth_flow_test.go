package integration

import (
	"context"
	"log"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgauth "github.com/calebmaitland/gatehouse/pkg/auth"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	db, err := SetupTestDatabase(ctx)
	if err != nil {
		log.Fatalf("failed to set up test database: %v", err)
	}
	testDB = db

	code := m.Run()

	if err := testDB.Teardown(ctx); err != nil {
		log.Printf("teardown failed: %v", err)
	}
	os.Exit(code)
}

func newServer(t *testing.T) *TestServer {
	t.Helper()
	require.NoError(t, testDB.CleanupTables(context.Background()))
	return NewTestServer(testDB)
}

func TestRegisterAndLoginFlow(t *testing.T) {
	srv := newServer(t)

	w := srv.Post("/auth/register", registerBody(testEmail), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	registered, err := DecodeAuthResponse(w)
	require.NoError(t, err)
	assert.NotEmpty(t, registered.AccessToken)
	assert.NotEmpty(t, registered.RefreshToken)
	assert.Equal(t, testEmail, registered.Account.Email)
	assert.False(t, registered.Account.EmailVerified)

	// Registration enqueues a verification email
	email := srv.Email.WaitForEmail(1)
	require.NotNil(t, email, "expected a verification email")
	assert.Equal(t, "verification", email.Kind)
	assert.Equal(t, testEmail, email.To)

	w = srv.Post("/auth/login", loginBody(testEmail, testPassword), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	loggedIn, err := DecodeAuthResponse(w)
	require.NoError(t, err)
	assert.NotEmpty(t, loggedIn.RefreshToken)
	assert.NotEqual(t, registered.RefreshToken, loggedIn.RefreshToken)

	// The login replaced the registration session
	account, err := testDB.Repo.GetByEmail(context.Background(), testEmail)
	require.NoError(t, err)
	require.NotNil(t, account.RefreshTokenHash)
	assert.Equal(t, pkgauth.HashToken(loggedIn.RefreshToken), *account.RefreshTokenHash)

	w = srv.Post("/auth/login", loginBody(testEmail, "WrongPassword1!"), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshRotationDetectsReuse(t *testing.T) {
	srv := newServer(t)

	w := srv.Post("/auth/register", registerBody(testEmail), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first, err := DecodeAuthResponse(w)
	require.NoError(t, err)

	// Normal rotation
	w = srv.Post("/auth/refresh", map[string]any{"refresh_token": first.RefreshToken}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	second, err := DecodeAuthResponse(w)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// Replaying the rotated-out token is treated as theft
	w = srv.Post("/auth/refresh", map[string]any{"refresh_token": first.RefreshToken}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Detection revoked the whole session, so the current token dies too
	w = srv.Post("/auth/refresh", map[string]any{"refresh_token": second.RefreshToken}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	account, err := testDB.Repo.GetByEmail(context.Background(), testEmail)
	require.NoError(t, err)
	assert.Nil(t, account.RefreshTokenHash)
}

func TestLogoutEndsSession(t *testing.T) {
	srv := newServer(t)

	w := srv.Post("/auth/register", registerBody(testEmail), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session, err := DecodeAuthResponse(w)
	require.NoError(t, err)

	w = srv.Get("/auth/sessions", session.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.Post("/auth/logout", nil, session.AccessToken)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = srv.Post("/auth/refresh", map[string]any{"refresh_token": session.RefreshToken}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)

	_, err := SeedAccount(ctx, testDB.Repo, testEmail, testPassword, true)
	require.NoError(t, err)

	w := srv.Post("/auth/forgot-password", map[string]any{"email": testEmail}, "")
	require.Equal(t, http.StatusAccepted, w.Code)
	knownBody := w.Body.String()

	// Unknown emails get the byte-identical response
	w = srv.Post("/auth/forgot-password", map[string]any{"email": "nobody@example.com"}, "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, knownBody, w.Body.String())

	email := srv.Email.WaitForEmail(1)
	require.NotNil(t, email, "expected a reset email")
	require.Equal(t, "reset", email.Kind)

	w = srv.Post("/auth/reset-password", map[string]any{
		"token":        email.Token,
		"new_password": newPassword,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = srv.Post("/auth/login", loginBody(testEmail, newPassword), "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = srv.Post("/auth/login", loginBody(testEmail, testPassword), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPasswordChangeRevokesSession(t *testing.T) {
	srv := newServer(t)

	w := srv.Post("/auth/register", registerBody(testEmail), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session, err := DecodeAuthResponse(w)
	require.NoError(t, err)

	w = srv.Post("/auth/change-password", map[string]any{
		"current_password": testPassword,
		"new_password":     newPassword,
	}, session.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The change ended the session, so the pre-change refresh token is dead
	w = srv.Post("/auth/refresh", map[string]any{"refresh_token": session.RefreshToken}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.Post("/auth/login", loginBody(testEmail, newPassword), "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestEmailVerificationFlow(t *testing.T) {
	srv := newServer(t)

	w := srv.Post("/auth/register", registerBody(testEmail), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	email := srv.Email.WaitForEmail(1)
	require.NotNil(t, email, "expected a verification email")
	require.Equal(t, "verification", email.Kind)

	w = srv.Post("/auth/verify-email", map[string]any{"token": email.Token}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	account, err := testDB.Repo.GetByEmail(context.Background(), testEmail)
	require.NoError(t, err)
	assert.True(t, account.EmailVerified)

	// The token is single-use
	w = srv.Post("/auth/verify-email", map[string]any{"token": email.Token}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshHashRotationIsCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.CleanupTables(ctx))

	account, err := SeedAccount(ctx, testDB.Repo, testEmail, testPassword, true)
	require.NoError(t, err)

	oldHash := pkgauth.HashToken("session-one")
	newHash := pkgauth.HashToken("session-two")
	require.NoError(t, testDB.Repo.SetRefreshTokenHash(ctx, account.ID, oldHash))

	rotated, err := testDB.Repo.RotateRefreshTokenHash(ctx, account.ID, oldHash, newHash)
	require.NoError(t, err)
	assert.True(t, rotated)

	// A second rotation from the stale hash loses the race
	rotated, err = testDB.Repo.RotateRefreshTokenHash(ctx, account.ID, oldHash, pkgauth.HashToken("session-three"))
	require.NoError(t, err)
	assert.False(t, rotated)

	got, err := testDB.Repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RefreshTokenHash)
	assert.Equal(t, newHash, *got.RefreshTokenHash)
}
