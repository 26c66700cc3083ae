package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/calebmaitland/gatehouse/internal/models"
	"github.com/calebmaitland/gatehouse/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMFASetupHandler(t *testing.T) {
	svc := &MockMFAService{
		SetupFunc: func(ctx context.Context, accountID string) (*services.MFASetupResponse, error) {
			return &services.MFASetupResponse{
				Secret: "JBSWY3DPEHPK3PXP",
				QRCode: "data:image/png;base64,abc",
			}, nil
		},
	}
	h := NewMFAHandler(svc)

	req := withClaims(httptest.NewRequest("POST", "/accounts/me/mfa/setup", nil), "account_123")
	w := doRequest(h.Setup, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp services.MFASetupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "JBSWY3DPEHPK3PXP", resp.Secret)
	assert.Contains(t, resp.QRCode, "data:image/png;base64,")
}

func TestMFASetupHandler_AlreadyEnabled(t *testing.T) {
	svc := &MockMFAService{
		SetupFunc: func(ctx context.Context, accountID string) (*services.MFASetupResponse, error) {
			return nil, models.ErrConflict
		},
	}
	h := NewMFAHandler(svc)

	req := withClaims(httptest.NewRequest("POST", "/accounts/me/mfa/setup", nil), "account_123")
	w := doRequest(h.Setup, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMFAActivateHandler(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"success", `{"code":"123456"}`, nil, http.StatusOK},
		{"wrong code", `{"code":"654321"}`, models.ErrInvalidTOTPCode, http.StatusUnauthorized},
		{"no pending enrollment", `{"code":"123456"}`, models.NewValidationError("no pending enrollment"), http.StatusBadRequest},
		{"non-numeric code", `{"code":"abcdef"}`, nil, http.StatusBadRequest},
		{"short code", `{"code":"123"}`, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockMFAService{
				ActivateFunc: func(ctx context.Context, accountID, code string) error {
					return tt.err
				},
			}
			h := NewMFAHandler(svc)

			req := withClaims(httptest.NewRequest("POST", "/accounts/me/mfa/activate",
				strings.NewReader(tt.body)), "account_123")
			w := doRequest(h.Activate, req)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestMFADisableHandler(t *testing.T) {
	var gotPassword string
	svc := &MockMFAService{
		DisableFunc: func(ctx context.Context, accountID, password string) error {
			gotPassword = password
			return nil
		},
	}
	h := NewMFAHandler(svc)

	req := withClaims(httptest.NewRequest("POST", "/accounts/me/mfa/disable",
		strings.NewReader(`{"password":"Secret123!"}`)), "account_123")
	w := doRequest(h.Disable, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Secret123!", gotPassword)
}

func TestMFADisableHandler_WrongPassword(t *testing.T) {
	svc := &MockMFAService{
		DisableFunc: func(ctx context.Context, accountID, password string) error {
			return models.ErrUnauthorized
		},
	}
	h := NewMFAHandler(svc)

	req := withClaims(httptest.NewRequest("POST", "/accounts/me/mfa/disable",
		strings.NewReader(`{"password":"wrong"}`)), "account_123")
	w := doRequest(h.Disable, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
