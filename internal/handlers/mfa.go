package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/calebmaitland/gatehouse/internal/auth"
	"github.com/calebmaitland/gatehouse/internal/services"
	pkghttp "github.com/calebmaitland/gatehouse/pkg/http"
)

// MFAServiceInterface defines the interface for TOTP enrollment
type MFAServiceInterface interface {
	Setup(ctx context.Context, accountID string) (*services.MFASetupResponse, error)
	Activate(ctx context.Context, accountID, code string) error
	Disable(ctx context.Context, accountID, password string) error
}

// MFAHandler handles TOTP enrollment requests
type MFAHandler struct {
	service MFAServiceInterface
}

// NewMFAHandler creates a new MFAHandler
func NewMFAHandler(service MFAServiceInterface) *MFAHandler {
	return &MFAHandler{service: service}
}

// ActivateMFARequest represents the request body for confirming enrollment
type ActivateMFARequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// DisableMFARequest represents the request body for disabling TOTP
type DisableMFARequest struct {
	Password string `json:"password" validate:"required"`
}

// Setup starts TOTP enrollment and returns the secret and QR code
func (h *MFAHandler) Setup(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	resp, err := h.service.Setup(r.Context(), claims.AccountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Activate confirms enrollment with a code from the authenticator app
func (h *MFAHandler) Activate(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ActivateMFARequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Activate(r.Context(), claims.AccountID, req.Code); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Two-factor authentication enabled.",
	})
}

// Disable turns off TOTP after re-authenticating with the password
func (h *MFAHandler) Disable(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req DisableMFARequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Disable(r.Context(), claims.AccountID, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Two-factor authentication disabled.",
	})
}
