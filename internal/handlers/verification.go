package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/calebmaitland/gatehouse/internal/services"
	pkghttp "github.com/calebmaitland/gatehouse/pkg/http"
)

// VerificationServiceInterface defines the interface for email verification
type VerificationServiceInterface interface {
	Request(ctx context.Context, email string)
	Verify(ctx context.Context, token string) (string, error)
}

// VerificationHandler handles email verification requests
type VerificationHandler struct {
	service VerificationServiceInterface
}

// NewVerificationHandler creates a new VerificationHandler
func NewVerificationHandler(service VerificationServiceInterface) *VerificationHandler {
	return &VerificationHandler{service: service}
}

// ResendVerificationRequest represents the request body for requesting a
// new verification email
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyEmailRequest represents the request body for redeeming a
// verification token
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// ResendVerification requests a fresh verification email. The response is
// identical whether or not the email maps to an account.
func (h *VerificationHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	h.service.Request(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": services.VerificationRequestMessage,
	})
}

// VerifyEmail redeems a verification token
func (h *VerificationHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	message, err := h.service.Verify(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": message,
	})
}
