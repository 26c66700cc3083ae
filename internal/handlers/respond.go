package handlers

import (
	"errors"
	"net/http"

	"github.com/calebmaitland/gatehouse/internal/models"
	pkghttp "github.com/calebmaitland/gatehouse/pkg/http"
)

// writeServiceError maps a service error to an HTTP response. Errors in a
// known family carry a client-safe message, so we pass it through; anything
// else is reported as a generic 500 and must not leak internals.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, clientMessage(err, "Authentication failed"))
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, err.Error())
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, err.Error())
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// clientMessage returns the error's own message only when it adds something
// beyond the bare sentinel; the generic fallback keeps credential failures
// indistinguishable.
func clientMessage(err error, fallback string) string {
	if errors.Is(err, models.ErrAccountDisabled) ||
		errors.Is(err, models.ErrAccountSuspended) ||
		errors.Is(err, models.ErrInvalidTOTPCode) {
		return err.Error()
	}
	return fallback
}
