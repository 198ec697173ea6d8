package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/adrianmirek/darterassistant-sub002/internal/domain"
)

// Error codes surfaced in the response envelope.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeNotLockOwner      = "NOT_LOCK_OWNER"
	CodeNotFound          = "NOT_FOUND"
	CodeLockConflict      = "LOCK_CONFLICT"
	CodeMatchFinished     = "MATCH_ALREADY_FINISHED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInternal          = "INTERNAL_ERROR"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message, Details: details}})
}

// writeError maps domain errors onto the HTTP error taxonomy. Lock
// conflicts carry the competing lock so the caller can show who holds
// it.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *domain.LockConflictError
	var transition *domain.TransitionError

	switch {
	case errors.As(err, &conflict):
		writeErrorCode(w, http.StatusConflict, CodeLockConflict, err.Error(), conflict.Holder)
	case errors.As(err, &transition):
		writeErrorCode(w, http.StatusConflict, CodeInvalidTransition, err.Error(), nil)
	case errors.Is(err, domain.ErrMatchFinished):
		writeErrorCode(w, http.StatusConflict, CodeMatchFinished, err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidInput):
		writeErrorCode(w, http.StatusBadRequest, CodeValidation, err.Error(), nil)
	case errors.Is(err, domain.ErrNotLockOwner):
		writeErrorCode(w, http.StatusForbidden, CodeNotLockOwner, "the session does not hold the match lock", nil)
	case errors.Is(err, domain.ErrMatchNotFound),
		errors.Is(err, domain.ErrThrowNotFound),
		errors.Is(err, domain.ErrLockNotFound):
		writeErrorCode(w, http.StatusNotFound, CodeNotFound, err.Error(), nil)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeErrorCode(w, http.StatusInternalServerError, CodeInternal, "internal error", nil)
	}
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	writeErrorCode(w, http.StatusUnauthorized, CodeUnauthorized, "missing X-Session-ID header", nil)
}
