package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nerrad567/stayflow-core/internal/automation"
	"github.com/nerrad567/stayflow-core/internal/lodging"
	"github.com/nerrad567/stayflow-core/internal/property"
	"github.com/nerrad567/stayflow-core/internal/store"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeNotFound          = "not_found"
	ErrCodeUnauthorized      = "unauthorised"
	ErrCodeForbidden         = "forbidden"
	ErrCodeConflict          = "conflict"
	ErrCodeInternal          = "internal_error"
	ErrCodeValidation        = "validation_error"
	ErrCodeMethodNotAllow    = "method_not_allowed"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeUnavailable       = "cabin_unavailable"
	ErrCodeDuplicateTurnover = "duplicate_turnover"
	ErrCodeExhausted         = "access_code_space_exhausted"
	ErrCodeUnknownProperty   = "unknown_property"
	ErrCodeRateLimited       = "rate_limited"
)

// conflictRetries is how many times an operation that lost a write race is
// re-run before the conflict is reported.
const conflictRetries = 3

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// domainErrors maps sentinel errors to HTTP responses. Order matters:
// the first match wins.
var domainErrors = []struct {
	err    error
	status int
	code   string
}{
	{store.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{lodging.ErrInvalidInput, http.StatusBadRequest, ErrCodeValidation},
	{automation.ErrInvalidTemplate, http.StatusBadRequest, ErrCodeValidation},
	{automation.ErrInvalidRule, http.StatusBadRequest, ErrCodeValidation},
	{automation.ErrUnknownEvent, http.StatusBadRequest, ErrCodeValidation},
	{property.ErrUnknownProperty, http.StatusBadRequest, ErrCodeUnknownProperty},
	{lodging.ErrInvalidTransition, http.StatusConflict, ErrCodeInvalidTransition},
	{lodging.ErrCabinUnavailable, http.StatusConflict, ErrCodeUnavailable},
	{lodging.ErrDuplicateTurnover, http.StatusConflict, ErrCodeDuplicateTurnover},
	{automation.ErrNotRetryable, http.StatusConflict, ErrCodeConflict},
	{store.ErrConflict, http.StatusConflict, ErrCodeConflict},
	{lodging.ErrCodeSpaceExhausted, http.StatusServiceUnavailable, ErrCodeExhausted},
}

// writeDomainError maps a domain or store error to its HTTP response.
// Integrity failures and anything unrecognised become a 500 without
// leaking the underlying message.
func writeDomainError(w http.ResponseWriter, err error) {
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	writeInternalError(w, "internal server error")
}

// fail writes err and logs it when it maps to a server error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	known := false
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			known = true
			break
		}
	}
	if !known {
		s.logger.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
	}
	writeDomainError(w, err)
}

// retryOnConflict runs op again, with exponential backoff, while it fails
// with store.ErrConflict. Any other error stops immediately.
func retryOnConflict(ctx context.Context, op func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 20 * time.Millisecond
	exp.MaxInterval = 200 * time.Millisecond
	b := backoff.WithContext(backoff.WithMaxRetries(exp, conflictRetries), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !errors.Is(err, store.ErrConflict) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// decodeJSON reads the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
