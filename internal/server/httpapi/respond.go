package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minimart/storefront/internal/common"
)

const maxBodyBytes = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	_ = writeJSON(w, status, errorResponse{Error: message})
}

// statusFor is the single place where domain errors become HTTP statuses.
// The returned message is safe to show to the caller.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
	case errors.Is(err, common.ErrorAlreadyExists),
		errors.Is(err, common.ErrorInvalidOrExpired),
		errors.Is(err, common.ErrorSelfAction):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, common.ErrorUnauthorized.Error()
	case errors.Is(err, common.ErrorAccountDisabled),
		errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, common.ErrorNotFound.Error()
	case errors.Is(err, common.ErrorTooManyAttempts):
		return http.StatusTooManyRequests, err.Error()
	default:
		return http.StatusInternalServerError, common.ErrorInternal.Error()
	}
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed", "error", err)
	}
	writeErrorMessage(w, status, msg)
}

// decode reads a JSON body into p and validates it. Any failure is a
// validation error.
func decode(w http.ResponseWriter, r *http.Request, p interface{ Validate() error }) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	// An empty body is validated like an empty object.
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: malformed JSON body", common.ErrorValidation)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return nil
}
