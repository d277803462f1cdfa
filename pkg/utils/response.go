package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
)

type Response struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("failed to write response", zap.Error(err))
	}
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, Response{Message: message})
}

func RespondWithValidationErrors(w http.ResponseWriter, fields map[string]string) {
	RespondWithJSON(w, http.StatusBadRequest, Response{
		Message: FormatValidationErrors(fields),
		Errors:  fields,
	})
}

// RespondWithDomainError maps the error kind to a status code. Anything
// that is not a domain error is reported as a bare 500.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
		RespondWithError(w, code, "Internal server error")
		return
	}
	RespondWithError(w, code, err.Error())
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidOperation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
