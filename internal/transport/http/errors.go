package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "trustgrid/pkg/domain-errors"
	"trustgrid/pkg/platform/sentinel"
)

// writeError centralizes domain error translation to HTTP responses so every
// handler emits the same JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := string(dErrors.CodeInternal)

	var domainErr *dErrors.Error
	switch {
	case errors.As(err, &domainErr):
		status = statusFor(domainErr.Code)
		code = string(domainErr.Code)
	case errors.Is(err, sentinel.ErrNotFound):
		status = http.StatusNotFound
		code = string(dErrors.CodeNotFound)
	case errors.Is(err, sentinel.ErrConflict):
		status = http.StatusConflict
		code = string(dErrors.CodeConflict)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": err.Error(),
	})
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeValidation, dErrors.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
