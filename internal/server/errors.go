package server

import (
	"net/http"

	"github.com/Iron-Ham/squadron/internal/errors"
)

const codeRateLimited = "rate_limited"

type apiError struct {
	Status  int
	Code    string
	Message string
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// fromError maps a facade error to its HTTP status.
func fromError(err error) *apiError {
	code := errors.Code(err)
	return &apiError{Status: statusForCode(code), Code: code, Message: err.Error()}
}

func statusForCode(code string) int {
	switch code {
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeAlreadyExists, errors.CodeNotOwner:
		return http.StatusConflict
	case errors.CodeSpawnFailed, errors.CodeInjection:
		return http.StatusUnprocessableEntity
	case errors.CodeTimeout:
		return http.StatusGatewayTimeout
	case codeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(message string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: errors.CodeInvalidInput, Message: message}
}
