package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wallet-portfolio/internal/service"
	"github.com/wallet-portfolio/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// Common error codes
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// mapServiceError maps service errors to HTTP status codes. The pipeline's
// only hard failure is an invalid wallet address; everything else is an
// internal error.
func mapServiceError(err error) (int, string, string) {
	if errors.Is(err, service.ErrInvalidWallet) {
		return http.StatusBadRequest, ErrCodeInvalidInput, "Invalid wallet address"
	}

	var serviceErr *types.ServiceError
	if errors.As(err, &serviceErr) {
		return http.StatusInternalServerError, serviceErr.Code, serviceErr.Message
	}

	return http.StatusInternalServerError, ErrCodeInternalError, "An internal server error occurred"
}
