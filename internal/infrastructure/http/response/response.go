// Package response writes the JSON envelopes returned by the admin API.
package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rezkam/taskguard/internal/domain"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries a machine-readable code and optional field details.
type ErrorBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details"`
}

// ErrorDetail names one offending field.
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// encodeFailedJSON is written when a body cannot be marshaled at all.
const encodeFailedJSON = `{"error":{"code":"INTERNAL_ERROR","message":"failed to encode response","details":[]}}`

func write(w http.ResponseWriter, status int, body any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(encodeFailedJSON))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

// OK writes a 200 response.
func OK(w http.ResponseWriter, data any) {
	write(w, http.StatusOK, data)
}

// Created writes a 201 response.
func Created(w http.ResponseWriter, data any) {
	write(w, http.StatusCreated, data)
}

// Error writes an error envelope.
func Error(w http.ResponseWriter, code, message string, status int) {
	write(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: message, Details: []ErrorDetail{}}})
}

// ValidationError writes a 400 naming the invalid field.
func ValidationError(w http.ResponseWriter, field, issue string) {
	write(w, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
		Code:    "VALIDATION_ERROR",
		Message: "validation failed",
		Details: []ErrorDetail{{Field: field, Issue: issue}},
	}})
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, "INVALID_INPUT", message, http.StatusBadRequest)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, "NOT_FOUND", message, http.StatusNotFound)
}

func InternalError(w http.ResponseWriter) {
	Error(w, "INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
}

// FromDomainError maps a domain error to its HTTP status. Unknown errors are
// logged and reported as 500 without leaking details.
func FromDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		ValidationError(w, validation.Field, validation.Reason)
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrEmptyUpdateMask),
		errors.Is(err, domain.ErrUnknownField):
		BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		NotFound(w, "resource not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		Error(w, "CONFLICT", err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrStoreUnavailable):
		slog.ErrorContext(r.Context(), "Store unavailable", "error", err)
		Error(w, "UNAVAILABLE", "store unavailable", http.StatusServiceUnavailable)
	default:
		slog.ErrorContext(r.Context(), "Unhandled error", "error", err, "path", r.URL.Path)
		InternalError(w)
	}
}
