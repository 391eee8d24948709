package response_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/taskguard/internal/domain"
	"github.com/rezkam/taskguard/internal/infrastructure/http/response"
)

// failingMarshaler always errors so the encode-failure path can be exercised.
type failingMarshaler struct{}

func (failingMarshaler) MarshalJSON() ([]byte, error) {
	return nil, errors.New("cannot marshal")
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body response.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body), "error body must be JSON")
	return body
}

func TestSuccessWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, any)
		status int
	}{
		{"ok", response.OK, http.StatusOK},
		{"created", response.Created, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w, map[string]any{"tenant": "acme", "removed": 2})

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, `{"tenant":"acme","removed":2}`, w.Body.String())
		})
	}
}

func TestSuccessWriters_EncodingFailureIs500(t *testing.T) {
	for name, write := range map[string]func(http.ResponseWriter, any){
		"ok":      response.OK,
		"created": response.Created,
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			write(w, failingMarshaler{})

			assert.Equal(t, http.StatusInternalServerError, w.Code, "no success status when encoding fails")
			body := decodeError(t, w)
			assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
			assert.Equal(t, "failed to encode response", body.Error.Message)
		})
	}
}

func TestError_EnvelopeHasEmptyDetails(t *testing.T) {
	w := httptest.NewRecorder()
	response.Error(w, "INVALID_INPUT", "tenant is required", http.StatusBadRequest)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t,
		`{"error":{"code":"INVALID_INPUT","message":"tenant is required","details":[]}}`,
		w.Body.String())
}

func TestValidationError_NamesField(t *testing.T) {
	w := httptest.NewRecorder()
	response.ValidationError(w, "deadline", "must be YYYY-MM-DD")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Equal(t, []response.ErrorDetail{{Field: "deadline", Issue: "must be YYYY-MM-DD"}}, body.Error.Details)
}

func TestFromDomainError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation field", &domain.ValidationError{Field: "tenant_id", Reason: "is required"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"wrapped validation", fmt.Errorf("create: %w", domain.ErrValidation), http.StatusBadRequest, "INVALID_INPUT"},
		{"invalid id", domain.ErrInvalidID, http.StatusBadRequest, "INVALID_INPUT"},
		{"not found", fmt.Errorf("%w: task t1", domain.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"invalid transition", domain.ErrInvalidTransition, http.StatusConflict, "CONFLICT"},
		{"store unavailable", domain.StoreError("list tasks", errors.New("timeout")), http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"inconsistency", domain.ErrInternalInconsistency, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/v1/tenants/acme/reconciliation/stats", nil)

			response.FromDomainError(w, r, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Error.Code)
		})
	}
}

func TestFromDomainError_DoesNotLeakInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/tenants/acme/reconciliation/scan", nil)

	response.FromDomainError(w, r, errors.New("pq: password authentication failed for user admin"))

	body := decodeError(t, w)
	assert.Equal(t, "internal server error", body.Error.Message)
	assert.NotContains(t, w.Body.String(), "password")
}
