package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/jiji/internal/model"
)

func TestWriteError_MapsKindToStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"入力検証", model.NewValidationError(model.MsgCredentialsRequired), http.StatusBadRequest, "Email and password are required"},
		{"認証", model.NewUnauthorizedError(model.MsgInvalidToken), http.StatusUnauthorized, "Invalid or expired token"},
		{"プロバイダー", model.NewProviderError("Invalid login credentials"), http.StatusBadRequest, "Invalid login credentials"},
		{"レート制限", model.NewRateLimitedError(), http.StatusTooManyRequests, "Too many requests. Please try again later."},
		{"内部", model.NewInternalError(model.MsgInternalServerError, "boom"), http.StatusInternalServerError, "Internal server error"},
		{"APIError以外", errors.New("connection reset"), http.StatusInternalServerError, "connection reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Error != tt.wantError {
				t.Errorf("error = %q, want %q", body.Error, tt.wantError)
			}
		})
	}
}

func TestWriteError_OmitsEmptyDetails(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, model.NewValidationError(model.MsgQueryRequired))

	if strings.Contains(w.Body.String(), "details") {
		t.Errorf("details should be omitted, got %s", w.Body.String())
	}
}

func TestWriteInternalServerError_IncludesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w, "nil pointer dereference")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] != "Internal server error" || body["details"] != "nil pointer dereference" {
		t.Errorf("unexpected body: %v", body)
	}
}
