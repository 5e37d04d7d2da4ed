package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tixwave/pricing-engine/api"
	"github.com/tixwave/pricing-engine/internal/validator"
	"go.opentelemetry.io/otel"
)

// 2025-03-15 is a Saturday.
var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestApplication(opts ...func(*Application)) *Application {
	quoteDuration, _ := otel.Meter("test").Int64Histogram("pricing.quote.duration")

	app := &Application{
		validator:     validator.NewValidator(),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		quoteDuration: quoteDuration,
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(method, url, bytes.NewReader(jsonData))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, wantErrMessage string) {
	t.Helper()

	var errorResp api.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}

	if wantErrMessage != "" && errorResp.Message != wantErrMessage {
		t.Errorf("Error message = %v, want %v", errorResp.Message, wantErrMessage)
	}
}

func checkValidationError(t *testing.T, w *httptest.ResponseRecorder, wantIssue string) {
	t.Helper()

	var validationResp api.ValidationErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
		t.Fatalf("Failed to decode validation error response: %v", err)
	}

	for _, vErr := range validationResp.ValidationErrors {
		if vErr.Issue == wantIssue {
			return
		}
	}

	t.Errorf("Expected validation error message '%s' not found in response", wantIssue)
}

func ptr[T any](v T) *T {
	return &v
}
