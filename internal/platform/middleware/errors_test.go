package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/registry/internal/platform/apperr"
)

func runErrorHandler(t *testing.T, err error, diagnostics bool) (*httptest.ResponseRecorder, ErrorBody) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	ErrorHandler(zerolog.Nop(), diagnostics)(err, c)

	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v (%s)", err, rec.Body.String())
	}
	return rec, body
}

func TestErrorHandler_Kinds(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", apperr.Validation("Missing required fields", map[string]string{"mrn": "is required"}), http.StatusBadRequest, "Missing required fields"},
		{"conflict", apperr.Conflict("Patient with this MRN already exists", errors.New("23505")), http.StatusConflict, "Patient with this MRN already exists"},
		{"not found", apperr.NotFound("Order not found", nil), http.StatusNotFound, "Order not found"},
		{"transient", apperr.Transient(errors.New("connection refused")), http.StatusInternalServerError, "Server error"},
		{"echo", echo.NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed"), http.StatusMethodNotAllowed, "Method Not Allowed"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "Server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := runErrorHandler(t, tt.err, false)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
			if body.Error != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, body.Error)
			}
			if body.Detail != "" || body.Stack != "" {
				t.Error("expected no diagnostics in production mode")
			}
		})
	}
}

func TestErrorHandler_ValidationFields(t *testing.T) {
	_, body := runErrorHandler(t, apperr.Validation("Missing required fields", map[string]string{"mrn": "is required"}), false)
	if body.Fields["mrn"] != "is required" {
		t.Errorf("expected mrn field message, got %v", body.Fields)
	}
}

func TestErrorHandler_Diagnostics(t *testing.T) {
	_, body := runErrorHandler(t, apperr.Transient(errors.New("connection refused")), true)
	if body.Error != "Server error" {
		t.Errorf("public message must stay generic, got %q", body.Error)
	}
	if body.Detail != "Server error: connection refused" {
		t.Errorf("unexpected detail %q", body.Detail)
	}
	if body.Stack == "" {
		t.Error("expected stack in diagnostics mode")
	}
}

func TestErrorHandler_PanicStack(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := Recovery(zerolog.Nop())(func(echo.Context) error { panic("kaboom") })(c)
	ErrorHandler(zerolog.Nop(), true)(err, c)

	var body ErrorBody
	json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if body.Detail != "panic: kaboom" || body.Stack == "" {
		t.Errorf("unexpected diagnostics: %+v", body)
	}
}
