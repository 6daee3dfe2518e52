package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	OK(map[string]int{"id": 7}).Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if strings.TrimSpace(w.Body.String()) != `{"id":7}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_Created(t *testing.T) {
	w := httptest.NewRecorder()
	Created(core.Category{ID: 9, Name: "Pets", Color: "#000", Icon: "paw"}).
		Header("Location", "/api/categories/9").
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d", w.Code)
	}
	if w.Header().Get("Location") != "/api/categories/9" {
		t.Errorf("Location header = %q", w.Header().Get("Location"))
	}
}

func TestJSONResponseBuilder_NoContent(t *testing.T) {
	w := httptest.NewRecorder()
	NoContent().Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", w.Body.String())
	}
	if w.Header().Get("Content-Type") != "" {
		t.Errorf("204 must not carry a content type")
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		build  *JSONResponseBuilder
		status int
		msg    string
	}{
		{"not found", NotFoundError("Transaction not found"), http.StatusNotFound, "Transaction not found"},
		{"conflict", ConflictError("Budget already exists"), http.StatusConflict, "Budget already exists"},
		{"internal", InternalServerError("Failed to fetch budgets"), http.StatusInternalServerError, "Failed to fetch budgets"},
		{"method", MethodNotAllowedError(), http.StatusMethodNotAllowed, "Method not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.build.Write(w)
			if w.Code != tt.status {
				t.Errorf("Status code = %d, want %d", w.Code, tt.status)
			}
			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.msg || body.Details != nil {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestValidationErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	ValidationErrorResponse("Invalid transaction data", []core.FieldError{
		{Field: "amount", Message: "amount must be at least 0.01"},
	}).Write(w)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status code = %d", w.Code)
	}
	want := `{"error":"Invalid transaction data","details":[{"field":"amount","message":"amount must be at least 0.01"}]}`
	if strings.TrimSpace(w.Body.String()) != want {
		t.Errorf("Body = %s", w.Body.String())
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	OK(map[string]any{"bad": make(chan int)}).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d", w.Code)
	}
}
