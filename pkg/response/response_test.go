package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var r Response
	if err := json.NewDecoder(rec.Body).Decode(&r); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return r
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, map[string]string{"id": "s1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	r := decode(t, rec)
	if !r.Success || string(r.Data) != `{"id":"s1"}` {
		t.Errorf("unexpected envelope %+v", r)
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
	}{
		{name: "bad request", write: func(w http.ResponseWriter) { BadRequest(w, "nope") }, status: http.StatusBadRequest},
		{name: "forbidden", write: func(w http.ResponseWriter) { Forbidden(w, "nope") }, status: http.StatusForbidden},
		{name: "not found", write: func(w http.ResponseWriter) { NotFound(w, "nope") }, status: http.StatusNotFound},
		{name: "internal", write: func(w http.ResponseWriter) { InternalError(w, "nope") }, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			r := decode(t, rec)
			if r.Success || r.Error != "nope" {
				t.Errorf("unexpected envelope %+v", r)
			}
		})
	}
}

func TestErrorDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorDetail(rec, http.StatusNotFound, "block not found", map[string]string{"failedBlockId": "b9"})

	r := decode(t, rec)
	if r.Success || r.Error != "block not found" || string(r.Data) != `{"failedBlockId":"b9"}` {
		t.Errorf("unexpected envelope %+v", r)
	}
}

func TestValidationMessage(t *testing.T) {
	type req struct {
		Texts []string `validate:"required,min=1"`
	}
	err := validator.New().Struct(req{})
	msg := ValidationMessage(err)
	if msg != "invalid request: req.Texts failed required" {
		t.Errorf("ValidationMessage() = %q", msg)
	}
}
