package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"classquest/internal/apperr"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"not found", apperr.NotFound("series not found"), http.StatusNotFound, "series not found"},
		{"forbidden", apperr.Forbidden("only the series creator may manage it"), http.StatusForbidden, "only the series creator may manage it"},
		{"conflict", apperr.Conflict("challenge already completed"), http.StatusConflict, "challenge already completed"},
		{"validation", apperr.Validation("invalid series configuration", "title: required"), http.StatusBadRequest, "invalid series configuration"},
		{"transient", apperr.Transient("progress record contention, try again", nil), http.StatusServiceUnavailable, "progress record contention, try again"},
		{"unclassified", errors.New("database on fire"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			respondError(rr, tt.err)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}

			var body errorResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != tt.wantError {
				t.Errorf("error = %q, want %q", body.Error, tt.wantError)
			}
		})
	}
}

func TestRespondErrorValidationFields(t *testing.T) {
	rr := httptest.NewRecorder()
	respondError(rr, apperr.Validation("invalid challenge definition", "title: required", "bits: must not be negative"))

	var body errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Fields) != 2 {
		t.Errorf("fields = %v, want both validation messages", body.Fields)
	}
}

func TestRespondErrorNeverLeaksInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	respondError(rr, errors.New("pq: connection refused host=10.0.0.5"))

	if strings.Contains(rr.Body.String(), "10.0.0.5") {
		t.Error("internal error detail leaked into the response body")
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Answer string `json:"answer"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"answer":"KQZM47"}`))
	if err := decodeJSON(r, &dst); err != nil {
		t.Fatalf("decodeJSON() error = %v", err)
	}
	if dst.Answer != "KQZM47" {
		t.Errorf("answer = %q, want KQZM47", dst.Answer)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"answer":`))
	if err := decodeJSON(r, &dst); !apperr.IsValidation(err) {
		t.Errorf("decodeJSON() on bad body error = %v, want validation", err)
	}
}
