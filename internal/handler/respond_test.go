package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/workorbit/workorbit/internal/domain"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrInvalidState, http.StatusBadRequest},
		{domain.ErrValidation, http.StatusBadRequest},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrConflict, http.StatusConflict},
		{domain.ErrExhaustedCapacity, http.StatusConflict},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrAccountLocked, http.StatusLocked},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, nil, fmt.Errorf("context: %w", tc.err))
		if rec.Code != tc.status {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.status, rec.Code)
		}

		var body envelope
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%v: invalid body: %v", tc.err, err)
		}
		if body.Success {
			t.Fatalf("%v: failure response must have success=false", tc.err)
		}
		if body.Error == "" {
			t.Fatalf("%v: failure response must carry an error string", tc.err)
		}
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, nil, fmt.Errorf("dial tcp 10.0.0.3:5432: connection refused"))

	var body envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Error != "internal error" {
		t.Fatalf("internal errors must not leak, got %q", body.Error)
	}
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	writeData(rec, http.StatusCreated, map[string]string{"orgCode": "ORG001"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %s", ct)
	}

	var body struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if !body.Success || body.Data["orgCode"] != "ORG001" {
		t.Fatalf("unexpected body: %+v", body)
	}
}
