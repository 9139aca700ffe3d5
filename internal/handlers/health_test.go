package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthzWithDatabase(t *testing.T) {
	_, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	Healthz(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var status map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status["status"] != "ok" || status["database"] != "ok" {
		t.Fatalf("unexpected status payload: %v", status)
	}
}

func TestHealthzWithoutDatabase(t *testing.T) {
	original := database
	database = nil
	t.Cleanup(func() { database = original })

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	Healthz(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var status map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status["database"] != "unconfigured" {
		t.Fatalf("unexpected status payload: %v", status)
	}
}
