package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"

	"precifica/models"
)

func sessionRequest(t *testing.T, sm *scs.SessionManager, method, target, body string) *http.Request {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	ctx, err := sm.Load(req.Context(), "")
	if err != nil {
		t.Fatalf("failed to load session context: %v", err)
	}
	return req.WithContext(ctx)
}

func TestRegisterFirstAccountBecomesAdmin(t *testing.T) {
	_, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	req := sessionRequest(t, sm, http.MethodPost, "/api/auth/register",
		`{"email":"ana@confeitaria.com","password":"confeitaria","first_name":"Ana"}`)
	w := httptest.NewRecorder()
	Register(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var first userResponse
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if first.Role != models.RoleAdmin {
		t.Fatalf("expected first account to be admin, got %q", first.Role)
	}

	req = sessionRequest(t, sm, http.MethodPost, "/api/auth/register",
		`{"email":"helper@confeitaria.com","password":"confeitaria","first_name":"João"}`)
	w = httptest.NewRecorder()
	Register(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var second userResponse
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if second.Role != models.RoleUser {
		t.Fatalf("expected later accounts to be regular users, got %q", second.Role)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	_, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	payload := `{"email":"ana@confeitaria.com","password":"confeitaria","first_name":"Ana"}`

	w := httptest.NewRecorder()
	Register(w, sessionRequest(t, sm, http.MethodPost, "/api/auth/register", payload))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	Register(w, sessionRequest(t, sm, http.MethodPost, "/api/auth/register", payload))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for duplicate email, got %d", w.Code)
	}
}

func TestRegisterValidatesPayload(t *testing.T) {
	_, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	w := httptest.NewRecorder()
	Register(w, sessionRequest(t, sm, http.MethodPost, "/api/auth/register",
		`{"email":"not-an-email","password":"confeitaria","first_name":"Ana"}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for invalid email, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	Register(w, sessionRequest(t, sm, http.MethodPost, "/api/auth/register",
		`{"email":"ana@confeitaria.com","password":"curta","first_name":"Ana"}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for short password, got %d", w.Code)
	}
}

func TestLoginAndMe(t *testing.T) {
	db, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	w := httptest.NewRecorder()
	Register(w, sessionRequest(t, sm, http.MethodPost, "/api/auth/register",
		`{"email":"ana@confeitaria.com","password":"confeitaria","first_name":"Ana","last_name":"Silva"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	Login(w, sessionRequest(t, sm, http.MethodPost, "/api/auth/login",
		`{"email":"ana@confeitaria.com","password":"confeitaria"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for valid credentials, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	Login(w, sessionRequest(t, sm, http.MethodPost, "/api/auth/login",
		`{"email":"ana@confeitaria.com","password":"errada123"}`))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for wrong password, got %d", w.Code)
	}

	var user models.User
	if err := db.Where("email = ?", "ana@confeitaria.com").First(&user).Error; err != nil {
		t.Fatalf("failed to load user: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req = authenticateRequest(t, sm, req, user)
	w = httptest.NewRecorder()
	Me(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 from /api/auth/me, got %d", w.Code)
	}
	var me userResponse
	if err := json.Unmarshal(w.Body.Bytes(), &me); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if me.Email != "ana@confeitaria.com" || me.LastName != "Silva" {
		t.Fatalf("unexpected account payload: %+v", me)
	}
}
