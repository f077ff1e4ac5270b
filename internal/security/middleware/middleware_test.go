package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/workorbit/workorbit/internal/domain"
	"github.com/workorbit/workorbit/internal/security/audit"
	"github.com/workorbit/workorbit/internal/security/auth"
	"github.com/workorbit/workorbit/internal/security/ratelimit"
)

// bufferedAudit returns an audit logger whose records land in buf.
func bufferedAudit(buf *bytes.Buffer) *audit.Logger {
	return audit.NewLogger(slog.New(slog.NewTextHandler(buf, nil)))
}

func testToken(t *testing.T, tm *auth.TokenManager, role domain.Role) string {
	t.Helper()
	token, err := tm.GenerateToken(&domain.User{
		ID:             "user-1",
		Email:          "user@example.com",
		Role:           role,
		OrganizationID: "org-1",
	})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func TestJWTMiddleware(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", "workorbit", time.Hour)

	var gotClaims *auth.Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = GetClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	protected := JWTMiddleware(tm, nil)(next)

	// Public paths pass with no token.
	for _, path := range []string{"/healthz", "/api/auth/login", "/api/hierarchy/validate/org-code/ORG001"} {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("public path %s rejected with %d", path, rec.Code)
		}
	}

	// Protected path without a token is rejected.
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/hierarchy/requests/pending", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	// Garbage token is rejected.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/hierarchy/requests/pending", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}

	// Valid token passes and lands claims in the context.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/hierarchy/requests/pending", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, tm, domain.RoleAdmin))
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rec.Code)
	}
	if gotClaims == nil || gotClaims.UserID != "user-1" || gotClaims.Role != string(domain.RoleAdmin) {
		t.Fatalf("expected claims in context, got %+v", gotClaims)
	}
}

func TestRequireRoles(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", "workorbit", time.Hour)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	chain := JWTMiddleware(tm, nil)(RequireRoles(nil, nil, next, domain.RoleAdmin, domain.RoleHR))

	call := func(role domain.Role) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/hierarchy/requests/pending", nil)
		req.Header.Set("Authorization", "Bearer "+testToken(t, tm, role))
		chain.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := call(domain.RoleAdmin); code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", code)
	}
	if code := call(domain.RoleHR); code != http.StatusOK {
		t.Fatalf("expected 200 for hr, got %d", code)
	}
	if code := call(domain.RoleEmployee); code != http.StatusForbidden {
		t.Fatalf("expected 403 for employee, got %d", code)
	}
}

// The audit middleware wraps the mux, so it must recover the request id
// from the raw path rather than from routing.
func TestAuditMiddlewareRecordsDecisionID(t *testing.T) {
	var buf bytes.Buffer

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/hierarchy/requests/{id}/approve", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	chain := AuditMiddleware(bufferedAudit(&buf))(mux)

	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/hierarchy/requests/abc-123/approve", nil))

	out := buf.String()
	if !strings.Contains(out, "action=approve") {
		t.Fatalf("expected approve audit record, got %q", out)
	}
	if !strings.Contains(out, "resource_id=abc-123") {
		t.Fatalf("expected audit record to carry the request id, got %q", out)
	}

	buf.Reset()
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/hierarchy/requests/abc-123/reject", nil))
	if out := buf.String(); !strings.Contains(out, "resource_id=abc-123") {
		t.Fatalf("expected reject audit record to carry the request id, got %q", out)
	}
}

func TestRequireRolesAuditsDenial(t *testing.T) {
	var buf bytes.Buffer
	tm := auth.NewTokenManager("test-secret", "workorbit", time.Hour)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	chain := JWTMiddleware(tm, nil)(RequireRoles(nil, bufferedAudit(&buf), next, domain.RoleAdmin))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/hierarchy/requests/pending", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, tm, domain.RoleEmployee))
	chain.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "action=access_denied") || !strings.Contains(out, "actor_id=user-1") {
		t.Fatalf("expected denial in audit trail, got %q", out)
	}
}

func TestValidateJSONContentType(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	checked := ValidateJSONContentType(nil)(next)

	// POST with a form body is refused.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	checked.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415 for form body, got %d", rec.Code)
	}

	// PUT with no body passes; approve accepts an empty body.
	rec = httptest.NewRecorder()
	checked.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/hierarchy/requests/r1/approve", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for bodyless PUT, got %d", rec.Code)
	}

	// JSON body passes.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	checked.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for JSON body, got %d", rec.Code)
	}
}

func TestSanitizeInputs(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	checked := SanitizeInputs(nil)(next)

	rec := httptest.NewRecorder()
	checked.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/hierarchy/requests/pending?cursor=%3Cscript%3E", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for markup in query, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	checked.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/hierarchy/validate/org-code/ORG001", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for clean request, got %d", rec.Code)
	}
}

func TestRateLimitMiddlewareLogin(t *testing.T) {
	limiter := ratelimit.NewLimiter(100, time.Minute)
	defer limiter.Stop()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	limited := RateLimitMiddleware(limiter, 3, nil)(next)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		limited.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	limited.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after login limit, got %d", rec.Code)
	}

	// A different address still gets through.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.10:1234"
	limited.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for other address, got %d", rec.Code)
	}
}
