package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/passdepot/passdepot/internal/domain"
	"github.com/passdepot/passdepot/internal/repository/kv"
	"github.com/passdepot/passdepot/internal/service/account"
	"github.com/passdepot/passdepot/internal/service/category"
	"github.com/passdepot/passdepot/internal/service/user"
)

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T, storeHealth func(context.Context) error) *Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := kv.New(kv.NewMemoryStore(), "test")
	router := NewRouter(
		logger,
		account.New(repo, logger),
		category.New(repo, repo, logger),
		user.New(repo, logger, testSecret, time.Hour),
		nil,
		NewMemoryRateLimiter(),
		testSecret,
		time.Hour,
		storeHealth,
	)
	t.Cleanup(router.Close)
	return router
}

func doJSON(t *testing.T, router *Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return payload
}

func setupAndLogin(t *testing.T, router *Router) string {
	t.Helper()
	creds := map[string]string{"username": "admin", "password": "sw0rdfish"}
	if rec := doJSON(t, router, http.MethodPost, "/api/users/setup", "", creds); rec.Code != http.StatusCreated {
		t.Fatalf("setup status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec := doJSON(t, router, http.MethodPost, "/api/users/login", "", creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	token, _ := decodeBody(t, rec)["token"].(string)
	if token == "" {
		t.Fatal("login response missing token")
	}
	return token
}

func TestPreflightShortCircuits(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := doJSON(t, router, http.MethodOptions, "/api/accounts", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("preflight body = %q, want empty", rec.Body.String())
	}
}

func TestCORSHeadersOnEveryResponse(t *testing.T) {
	router := newTestRouter(t, nil)

	paths := []string{"/api/users/check", "/api/accounts", "/api/unknown"}
	for _, path := range paths {
		rec := doJSON(t, router, http.MethodGet, path, "", nil)
		headers := rec.Header()
		if got := headers.Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("%s: Allow-Origin = %q, want *", path, got)
		}
		if got := headers.Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, DELETE, OPTIONS" {
			t.Errorf("%s: Allow-Methods = %q", path, got)
		}
		if got := headers.Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization" {
			t.Errorf("%s: Allow-Headers = %q", path, got)
		}
	}
}

func TestUnknownAPIRouteReturnsNotFound(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/unknown", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if msg := decodeBody(t, rec)["error"]; msg != "Not Found" {
		t.Fatalf("error = %v, want Not Found", msg)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/users/check", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if msg := decodeBody(t, rec)["error"]; msg != "Method not allowed" {
		t.Fatalf("error = %v, want Method not allowed", msg)
	}
}

func TestAccountsRequireSession(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/accounts", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/accounts", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "bad"})
	cookieRec := httptest.NewRecorder()
	router.ServeHTTP(cookieRec, req)
	if cookieRec.Code != http.StatusUnauthorized {
		t.Fatalf("bad cookie: status = %d, want 401", cookieRec.Code)
	}
}

func TestSetupIsFirstComeFirstServed(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/users/check", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("check status = %d", rec.Code)
	}
	if set := decodeBody(t, rec)["isUserSet"]; set != false {
		t.Fatalf("isUserSet = %v before setup, want false", set)
	}

	creds := map[string]string{"username": "admin", "password": "sw0rdfish"}
	rec = doJSON(t, router, http.MethodPost, "/api/users/setup", "", creds)
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/users/check", "", nil)
	if set := decodeBody(t, rec)["isUserSet"]; set != true {
		t.Fatalf("isUserSet = %v after setup, want true", set)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/users/setup", "", creds)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second setup status = %d, want 409", rec.Code)
	}
}

func TestSetupValidation(t *testing.T) {
	router := newTestRouter(t, nil)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing fields", map[string]string{"username": "", "password": ""}},
		{"short username", map[string]string{"username": "ab", "password": "sw0rdfish"}},
		{"short password", map[string]string{"username": "admin", "password": "12345"}},
	}
	for _, tc := range cases {
		rec := doJSON(t, router, http.MethodPost, "/api/users/setup", "", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/users/setup", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed JSON: status = %d, want 400", rec.Code)
	}
}

func TestLoginIssuesSessionToken(t *testing.T) {
	router := newTestRouter(t, nil)

	creds := map[string]string{"username": "admin", "password": "sw0rdfish"}
	rec := doJSON(t, router, http.MethodPost, "/api/users/login", "", creds)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("login before setup: status = %d, want 404", rec.Code)
	}

	doJSON(t, router, http.MethodPost, "/api/users/setup", "", creds)

	rec = doJSON(t, router, http.MethodPost, "/api/users/login", "", map[string]string{"username": "admin", "password": "wrong-pass"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/users/login", "", creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	if payload["success"] != true || payload["username"] != "admin" {
		t.Fatalf("login payload = %v", payload)
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatal("login response missing token")
	}

	var sessionCookie *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == SessionCookieName {
			sessionCookie = cookie
		}
	}
	if sessionCookie == nil {
		t.Fatal("login did not set session cookie")
	}
	if sessionCookie.Value != token {
		t.Fatal("cookie value differs from token in body")
	}
	if !sessionCookie.HttpOnly {
		t.Fatal("session cookie not HttpOnly")
	}

	// The issued token gates the protected surface.
	if rec := doJSON(t, router, http.MethodGet, "/api/accounts", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("token rejected: status = %d", rec.Code)
	}
}

func TestAccountLifecycle(t *testing.T) {
	router := newTestRouter(t, nil)
	token := setupAndLogin(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/accounts", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list []domain.Account
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("fresh list has %d accounts", len(list))
	}

	create := domain.Account{Name: "mail", Username: "me@example.com", Password: "hunter2", CategoryID: "personal"}
	rec = doJSON(t, router, http.MethodPost, "/api/accounts", token, create)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var stored domain.Account
	if err := json.Unmarshal(rec.Body.Bytes(), &stored); err != nil {
		t.Fatalf("decode created account: %v", err)
	}
	if stored.ID == "" || stored.CreatedAt == "" {
		t.Fatalf("created account missing id/createdAt: %+v", stored)
	}

	// Full replacement: the omitted username must not survive.
	update := domain.Account{ID: stored.ID, Name: "mail-renamed", Password: "hunter3"}
	rec = doJSON(t, router, http.MethodPut, "/api/accounts", token, update)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, http.MethodGet, "/api/accounts", token, nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list has %d accounts after update", len(list))
	}
	if list[0].Name != "mail-renamed" || list[0].Username != "" {
		t.Fatalf("update was not a full replacement: %+v", list[0])
	}
	if list[0].UpdatedAt == "" {
		t.Fatal("update did not stamp updatedAt")
	}

	rec = doJSON(t, router, http.MethodPut, "/api/accounts", token, domain.Account{ID: "no-such-id", Name: "x"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("update unknown id: status = %d, want 404", rec.Code)
	}
	if msg := decodeBody(t, rec)["error"]; msg != "Account not found" {
		t.Fatalf("error = %v", msg)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/accounts", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("delete without id: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/accounts?id="+stored.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	// Deleting an absent account succeeds too.
	rec = doJSON(t, router, http.MethodDelete, "/api/accounts?id="+stored.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat delete status = %d, want 200", rec.Code)
	}
}

func TestCategoryDeleteCascades(t *testing.T) {
	router := newTestRouter(t, nil)
	token := setupAndLogin(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/categories", token, domain.Category{Name: "work", Icon: "briefcase"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category status = %d", rec.Code)
	}
	var created domain.Category
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode category: %v", err)
	}
	if created.ID == "" {
		t.Fatal("category missing id")
	}

	doJSON(t, router, http.MethodPost, "/api/accounts", token, domain.Account{Name: "vpn", CategoryID: created.ID})
	doJSON(t, router, http.MethodPost, "/api/accounts", token, domain.Account{Name: "jira", CategoryID: created.ID})
	doJSON(t, router, http.MethodPost, "/api/accounts", token, domain.Account{Name: "bank", CategoryID: "personal"})

	rec = doJSON(t, router, http.MethodDelete, "/api/categories?id="+created.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete category status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/accounts", token, nil)
	var accounts []domain.Account
	if err := json.Unmarshal(rec.Body.Bytes(), &accounts); err != nil {
		t.Fatalf("decode accounts: %v", err)
	}
	if len(accounts) != 1 || accounts[0].Name != "bank" {
		t.Fatalf("cascade left %+v", accounts)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/categories", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("delete without id: status = %d, want 400", rec.Code)
	}
}

func TestUserInfoAndPasswordChange(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/users/info", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("info before setup: status = %d, want 404", rec.Code)
	}

	token := setupAndLogin(t, router)

	rec = doJSON(t, router, http.MethodGet, "/api/users/info", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("info status = %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["username"] != "admin" {
		t.Fatalf("info payload = %v", payload)
	}
	if _, leaked := payload["passwordHash"]; leaked {
		t.Fatal("info response leaks password hash")
	}
	if _, leaked := payload["password"]; leaked {
		t.Fatal("info response leaks password")
	}

	rec = doJSON(t, router, http.MethodPost, "/api/users/password", token, map[string]string{
		"currentPassword": "wrong",
		"newPassword":     "n3w-secret",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong current password: status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/users/password", token, map[string]string{
		"currentPassword": "sw0rdfish",
		"newPassword":     "n3w-secret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("password change status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/users/login", "", map[string]string{"username": "admin", "password": "n3w-secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password: status = %d", rec.Code)
	}
}

func TestSetupRateLimit(t *testing.T) {
	router := newTestRouter(t, nil)

	var last *httptest.ResponseRecorder
	for i := 0; i < rateLimitSetup; i++ {
		last = doJSON(t, router, http.MethodPost, "/api/users/setup", "", map[string]string{})
		if last.Code == http.StatusTooManyRequests {
			t.Fatalf("limited after %d requests, limit is %d", i+1, rateLimitSetup)
		}
	}

	rec := doJSON(t, router, http.MethodPost, "/api/users/setup", "", map[string]string{})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("X-RateLimit-Remaining = %q, want 0", got)
	}
	if msg := decodeBody(t, rec)["error"]; msg != "rate limit exceeded" {
		t.Fatalf("error = %v", msg)
	}
}

func TestHealthz(t *testing.T) {
	healthy := newTestRouter(t, func(context.Context) error { return nil })
	rec := doJSON(t, healthy, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if status := decodeBody(t, rec)["status"]; status != "ok" {
		t.Fatalf("status field = %v", status)
	}

	degraded := newTestRouter(t, func(context.Context) error { return errors.New("store down") })
	rec = doJSON(t, degraded, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if status := decodeBody(t, rec)["status"]; status != "degraded" {
		t.Fatalf("status field = %v", status)
	}
}
