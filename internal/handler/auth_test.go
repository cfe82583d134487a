package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/citizenapp/citizenapp/internal/auth"
	"github.com/citizenapp/citizenapp/internal/metrics"
	"github.com/citizenapp/citizenapp/internal/middleware"
	"github.com/citizenapp/citizenapp/internal/service"
	"github.com/citizenapp/citizenapp/internal/testutil"
)

// newTestRouter wires the API the same way cmd/api does, minus the
// network, database and Redis.
func newTestRouter(t *testing.T) (*chi.Mux, *testutil.MemStore) {
	t.Helper()

	codec, err := auth.NewCodec("handler-test-secret", "HS256", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	store := testutil.NewMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := metrics.NewInMemory()
	account := service.NewAccountService(store, codec, recorder)

	h := New()
	authHandler := NewAuthHandler(logger, account)
	userHandler := NewUserHandler(logger, account)
	metricsHandler := NewMetricsHandler(recorder)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Get("/", h.Root)
	r.Get("/metrics", metricsHandler.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(middleware.AuthConfig{
				Logger:  logger,
				Codec:   codec,
				Store:   store,
				Metrics: recorder,
			}))
			r.Get("/auth/me", authHandler.Me)
			r.Get("/users", userHandler.List)
		})
	})

	return r, store
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerBody(name, email, phone, password string) map[string]string {
	return map[string]string{
		"name":     name,
		"email":    email,
		"phone_no": phone,
		"password": password,
	}
}

func TestRegisterEndpoint(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/register",
		registerBody("Alice", "a@x.com", "555-0100", "pw123"), nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var user map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if user["id"] != float64(1) {
		t.Errorf("expected id 1, got %v", user["id"])
	}
	if user["name"] != "Alice" || user["email"] != "a@x.com" || user["phone_no"] != "555-0100" {
		t.Errorf("unexpected user fields: %v", user)
	}
	if _, ok := user["created_at"]; !ok {
		t.Error("expected created_at in response")
	}

	// The hash must never appear in any response, under any key.
	if _, ok := user["password_hash"]; ok {
		t.Error("password_hash leaked in response")
	}
	if strings.Contains(rec.Body.String(), "argon2id") {
		t.Error("password digest leaked in response body")
	}
}

func TestRegisterEndpoint_Duplicates(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	if rec := doJSON(t, router, http.MethodPost, "/api/auth/register",
		registerBody("Alice", "a@x.com", "555-0100", "pw123"), nil); rec.Code != http.StatusCreated {
		t.Fatalf("setup register failed: %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/auth/register",
		registerBody("Imposter", "a@x.com", "555-0999", "other"), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate email: expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "EMAIL_TAKEN") {
		t.Errorf("expected EMAIL_TAKEN, got %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/auth/register",
		registerBody("Bob", "b@x.com", "555-0100", "pw456"), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate phone: expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "PHONE_TAKEN") {
		t.Errorf("expected PHONE_TAKEN, got %s", rec.Body.String())
	}
}

func TestRegisterEndpoint_Validation(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"empty name", registerBody("", "a@x.com", "555-0100", "pw")},
		{"bad email", registerBody("Alice", "not-an-email", "555-0100", "pw")},
		{"empty phone", registerBody("Alice", "a@x.com", "", "pw")},
		{"empty password", registerBody("Alice", "a@x.com", "555-0100", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/auth/register", tt.body, nil)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("expected 422, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}

	// Undecodable body is a plain bad request.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	if rec := doJSON(t, router, http.MethodPost, "/api/auth/register",
		registerBody("Alice", "a@x.com", "555-0100", "pw123"), nil); rec.Code != http.StatusCreated {
		t.Fatalf("setup register failed: %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "a@x.com", "password": "pw123"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var tokenResp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &tokenResp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if tokenResp["access_token"] == "" {
		t.Error("expected access_token in response")
	}
	if tokenResp["token_type"] != "bearer" {
		t.Errorf("expected token_type bearer, got %q", tokenResp["token_type"])
	}
}

func TestLoginEndpoint_FailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	if rec := doJSON(t, router, http.MethodPost, "/api/auth/register",
		registerBody("Alice", "a@x.com", "555-0100", "pw123"), nil); rec.Code != http.StatusCreated {
		t.Fatalf("setup register failed: %d", rec.Code)
	}

	wrongPassword := doJSON(t, router, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "a@x.com", "password": "wrong"}, nil)
	unknownEmail := doJSON(t, router, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ghost@x.com", "password": "pw123"}, nil)

	if wrongPassword.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", wrongPassword.Code)
	}
	if unknownEmail.Code != http.StatusUnauthorized {
		t.Errorf("unknown email: expected 401, got %d", unknownEmail.Code)
	}
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Errorf("login failure bodies differ: %q vs %q",
			wrongPassword.Body.String(), unknownEmail.Body.String())
	}
}

func TestLogoutEndpoint(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/logout", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Successfully logged out") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestUsersEndpoint_RequiresAuth(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/users", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without Authorization header, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "@") {
		t.Error("unauthorized response must not contain user data")
	}
}

func TestRegisterLoginMeScenario(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	// register("Alice", "a@x.com", "555-0100", "pw123") -> 201, id=1
	rec := doJSON(t, router, http.MethodPost, "/api/auth/register",
		registerBody("Alice", "a@x.com", "555-0100", "pw123"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", rec.Code)
	}
	var created map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal register response: %v", err)
	}
	if created["id"] != float64(1) {
		t.Fatalf("expected user.id=1, got %v", created["id"])
	}

	// login -> 200, token T
	rec = doJSON(t, router, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "a@x.com", "password": "pw123"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", rec.Code)
	}
	var tokenResp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &tokenResp); err != nil {
		t.Fatalf("unmarshal login response: %v", err)
	}
	token := tokenResp["access_token"]

	// GET /api/auth/me with Bearer T -> 200 + Alice's record
	rec = doJSON(t, router, http.MethodGet, "/api/auth/me", nil,
		map[string]string{"Authorization": "Bearer " + token})
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var me map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("unmarshal me response: %v", err)
	}
	if me["name"] != "Alice" || me["email"] != "a@x.com" {
		t.Errorf("unexpected me record: %v", me)
	}

	// GET /api/auth/me with a corrupted token -> 401
	rec = doJSON(t, router, http.MethodGet, "/api/auth/me", nil,
		map[string]string{"Authorization": "Bearer " + token + "-corrupted"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("corrupted token: expected 401, got %d", rec.Code)
	}

	// GET /api/users with Bearer T -> 200 + the one registered user
	rec = doJSON(t, router, http.MethodGet, "/api/users", nil,
		map[string]string{"Authorization": "Bearer " + token})
	if rec.Code != http.StatusOK {
		t.Fatalf("users: expected 200, got %d", rec.Code)
	}
	var users []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatalf("unmarshal users response: %v", err)
	}
	if len(users) != 1 || users[0]["email"] != "a@x.com" {
		t.Errorf("unexpected users list: %v", users)
	}
}

func TestRootAndMetricsEndpoints(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("root: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "running") {
		t.Errorf("unexpected root body: %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/metrics", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "citizenapp_users_registered_total") {
		t.Errorf("unexpected metrics body: %s", rec.Body.String())
	}
}
