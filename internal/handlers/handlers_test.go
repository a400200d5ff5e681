package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/robolab-backend/internal/handlers"
	"github.com/AnshRaj112/robolab-backend/internal/models"
	"github.com/AnshRaj112/robolab-backend/internal/routes"
	"github.com/AnshRaj112/robolab-backend/internal/services"
)

// newTestServer wires the full HTTP stack against miniredis, with no remote
// store: the facade runs in local-only mode, like a lab machine offline.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	local := services.NewLocalStore(rdb, models.DefaultAdminEmail, "ralab")
	syncSvc := services.NewSyncService(nil, local, models.DefaultAdminEmail, "ralab")
	syncSvc.Initialize(context.Background())
	authSvc := services.NewAuthService(syncSvc, local)

	h := handlers.New(authSvc, syncSvc, nil, nil)
	r := chi.NewRouter()
	routes.SetupRoutes(r, h)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(handlers.SessionTokenHeader, token)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env) // plain-text errors leave the envelope zero
	return resp.StatusCode, env
}

func loginAdmin(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	status, env := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    models.DefaultAdminEmail,
		"password": "ralab",
	})
	if status != http.StatusOK {
		t.Fatalf("admin login failed with status %d: %s", status, env.Message)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("no token in login response: %s", env.Data)
	}
	return data.Token
}

func registerStudent(t *testing.T, srv *httptest.Server, email string) (string, models.User) {
	t.Helper()
	status, env := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Test Student",
		"email":    email,
		"password": "hunter2",
	})
	if status != http.StatusCreated {
		t.Fatalf("registration failed with status %d: %s", status, env.Message)
	}
	var data struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	return data.Token, data.User
}

func componentAvailability(t *testing.T, srv *httptest.Server, token, componentID string) int {
	t.Helper()
	_, env := doJSON(t, srv, http.MethodGet, "/api/components", token, nil)
	var list []models.Component
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatal(err)
	}
	for _, c := range list {
		if c.ID == componentID {
			return c.AvailableQuantity
		}
	}
	t.Fatalf("component %s not found", componentID)
	return 0
}

func TestAuthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	// Unauthenticated inventory read is rejected.
	if status, _ := doJSON(t, srv, http.MethodGet, "/api/components", "", nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", status)
	}

	token, _ := registerStudent(t, srv, "mira@example.com")

	// Duplicate registration conflicts.
	if status, _ := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Again", "email": "mira@example.com", "password": "x",
	}); status != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate email, got %d", status)
	}

	// Session restore round-trip.
	if status, _ := doJSON(t, srv, http.MethodGet, "/api/auth/me", token, nil); status != http.StatusOK {
		t.Fatalf("expected 200 from /me with a fresh token, got %d", status)
	}

	// Logout, then the token is dead.
	if status, _ := doJSON(t, srv, http.MethodPost, "/api/auth/logout", token, nil); status != http.StatusOK {
		t.Fatal("logout should succeed")
	}
	if status, _ := doJSON(t, srv, http.MethodGet, "/api/auth/me", token, nil); status != http.StatusUnauthorized {
		t.Fatal("a cleared token must not restore a session")
	}

	// Bad credentials.
	if status, _ := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "mira@example.com", "password": "wrong",
	}); status != http.StatusUnauthorized {
		t.Fatal("wrong password must be rejected")
	}
}

func TestComponentAdminGuard(t *testing.T) {
	srv := newTestServer(t)
	student, _ := registerStudent(t, srv, "mira@example.com")

	status, _ := doJSON(t, srv, http.MethodPost, "/api/components", student, models.Component{Name: "Servo", TotalQuantity: 3})
	if status != http.StatusForbidden {
		t.Fatalf("students must not create components, got %d", status)
	}

	admin := loginAdmin(t, srv)
	status, env := doJSON(t, srv, http.MethodPost, "/api/components", admin, models.Component{Name: "Servo", TotalQuantity: 3})
	if status != http.StatusCreated {
		t.Fatalf("admin create failed with %d: %s", status, env.Message)
	}

	_, env = doJSON(t, srv, http.MethodGet, "/api/components", student, nil)
	var list []models.Component
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatal(err)
	}
	// seeded Arduino plus the new servo
	if len(list) != 2 {
		t.Fatalf("expected 2 components, got %d", len(list))
	}
}

func TestBorrowRequestLifecycle(t *testing.T) {
	srv := newTestServer(t)
	student, _ := registerStudent(t, srv, "mira@example.com")
	admin := loginAdmin(t, srv)

	// Student requests 4 of the seeded Arduino (stock 10).
	status, env := doJSON(t, srv, http.MethodPost, "/api/requests", student, map[string]interface{}{
		"component_id": "component-1",
		"quantity":     4,
	})
	if status != http.StatusCreated {
		t.Fatalf("request creation failed with %d: %s", status, env.Message)
	}
	var created models.BorrowRequest
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatal(err)
	}
	if created.Status != models.RequestPending || created.ComponentName != "Arduino Uno R3" {
		t.Fatalf("unexpected request %+v", created)
	}

	// Approval decrements availability.
	status, _ = doJSON(t, srv, http.MethodPut, "/api/requests/decide", admin, map[string]interface{}{
		"id": created.ID, "approve": true,
	})
	if status != http.StatusOK {
		t.Fatalf("approval failed with %d", status)
	}
	if got := componentAvailability(t, srv, admin, "component-1"); got != 6 {
		t.Fatalf("expected availability 6 after approving 4, got %d", got)
	}

	// Double-deciding conflicts.
	if status, _ = doJSON(t, srv, http.MethodPut, "/api/requests/decide", admin, map[string]interface{}{
		"id": created.ID, "approve": false,
	}); status != http.StatusConflict {
		t.Fatalf("expected 409 on re-decide, got %d", status)
	}

	// Return puts the units back.
	if status, _ = doJSON(t, srv, http.MethodPut, "/api/requests/return", admin, map[string]string{"id": created.ID}); status != http.StatusOK {
		t.Fatalf("return failed with %d", status)
	}
	if got := componentAvailability(t, srv, admin, "component-1"); got != 10 {
		t.Fatalf("expected availability back to 10, got %d", got)
	}

	// The student got a decision notification.
	_, env = doJSON(t, srv, http.MethodGet, "/api/notifications", student, nil)
	var notifications []models.Notification
	if err := json.Unmarshal(env.Data, &notifications); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, n := range notifications {
		if strings.Contains(n.Title, "approved") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an approval notification, got %v", notifications)
	}
}

func TestApprovalRejectsOverdraw(t *testing.T) {
	srv := newTestServer(t)
	student, _ := registerStudent(t, srv, "mira@example.com")
	admin := loginAdmin(t, srv)

	_, env := doJSON(t, srv, http.MethodPost, "/api/requests", student, map[string]interface{}{
		"component_id": "component-1",
		"quantity":     99,
	})
	var created models.BorrowRequest
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatal(err)
	}

	status, _ := doJSON(t, srv, http.MethodPut, "/api/requests/decide", admin, map[string]interface{}{
		"id": created.ID, "approve": true,
	})
	if status != http.StatusConflict {
		t.Fatalf("approving beyond availability must conflict, got %d", status)
	}
	if got := componentAvailability(t, srv, admin, "component-1"); got != 10 {
		t.Fatalf("failed approval must not touch availability, got %d", got)
	}
}

func TestAdminEndpoints(t *testing.T) {
	srv := newTestServer(t)
	registerStudent(t, srv, "mira@example.com")
	admin := loginAdmin(t, srv)

	_, env := doJSON(t, srv, http.MethodGet, "/api/admin/stats", admin, nil)
	var stats services.SystemStats
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalUsers != 2 || stats.TotalComponents != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	// admin and the freshly-registered student are both signed in
	if stats.OnlineUsers != 2 {
		t.Fatalf("expected 2 online users, got %d", stats.OnlineUsers)
	}

	// CSV export carries both sessions.
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/admin/sessions/export", nil)
	req.Header.Set(handlers.SessionTokenHeader, admin)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv, got %q", ct)
	}

	// Connectivity toggle reports the facade state; with no remote store the
	// remote side stays disabled.
	status, env := doJSON(t, srv, http.MethodPost, "/api/admin/connectivity", admin, map[string]bool{"online": false})
	if status != http.StatusOK {
		t.Fatalf("connectivity toggle failed with %d", status)
	}
	var conn map[string]bool
	if err := json.Unmarshal(env.Data, &conn); err != nil {
		t.Fatal(err)
	}
	if conn["online"] || conn["remote_enabled"] {
		t.Fatalf("expected offline local-only state, got %v", conn)
	}
}
