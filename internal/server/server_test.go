package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"token-authority/internal/authority"
	"token-authority/internal/kvstore"
	"token-authority/internal/profile"
	"token-authority/internal/security"
	"token-authority/internal/session"
	"token-authority/internal/user/domain"
	"token-authority/internal/user/repository"
	userservice "token-authority/internal/user/service"
)

// memRepo backs both the authority and the user service in handler tests.
type memRepo struct {
	byEmployeeID map[string]*domain.Employee
}

func (m *memRepo) FindByEmployeeID(_ context.Context, employeeID string) (*domain.Employee, error) {
	e, ok := m.byEmployeeID[employeeID]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *memRepo) Create(_ context.Context, e *domain.Employee) error {
	if _, ok := m.byEmployeeID[e.EmployeeID]; ok {
		return repository.ErrDuplicateEmployee
	}
	cp := *e
	m.byEmployeeID[e.EmployeeID] = &cp
	return nil
}

func (m *memRepo) Update(_ context.Context, e *domain.Employee) error {
	cp := *e
	m.byEmployeeID[e.EmployeeID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, employeeID string) error {
	delete(m.byEmployeeID, employeeID)
	return nil
}

func (m *memRepo) UpdatePassword(_ context.Context, employeeID, passwordHash string) error {
	if e, ok := m.byEmployeeID[employeeID]; ok {
		e.PasswordHash = passwordHash
	}
	return nil
}

func (m *memRepo) Search(_ context.Context, f repository.SearchFilter) ([]domain.Employee, int, error) {
	var out []domain.Employee
	for _, e := range m.byEmployeeID {
		if f.EmployeeID != "" && e.EmployeeID != f.EmployeeID {
			continue
		}
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (m *memRepo) ListIDsByScopeAndShift(_ context.Context, scope, shift string) ([]string, error) {
	return nil, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	codec, err := security.NewTestCodec()
	if err != nil {
		t.Fatalf("NewTestCodec: %v", err)
	}
	hasher := security.NewHasher(4)
	adminHash, _ := hasher.Hash([]byte("admin-password"))
	userHash, _ := hasher.Hash([]byte("user-password"))
	repo := &memRepo{byEmployeeID: map[string]*domain.Employee{
		"A001": {ID: "1", EmployeeID: "A001", PasswordHash: adminHash, Name: "Admin", Role: domain.RoleAdmin, Active: true},
		"E001": {ID: "2", EmployeeID: "E001", PasswordHash: userHash, Name: "Worker", Role: domain.RoleUser, Active: true},
	}}
	mem := kvstore.NewMemory()
	guard := session.NewGuard(mem)
	cache := profile.NewCache(mem, time.Hour)
	auth := authority.NewService(repo, hasher, codec, guard, cache, nil, nil)
	users := userservice.NewService(repo, hasher, cache, nil)

	srv := New(auth, users, nil, nil, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, bearer string, body any) *http.Response {
	t.Helper()
	return doJSON(t, http.MethodPost, url, bearer, body)
}

func doJSON(t *testing.T, method, url, bearer string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func login(t *testing.T, ts *httptest.Server, employeeID, password string) tokenPairResponse {
	t.Helper()
	resp := postJSON(t, ts.URL+"/auth/login", "", map[string]string{
		"employee_id": employeeID, "password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", employeeID, resp.StatusCode)
	}
	var pair tokenPairResponse
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return pair
}

func TestLoginLogoutFlow(t *testing.T) {
	ts := newTestServer(t)

	pair := login(t, ts, "E001", "user-password")
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("login returned empty tokens")
	}

	// Second login for the same employee conflicts.
	resp := postJSON(t, ts.URL+"/auth/login", "", map[string]string{
		"employee_id": "E001", "password": "user-password",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate login: status %d, want 409", resp.StatusCode)
	}

	// Logout frees the slot; a revoked token no longer authenticates.
	resp = postJSON(t, ts.URL+"/auth/logout", pair.AccessToken, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: status %d, want 204", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, ts.URL+"/users/search?employee_id=E001", pair.AccessToken, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("search with revoked token: status %d, want 401", resp.StatusCode)
	}
	login(t, ts, "E001", "user-password")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/auth/login", "", map[string]string{
		"employee_id": "E001", "password": "nope",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password: status %d, want 401", resp.StatusCode)
	}
	resp = postJSON(t, ts.URL+"/auth/login", "", map[string]string{
		"employee_id": "E999", "password": "user-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown principal: status %d, want 401", resp.StatusCode)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	ts := newTestServer(t)
	pair := login(t, ts, "E001", "user-password")

	resp := postJSON(t, ts.URL+"/auth/refresh", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: status %d, want 200", resp.StatusCode)
	}
	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode refresh response: %v", err)
	}
	if out.AccessToken == "" {
		t.Fatal("refresh returned no access token")
	}

	// The new access token authenticates; the superseded one no longer does.
	if resp := doJSON(t, http.MethodGet, ts.URL+"/users/search?employee_id=E001", out.AccessToken, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("search with rotated token: status %d, want 200", resp.StatusCode)
	}
	if resp := doJSON(t, http.MethodGet, ts.URL+"/users/search?employee_id=E001", pair.AccessToken, nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("search with superseded token: status %d, want 401", resp.StatusCode)
	}
	resp = postJSON(t, ts.URL+"/auth/refresh", "", map[string]string{
		"refresh_token": out.AccessToken,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("refresh with access token: status %d, want 400", resp.StatusCode)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	ts := newTestServer(t)
	userPair := login(t, ts, "E001", "user-password")
	adminPair := login(t, ts, "A001", "admin-password")

	body := map[string]string{"employee_id": "E777", "password": "brand-new-pass", "name": "New Hire"}

	if resp := postJSON(t, ts.URL+"/auth/register", "", body); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("register unauthenticated: status %d, want 401", resp.StatusCode)
	}
	if resp := postJSON(t, ts.URL+"/auth/register", userPair.AccessToken, body); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("register as USER: status %d, want 403", resp.StatusCode)
	}
	resp := postJSON(t, ts.URL+"/auth/register", adminPair.AccessToken, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register as ADMIN: status %d, want 201", resp.StatusCode)
	}
	var created employeeResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if created.EmployeeID != "E777" || created.Role != "USER" || !created.Active {
		t.Fatalf("register response = %+v", created)
	}

	// Duplicate registration conflicts.
	if resp := postJSON(t, ts.URL+"/auth/register", adminPair.AccessToken, body); resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register: status %d, want 409", resp.StatusCode)
	}

	// The new hire can log in right away.
	login(t, ts, "E777", "brand-new-pass")
}

func TestUpdateAndDelete(t *testing.T) {
	ts := newTestServer(t)
	adminPair := login(t, ts, "A001", "admin-password")

	resp := doJSON(t, http.MethodPatch, ts.URL+"/users", adminPair.AccessToken, map[string]any{
		"employee_id": "E001",
		"department":  "Packaging",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status %d, want 200", resp.StatusCode)
	}
	var updated employeeResponse
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		t.Fatalf("decode update response: %v", err)
	}
	if updated.Department != "Packaging" {
		t.Fatalf("update response = %+v", updated)
	}

	if resp := doJSON(t, http.MethodDelete, ts.URL+"/users?employee_id=E001", adminPair.AccessToken, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status %d, want 204", resp.StatusCode)
	}
	if resp := doJSON(t, http.MethodDelete, ts.URL+"/users?employee_id=E001", adminPair.AccessToken, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete: status %d, want 404", resp.StatusCode)
	}
}

func TestChangePasswordEndpoint(t *testing.T) {
	ts := newTestServer(t)
	pair := login(t, ts, "E001", "user-password")

	resp := postJSON(t, ts.URL+"/auth/password", pair.AccessToken, map[string]string{
		"current_password": "wrong", "new_password": "another-password",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("change password wrong current: status %d, want 400", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/auth/password", pair.AccessToken, map[string]string{
		"current_password": "user-password", "new_password": "another-password",
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("change password: status %d, want 204", resp.StatusCode)
	}

	// Old password stops working after logout, new one logs in.
	if resp := postJSON(t, ts.URL+"/auth/logout", pair.AccessToken, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: status %d", resp.StatusCode)
	}
	if resp := postJSON(t, ts.URL+"/auth/login", "", map[string]string{
		"employee_id": "E001", "password": "user-password",
	}); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("login with old password: status %d, want 401", resp.StatusCode)
	}
	login(t, ts, "E001", "another-password")
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp := doJSON(t, http.MethodGet, ts.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: status %d, want 200", resp.StatusCode)
	}
}
