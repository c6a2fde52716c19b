package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/dvrmln/taskdeck-be/internal/api"
	"github.com/dvrmln/taskdeck-be/internal/auth"
	"github.com/dvrmln/taskdeck-be/internal/config"
	"github.com/dvrmln/taskdeck-be/internal/database"
	"github.com/dvrmln/taskdeck-be/internal/services"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		AllowedOrigin: "http://localhost:3000",
		AuthRateRPS:   1000, // effectively off for tests
		AuthRateBurst: 1000,
	}
	tokens := auth.NewTokenService("test-secret")
	return api.NewRouter(cfg, tokens, services.NewUserService(db), services.NewTaskService(db))
}

// do sends a JSON request through the router and decodes the envelope.
func do(t *testing.T, mux *chi.Mux, method, target, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	envelope := map[string]interface{}{}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, envelope
}

func registerAndLogin(t *testing.T, mux *chi.Mux, email string) string {
	t.Helper()
	status, env := do(t, mux, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Test User", "email": email, "password": "pa55word!",
	})
	if status != http.StatusCreated {
		t.Fatalf("register status = %d, body = %v", status, env)
	}
	status, env = do(t, mux, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "pa55word!",
	})
	if status != http.StatusOK {
		t.Fatalf("login status = %d, body = %v", status, env)
	}
	token, _ := env["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	return token
}

func TestRegisterIssuesValidToken(t *testing.T) {
	mux := newTestRouter(t)

	status, env := do(t, mux, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "pa55word!",
	})
	if status != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %v)", status, env)
	}
	if env["success"] != true {
		t.Errorf("success = %v, want true", env["success"])
	}
	token, _ := env["token"].(string)
	if token == "" {
		t.Fatal("register returned no token")
	}

	// The token's subject must match the stored account.
	claims, err := auth.NewTokenService("test-secret").Verify(token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	status, env = do(t, mux, http.MethodGet, "/api/v1/auth/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("me status = %d, body = %v", status, env)
	}
	user, _ := env["user"].(map[string]interface{})
	if user["id"] != claims.UserID {
		t.Errorf("token subject %q does not match profile id %v", claims.UserID, user["id"])
	}
}

func TestRegisterDuplicateEmailRejected(t *testing.T) {
	mux := newTestRouter(t)
	payload := map[string]string{"name": "Ada", "email": "ada@example.com", "password": "pa55word!"}

	if status, _ := do(t, mux, http.MethodPost, "/api/v1/auth/register", "", payload); status != http.StatusCreated {
		t.Fatalf("first register status = %d", status)
	}
	status, env := do(t, mux, http.MethodPost, "/api/v1/auth/register", "", payload)
	if status != http.StatusBadRequest {
		t.Errorf("duplicate register status = %d, want 400", status)
	}
	if env["success"] != false {
		t.Errorf("success = %v, want false", env["success"])
	}
}

func TestLoginFailuresAreGeneric400(t *testing.T) {
	mux := newTestRouter(t)
	registerAndLogin(t, mux, "ada@example.com")

	for name, payload := range map[string]map[string]string{
		"unknown email":  {"email": "nobody@example.com", "password": "pa55word!"},
		"wrong password": {"email": "ada@example.com", "password": "wrong-pass1!"},
	} {
		status, env := do(t, mux, http.MethodPost, "/api/v1/auth/login", "", payload)
		if status != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, status)
		}
		if env["message"] != "Invalid email or password." {
			t.Errorf("%s: message = %v, want the generic one", name, env["message"])
		}
		if _, hasToken := env["token"]; hasToken {
			t.Errorf("%s: a token was issued on failure", name)
		}
	}
}

func TestTasksRequireBearerToken(t *testing.T) {
	mux := newTestRouter(t)

	for _, target := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/tasks"},
		{http.MethodPost, "/api/v1/tasks"},
		{http.MethodPut, "/api/v1/tasks?taskId=x"},
		{http.MethodDelete, "/api/v1/tasks?taskId=x"},
		{http.MethodGet, "/api/v1/tasks/stats"},
	} {
		status, env := do(t, mux, target.method, target.path, "", nil)
		if status != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status = %d, want 401", target.method, target.path, status)
		}
		if env["success"] != false {
			t.Errorf("%s %s: success = %v, want false", target.method, target.path, env["success"])
		}

		status, _ = do(t, mux, target.method, target.path, "garbage-token", nil)
		if status != http.StatusUnauthorized {
			t.Errorf("%s %s with bad token: status = %d, want 401", target.method, target.path, status)
		}
	}
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	mux := newTestRouter(t)
	token := registerAndLogin(t, mux, "ada@example.com")

	// Create a single task.
	status, env := do(t, mux, http.MethodPost, "/api/v1/tasks", token, map[string]interface{}{
		"title": "T", "description": "D", "priority": "high", "tags": []string{"x"},
	})
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, body = %v", status, env)
	}
	if env["message"] != "Task created successfully!" {
		t.Errorf("create message = %v", env["message"])
	}
	tasks := env["tasks"].([]interface{})
	taskID := tasks[0].(map[string]interface{})["id"].(string)

	// List it back with full field fidelity.
	status, env = do(t, mux, http.MethodGet, "/api/v1/tasks", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	listed := env["tasks"].([]interface{})
	if len(listed) != 1 {
		t.Fatalf("list returned %d tasks, want 1", len(listed))
	}
	got := listed[0].(map[string]interface{})
	if got["title"] != "T" || got["description"] != "D" || got["priority"] != "high" {
		t.Errorf("listed task fields wrong: %v", got)
	}
	if got["isCompleted"] != false {
		t.Errorf("isCompleted = %v, want false", got["isCompleted"])
	}
	pagination := env["pagination"].(map[string]interface{})
	if pagination["total"] != float64(1) || pagination["pages"] != float64(1) {
		t.Errorf("pagination = %v", pagination)
	}

	// An empty body toggles completion.
	status, env = do(t, mux, http.MethodPut, "/api/v1/tasks?taskId="+taskID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("toggle status = %d, body = %v", status, env)
	}
	if env["message"] != "Task marked as completed!" {
		t.Errorf("toggle message = %v", env["message"])
	}
	task := env["task"].(map[string]interface{})
	if task["isCompleted"] != true || task["completedAt"] == nil {
		t.Errorf("toggle did not complete the task: %v", task)
	}

	// Toggling again reverts it.
	status, env = do(t, mux, http.MethodPut, "/api/v1/tasks?taskId="+taskID, token, map[string]interface{}{})
	if status != http.StatusOK {
		t.Fatalf("second toggle status = %d", status)
	}
	if env["message"] != "Task marked as pending!" {
		t.Errorf("second toggle message = %v", env["message"])
	}
	task = env["task"].(map[string]interface{})
	if task["isCompleted"] != false || task["completedAt"] != nil {
		t.Errorf("second toggle did not revert the task: %v", task)
	}

	// Field update keeps the generic message.
	status, env = do(t, mux, http.MethodPut, "/api/v1/tasks?taskId="+taskID, token, map[string]interface{}{
		"title": "Renamed",
	})
	if status != http.StatusOK {
		t.Fatalf("update status = %d, body = %v", status, env)
	}
	if env["message"] != "Task updated successfully!" {
		t.Errorf("update message = %v", env["message"])
	}

	// Missing taskId is a 400, not a 404.
	if status, _ := do(t, mux, http.MethodPut, "/api/v1/tasks", token, nil); status != http.StatusBadRequest {
		t.Errorf("update without taskId: status = %d, want 400", status)
	}
	if status, _ := do(t, mux, http.MethodDelete, "/api/v1/tasks", token, nil); status != http.StatusBadRequest {
		t.Errorf("delete without taskId: status = %d, want 400", status)
	}

	// Delete, then confirm it stays gone.
	status, env = do(t, mux, http.MethodDelete, "/api/v1/tasks?taskId="+taskID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("delete status = %d, body = %v", status, env)
	}
	if env["message"] != "Task deleted successfully!" {
		t.Errorf("delete message = %v", env["message"])
	}
	if status, _ := do(t, mux, http.MethodDelete, "/api/v1/tasks?taskId="+taskID, token, nil); status != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", status)
	}
	if status, _ := do(t, mux, http.MethodPut, "/api/v1/tasks?taskId="+taskID, token, nil); status != http.StatusNotFound {
		t.Errorf("update after delete status = %d, want 404", status)
	}
}

func TestBatchCreateOverHTTP(t *testing.T) {
	mux := newTestRouter(t)
	token := registerAndLogin(t, mux, "ada@example.com")

	status, env := do(t, mux, http.MethodPost, "/api/v1/tasks", token, []map[string]string{
		{"title": "one", "description": "d"},
		{"title": "two", "description": "d"},
		{"title": "three", "description": "d"},
	})
	if status != http.StatusCreated {
		t.Fatalf("batch create status = %d, body = %v", status, env)
	}
	if env["message"] != "3 tasks created successfully!" {
		t.Errorf("batch message = %v", env["message"])
	}

	// A batch with one invalid item inserts nothing.
	status, env = do(t, mux, http.MethodPost, "/api/v1/tasks", token, []map[string]string{
		{"title": "four", "description": "d"},
		{"title": "five"},
	})
	if status != http.StatusBadRequest {
		t.Fatalf("invalid batch status = %d, want 400 (body %v)", status, env)
	}

	status, env = do(t, mux, http.MethodGet, "/api/v1/tasks", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	if total := env["pagination"].(map[string]interface{})["total"]; total != float64(3) {
		t.Errorf("total = %v, want 3 (failed batch must insert nothing)", total)
	}
}

func TestStatsOverHTTP(t *testing.T) {
	mux := newTestRouter(t)
	token := registerAndLogin(t, mux, "ada@example.com")

	if status, env := do(t, mux, http.MethodPost, "/api/v1/tasks", token, []map[string]string{
		{"title": "a", "description": "d", "priority": "high"},
		{"title": "b", "description": "d"},
	}); status != http.StatusCreated {
		t.Fatalf("create status = %d, body = %v", status, env)
	}

	status, env := do(t, mux, http.MethodGet, "/api/v1/tasks/stats", token, nil)
	if status != http.StatusOK {
		t.Fatalf("stats status = %d, body = %v", status, env)
	}
	stats := env["stats"].(map[string]interface{})
	want := map[string]float64{"total": 2, "completed": 0, "pending": 2, "highPriority": 1}
	for key, value := range want {
		if stats[key] != value {
			t.Errorf("stats[%s] = %v, want %v", key, stats[key], value)
		}
	}
}

func TestOwnershipIsolationOverHTTP(t *testing.T) {
	mux := newTestRouter(t)
	aliceToken := registerAndLogin(t, mux, "alice@example.com")
	bobToken := registerAndLogin(t, mux, "bob@example.com")

	status, env := do(t, mux, http.MethodPost, "/api/v1/tasks", aliceToken, map[string]string{
		"title": "private", "description": "alice only",
	})
	if status != http.StatusCreated {
		t.Fatalf("create status = %d", status)
	}
	taskID := env["tasks"].([]interface{})[0].(map[string]interface{})["id"].(string)

	// Bob probing alice's task id gets a 404, same as a nonexistent id.
	target := fmt.Sprintf("/api/v1/tasks?taskId=%s", taskID)
	if status, _ := do(t, mux, http.MethodPut, target, bobToken, nil); status != http.StatusNotFound {
		t.Errorf("bob update status = %d, want 404", status)
	}
	if status, _ := do(t, mux, http.MethodDelete, target, bobToken, nil); status != http.StatusNotFound {
		t.Errorf("bob delete status = %d, want 404", status)
	}

	status, env = do(t, mux, http.MethodGet, "/api/v1/tasks", bobToken, nil)
	if status != http.StatusOK {
		t.Fatalf("bob list status = %d", status)
	}
	if listed := env["tasks"].([]interface{}); len(listed) != 0 {
		t.Errorf("bob can see alice's tasks: %v", listed)
	}
}
