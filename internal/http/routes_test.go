package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"task_manager/internal/config"
	"task_manager/internal/db"
	"task_manager/internal/repository"
	"task_manager/internal/service"
	"task_manager/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testApp struct {
	router *gin.Engine
	tasks  repository.TaskStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h, err := db.Open(t.Context(), "sqlite://"+filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(h.Close)
	require.NoError(t, h.Migrate(t.Context()))

	users, tasks := repository.New(h)
	tokens, err := service.NewTokenManager("test-secret", service.DefaultTokenTTL)
	require.NoError(t, err)
	hub := ws.NewHub()

	cfg := &config.Config{
		AppVersion:     "test",
		AllowedOrigins: []string{"http://localhost:5173"},
		APIRateLimit:   1000,
		APIRateWindow:  time.Minute,
		AuthRateLimit:  1000,
		AuthRateWindow: time.Minute,
	}

	router := NewRouter(Deps{
		Config: cfg,
		DB:     h,
		Auth:   service.NewAuthService(users, service.NewPasswordHasher(bcrypt.MinCost), tokens),
		Tasks:  service.NewTaskService(tasks, hub),
		Tokens: tokens,
		Hub:    hub,
	})
	return &testApp{router: router, tasks: tasks}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// signup registers and logs in a user, returning the bearer token.
func (a *testApp) signup(t *testing.T, email string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Test", "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[map[string]any](t, w)["token"].(string)
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ann", "email": "ann@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "User registered", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "ann@example.com", user["email"])
	assert.NotContains(t, w.Body.String(), "password")

	w = app.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ann", "email": "ann@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists", decode[map[string]string](t, w)["message"])

	w = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ann@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decode[map[string]string](t, w)["message"])

	w = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ann@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[map[string]any](t, w)
	token := login["token"].(string)
	assert.NotEmpty(t, token)
	assert.Equal(t, user["id"], login["user"].(map[string]any)["id"])

	w = app.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user["id"], decode[map[string]any](t, w)["id"])
}

func TestTaskRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/tasks/my", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "No token provided", decode[map[string]string](t, w)["message"])

	w = app.do(t, http.MethodGet, "/api/tasks/my", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token", decode[map[string]string](t, w)["message"])
}

func TestCreateTask(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "ann@example.com")

	w := app.do(t, http.MethodPost, "/api/tasks", token, map[string]string{
		"title": "Test Task", "priority": "HIGH", "dueDate": "2025-01-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := decode[map[string]any](t, w)
	assert.Equal(t, "Test Task", task["title"])
	assert.Equal(t, "OPEN", task["status"])
	assert.Equal(t, "HIGH", task["priority"])
	assert.Equal(t, true, task["isOverdue"])
	assert.Equal(t, task["createdById"], task["assignedToId"])
}

func TestCreateTaskWithoutTitlePersistsNothing(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "ann@example.com")

	w := app.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Title is required", decode[map[string]string](t, w)["message"])

	w = app.do(t, http.MethodGet, "/api/tasks/my", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestUpdateStatusAndDelete(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "ann@example.com")

	w := app.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"title": "A", "dueDate": "2020-01-01"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[map[string]any](t, w)["id"].(string)

	w = app.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"title": "B"})
	require.Equal(t, http.StatusCreated, w.Code)
	otherID := decode[map[string]any](t, w)["id"].(string)

	w = app.do(t, http.MethodPatch, "/api/tasks/"+id+"/status", token, map[string]string{"status": "COMPLETED"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[map[string]any](t, w)
	assert.Equal(t, "COMPLETED", updated["status"])
	assert.Equal(t, false, updated["isOverdue"])

	w = app.do(t, http.MethodPatch, "/api/tasks/"+id+"/status", token, map[string]string{"status": "DONE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodDelete, "/api/tasks/does-not-exist", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	_, err := app.tasks.GetByID(t.Context(), otherID)
	assert.NoError(t, err, "other records are untouched")

	w = app.do(t, http.MethodDelete, "/api/tasks/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Task deleted successfully", decode[map[string]string](t, w)["message"])

	w = app.do(t, http.MethodGet, "/api/tasks/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":1,"open":1,"inProgress":0,"completed":0,"overdue":0}`, w.Body.String())
}

func TestUpdateTask(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "ann@example.com")

	w := app.do(t, http.MethodPost, "/api/tasks", token, map[string]string{
		"title": "Draft", "description": "keep me", "dueDate": "2099-01-01",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[map[string]any](t, w)["id"].(string)

	w = app.do(t, http.MethodPut, "/api/tasks/"+id, token, map[string]string{"title": "Final", "priority": "LOW"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	task := decode[map[string]any](t, w)
	assert.Equal(t, "Final", task["title"])
	assert.Equal(t, "keep me", task["description"])
	assert.Equal(t, "LOW", task["priority"])
	assert.Nil(t, task["dueDate"])

	w = app.do(t, http.MethodPut, "/api/tasks/missing", token, map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOtherUsersCannotTouchTasks(t *testing.T) {
	app := newTestApp(t)
	owner := app.signup(t, "owner@example.com")
	intruder := app.signup(t, "intruder@example.com")

	w := app.do(t, http.MethodPost, "/api/tasks", owner, map[string]string{"title": "private"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[map[string]any](t, w)["id"].(string)

	w = app.do(t, http.MethodGet, "/api/tasks/my", intruder, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = app.do(t, http.MethodPut, "/api/tasks/"+id, intruder, map[string]string{"title": "mine now"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = app.do(t, http.MethodPatch, "/api/tasks/"+id+"/status", intruder, map[string]string{"status": "COMPLETED"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = app.do(t, http.MethodDelete, "/api/tasks/"+id, intruder, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	stored, err := app.tasks.GetByID(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, "private", stored.Title)
}

func TestListQueryValidation(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "ann@example.com")

	w := app.do(t, http.MethodGet, "/api/tasks/my?sort=SIDEWAYS", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodGet, "/api/tasks/my?status=OPEN&sort=DUE_SOON", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "API running", w.Body.String())

	for _, path := range []string{"/health", "/healthz", "/readyz"} {
		w := app.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w = app.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
