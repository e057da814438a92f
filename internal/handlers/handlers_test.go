package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"jobtrack/internal/auth"
	"jobtrack/internal/authflow"
	"jobtrack/internal/config"
	"jobtrack/internal/credentials"
	"jobtrack/internal/dashboard"
	"jobtrack/internal/database"
	"jobtrack/internal/gmail"
	"jobtrack/internal/jobs"
	"jobtrack/internal/locks"
	"jobtrack/internal/maps"
	"jobtrack/internal/tasks"
)

type fakeMail struct {
	summaries []gmail.Summary
	err       error
}

func (f *fakeMail) ListUnread(ctx context.Context, identity string, cred *credentials.Credential) ([]gmail.Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.summaries, nil
}

type testEnv struct {
	router    *mux.Router
	credStore credentials.Store
	mail      *fakeMail
	authToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:          "test-jwt-secret-that-is-long-enough!",
		AdminUsername:      "admin",
		AdminPasswordHash:  string(hash),
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		GoogleRedirectURL:  "https://example.com/oauth2callback",
		GoogleScopes:       []string{"https://www.googleapis.com/auth/gmail.readonly"},
		HighlightKeyword:   "unfortunately",
	}

	db, err := database.InitSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	credStore := credentials.NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	refresher := credentials.NewRefresher(credStore, locks.NewKeyedMutex(), nil)
	flow := authflow.NewFlow(cfg, authflow.NewMemoryStateStore(), credStore)
	mail := &fakeMail{}
	dashboardSvc := dashboard.NewService(credStore, refresher, flow, mail)

	authHandler := auth.New(cfg)
	h := New(cfg, authHandler, flow, dashboardSvc,
		jobs.NewRepo(db), tasks.NewRepo(db), maps.NewClient("", nil))

	router := mux.NewRouter()
	h.RegisterRoutes(router)

	token, err := authHandler.Login("admin", "correct-horse")
	require.NoError(t, err)

	return &testEnv{
		router:    router,
		credStore: credStore,
		mail:      mail,
		authToken: token,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, authenticated bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if authenticated {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: e.authToken})
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/login",
		map[string]string{"username": "admin", "password": "correct-horse"}, false)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	rec = env.do(t, http.MethodPost, "/api/login",
		map[string]string{"username": "admin", "password": "wrong"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/dashboard", "/api/jobs", "/api/tasks"} {
		rec := env.do(t, http.MethodGet, path, nil, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestDashboardWithoutCredentialReturnsAuthURL(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/dashboard", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Emails           []gmail.Summary `json:"emails"`
		AuthorizationURL string          `json:"authorization_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Emails)
	assert.Contains(t, resp.AuthorizationURL, "access_type=offline")
	assert.Contains(t, resp.AuthorizationURL, "state=")
}

func TestDashboardWithCredential(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.credStore.Save(context.Background(), "admin", &credentials.Credential{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(time.Hour),
	}))
	env.mail.summaries = []gmail.Summary{
		{ID: "m1", Sender: "recruiter@example.com", Subject: "Update", Highlight: true},
	}

	rec := env.do(t, http.MethodGet, "/api/dashboard", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Emails           []gmail.Summary `json:"emails"`
		AuthorizationURL string          `json:"authorization_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Emails, 1)
	assert.Equal(t, "m1", resp.Emails[0].ID)
	assert.True(t, resp.Emails[0].Highlight)
	assert.Empty(t, resp.AuthorizationURL)
}

func TestOAuthAuthorizeRedirects(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/oauth/authorize", nil, true)
	require.Equal(t, http.StatusFound, rec.Code)

	location := rec.Header().Get("Location")
	assert.Contains(t, location, "access_type=offline")
	assert.Contains(t, location, "include_granted_scopes=true")
}

func TestOAuthCallbackRejectsBadState(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/oauth2callback?code=abc&state=forged", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "forged", "provider details must not echo back")
}

func TestOAuthCallbackMissingCode(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/oauth2callback?state=whatever", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOAuthCallbackProviderDenied(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/oauth2callback?error=access_denied", nil, false)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/?auth=denied", rec.Header().Get("Location"))
}

func TestJobsCRUD(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/jobs", map[string]interface{}{
		"organisation": "Acme",
		"role":         "Backend Engineer",
		"method":       jobs.MethodLinkedInSearch,
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created jobs.Application
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)

	// Duplicate is rejected
	rec = env.do(t, http.MethodPost, "/api/jobs", map[string]interface{}{
		"organisation": "Acme",
		"role":         "Backend Engineer",
	}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/jobs", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []jobs.Application
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	created.Status = jobs.StatusInterview
	rec = env.do(t, http.MethodPut, "/api/jobs/1", created, true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/jobs/1", nil, true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/jobs/1", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTasksCRUDAndToggle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/tasks", map[string]interface{}{
		"title": "Update CV",
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/tasks/1/toggle", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var toggled tasks.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
	assert.True(t, toggled.Complete)

	rec = env.do(t, http.MethodDelete, "/api/tasks/1", nil, true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/tasks/1/toggle", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboardSummary(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/jobs", map[string]interface{}{
		"organisation": "Acme", "role": "Engineer",
	}, true)
	env.do(t, http.MethodPost, "/api/tasks", map[string]interface{}{
		"title": "Follow up",
	}, true)

	rec := env.do(t, http.MethodGet, "/api/dashboard/summary", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Contacted jobs.ContactedCounts `json:"contacted"`
		Tasks     []tasks.Task         `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Contacted.LastWeek)
	assert.Len(t, resp.Tasks, 1)
}

func TestMapsDisabledWithoutKey(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/maps/geocode/place-123", nil, true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
