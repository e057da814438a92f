package authflow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"jobtrack/internal/common/errors"
	"jobtrack/internal/config"
	"jobtrack/internal/credentials"
)

func testConfig() *config.Config {
	return &config.Config{
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		GoogleRedirectURL:  "https://example.com/oauth2callback",
		GoogleScopes:       []string{"https://www.googleapis.com/auth/gmail.readonly"},
	}
}

func newTestFlow(t *testing.T, tokenURL string) (*Flow, credentials.Store) {
	t.Helper()

	store := credentials.NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	flow := NewFlow(testConfig(), NewMemoryStateStore(), store)
	if tokenURL != "" {
		flow.oauth.Endpoint = oauth2.Endpoint{
			AuthURL:  tokenURL + "/auth",
			TokenURL: tokenURL + "/token",
		}
	}
	return flow, store
}

func TestAuthorizationURLShape(t *testing.T) {
	flow, _ := newTestFlow(t, "")

	rawURL, err := flow.AuthorizationURL(context.Background(), "default")
	require.NoError(t, err)

	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)

	q := parsed.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "true", q.Get("include_granted_scopes"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "https://example.com/oauth2callback", q.Get("redirect_uri"))
	assert.NotEmpty(t, q.Get("state"))
}

func TestAuthorizationURLStatesDiffer(t *testing.T) {
	flow, _ := newTestFlow(t, "")
	ctx := context.Background()

	first, err := flow.AuthorizationURL(ctx, "default")
	require.NoError(t, err)
	second, err := flow.AuthorizationURL(ctx, "default")
	require.NoError(t, err)

	firstState := mustQueryParam(t, first, "state")
	secondState := mustQueryParam(t, second, "state")
	assert.NotEqual(t, firstState, secondState)
}

func TestHandleCallbackMissingCode(t *testing.T) {
	flow, store := newTestFlow(t, "")

	_, err := flow.HandleCallback(context.Background(), "", "some-state")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeMissingCode))

	assertStoreEmpty(t, store)
}

func TestHandleCallbackBadState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("token endpoint must not be called when the state check fails")
	}))
	defer server.Close()

	flow, store := newTestFlow(t, server.URL)

	tests := []struct {
		name  string
		state string
	}{
		{"missing state", ""},
		{"unknown state", "never-issued"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := flow.HandleCallback(context.Background(), "auth-code", tt.state)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeStateMismatch))
		})
	}

	assertStoreEmpty(t, store)
}

func TestHandleCallbackSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "auth-code", r.PostForm.Get("code"))
		assert.Equal(t, "https://example.com/oauth2callback", r.PostForm.Get("redirect_uri"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "access-1",
			"refresh_token": "refresh-1",
			"expires_in": 3600,
			"token_type": "Bearer"
		}`))
	}))
	defer server.Close()

	flow, store := newTestFlow(t, server.URL)
	ctx := context.Background()

	rawURL, err := flow.AuthorizationURL(ctx, "default")
	require.NoError(t, err)
	state := mustQueryParam(t, rawURL, "state")

	identity, err := flow.HandleCallback(ctx, "auth-code", state)
	require.NoError(t, err)
	assert.Equal(t, "default", identity)

	cred, err := store.Load(ctx, "default")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "access-1", cred.AccessToken)
	assert.Equal(t, "refresh-1", cred.RefreshToken)
	assert.Equal(t, server.URL+"/token", cred.TokenURI)
	assert.Equal(t, "client-id", cred.ClientID)
	assert.False(t, cred.IsExpired())
}

func TestHandleCallbackStateIsSingleUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "access-1", "expires_in": 3600}`))
	}))
	defer server.Close()

	flow, _ := newTestFlow(t, server.URL)
	ctx := context.Background()

	rawURL, err := flow.AuthorizationURL(ctx, "default")
	require.NoError(t, err)
	state := mustQueryParam(t, rawURL, "state")

	_, err = flow.HandleCallback(ctx, "auth-code", state)
	require.NoError(t, err)

	_, err = flow.HandleCallback(ctx, "auth-code", state)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeStateMismatch))
}

func TestHandleCallbackProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid_grant"}`))
	}))
	defer server.Close()

	flow, store := newTestFlow(t, server.URL)
	ctx := context.Background()

	rawURL, err := flow.AuthorizationURL(ctx, "default")
	require.NoError(t, err)
	state := mustQueryParam(t, rawURL, "state")

	_, err = flow.HandleCallback(ctx, "bad-code", state)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeTokenExchange))

	appErr := err.(*errors.AppError)
	assert.Equal(t, "invalid_grant", appErr.Code)

	assertStoreEmpty(t, store)
}

func mustQueryParam(t *testing.T, rawURL, key string) string {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)
	value := parsed.Query().Get(key)
	require.NotEmpty(t, value)
	return value
}

func assertStoreEmpty(t *testing.T, store credentials.Store) {
	t.Helper()
	cred, err := store.Load(context.Background(), "default")
	require.NoError(t, err)
	assert.Nil(t, cred, "failed callbacks must never write the credential store")
}
