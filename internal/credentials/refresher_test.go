package credentials

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrack/internal/common/errors"
	"jobtrack/internal/locks"
)

func newTestRefresher(t *testing.T) (*Refresher, Store) {
	t.Helper()
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	return NewRefresher(store, locks.NewKeyedMutex(), nil), store
}

func expiredCredential(tokenURI string) *Credential {
	return &Credential{
		AccessToken:  "stale-access",
		RefreshToken: "refresh-1",
		TokenURI:     tokenURI,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Expiry:       time.Now().Add(-time.Hour),
	}
}

func TestEnsureFreshNoOpWhenNotExpired(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	refresher, _ := newTestRefresher(t)
	cred := &Credential{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenURI:     server.URL,
		Expiry:       time.Now().Add(time.Hour),
	}

	got, err := refresher.EnsureFresh(context.Background(), "default", cred)
	require.NoError(t, err)
	assert.Equal(t, "access-1", got.AccessToken)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "fresh credential must not hit the network")
}

func TestEnsureFreshRefreshesExpiredCredential(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "new-access", "expires_in": 3600, "token_type": "Bearer"}`))
	}))
	defer server.Close()

	refresher, store := newTestRefresher(t)
	ctx := context.Background()

	got, err := refresher.EnsureFresh(ctx, "default", expiredCredential(server.URL))
	require.NoError(t, err)
	assert.Equal(t, "new-access", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken, "refresh token kept when provider does not rotate it")
	assert.False(t, got.IsExpired())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	stored, err := store.Load(ctx, "default")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "new-access", stored.AccessToken)
}

func TestEnsureFreshAdoptsRotatedRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "new-access", "expires_in": 3600, "refresh_token": "refresh-2"}`))
	}))
	defer server.Close()

	refresher, store := newTestRefresher(t)

	got, err := refresher.EnsureFresh(context.Background(), "default", expiredCredential(server.URL))
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", got.RefreshToken)

	stored, err := store.Load(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", stored.RefreshToken)
}

func TestEnsureFreshExpiredWithoutRefreshToken(t *testing.T) {
	refresher, _ := newTestRefresher(t)

	cred := &Credential{
		AccessToken: "stale",
		Expiry:      time.Now().Add(-time.Hour),
	}

	_, err := refresher.EnsureFresh(context.Background(), "default", cred)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeAuthorizationExpired))
}

func TestEnsureFreshInvalidGrantClearsStore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid_grant", "error_description": "Token has been revoked."}`))
	}))
	defer server.Close()

	refresher, store := newTestRefresher(t)
	ctx := context.Background()

	cred := expiredCredential(server.URL)
	require.NoError(t, store.Save(ctx, "default", cred))

	_, err := refresher.EnsureFresh(ctx, "default", cred)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeTokenExchange))
	assert.True(t, errors.RequiresReauthorization(err))

	appErr := err.(*errors.AppError)
	assert.Equal(t, "invalid_grant", appErr.Code)

	stored, err := store.Load(ctx, "default")
	require.NoError(t, err)
	assert.Nil(t, stored, "revoked credential must be cleared from the store")
}

func TestEnsureFreshTransientFailureLeavesStore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	refresher, store := newTestRefresher(t)
	ctx := context.Background()

	cred := expiredCredential(server.URL)
	require.NoError(t, store.Save(ctx, "default", cred))

	_, err := refresher.EnsureFresh(ctx, "default", cred)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeTransientProvider))
	assert.False(t, errors.RequiresReauthorization(err))

	stored, err := store.Load(ctx, "default")
	require.NoError(t, err)
	require.NotNil(t, stored, "transient failure must leave the stored credential intact")
	assert.Equal(t, "refresh-1", stored.RefreshToken)
}

func TestEnsureFreshNetworkErrorLeavesStore(t *testing.T) {
	// Closed server produces a connection error
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	refresher, store := newTestRefresher(t)
	ctx := context.Background()

	cred := expiredCredential(url)
	require.NoError(t, store.Save(ctx, "default", cred))

	_, err := refresher.EnsureFresh(ctx, "default", cred)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeTransientProvider))

	stored, err := store.Load(ctx, "default")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestConcurrentEnsureFreshRefreshesOnce(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "new-access", "expires_in": 3600}`))
	}))
	defer server.Close()

	refresher, store := newTestRefresher(t)
	ctx := context.Background()

	cred := expiredCredential(server.URL)
	require.NoError(t, store.Save(ctx, "default", cred))

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*Credential, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := *cred
			results[i], errs[i] = refresher.EnsureFresh(ctx, "default", &c)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "new-access", results[i].AccessToken)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls),
		"losing requests must reuse the stored refreshed credential")
}
