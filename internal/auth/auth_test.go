package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"jobtrack/internal/common/errors"
	"jobtrack/internal/config"
)

func newTestAuth(t *testing.T) *Auth {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	return New(&config.Config{
		JWTSecret:         "test-jwt-secret-that-is-long-enough!",
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
	})
}

func TestLoginAndValidate(t *testing.T) {
	a := newTestAuth(t)

	token, err := a.Login("admin", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", username)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	a := newTestAuth(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "admin", "wrong"},
		{"wrong username", "root", "correct-horse"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Login(tt.username, tt.password)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeAuth))
		})
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	a := newTestAuth(t)

	_, err := a.ValidateToken("not-a-jwt")
	require.Error(t, err)

	other := New(&config.Config{
		JWTSecret:         "a-different-secret-also-long-enough!",
		AdminUsername:     "admin",
		AdminPasswordHash: "x",
	})
	token, err := a.Login("admin", "correct-horse")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	require.Error(t, err, "token signed with another secret must fail")
}

func TestRequireAuth(t *testing.T) {
	a := newTestAuth(t)

	var sawUsername string
	protected := a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawUsername = r.Header.Get("X-Username")
		w.WriteHeader(http.StatusOK)
	}))

	// No cookie on an API path: JSON 401
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// No cookie on a web path: redirect to login
	req = httptest.NewRequest(http.MethodGet, "/oauth/authorize", nil)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	// Valid cookie passes through
	token, err := a.Login("admin", "correct-horse")
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.AddCookie(a.SessionCookie(token))
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", sawUsername)
}
