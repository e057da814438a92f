// Package auth provides login and JWT cookie sessions for the single admin
// user.
package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"jobtrack/internal/common/errors"
	"jobtrack/internal/common/logging"
	"jobtrack/internal/config"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "session"

// sessionTTL is how long a login lasts.
const sessionTTL = 24 * time.Hour

// Auth validates the admin login and issues session tokens.
type Auth struct {
	jwtSecret    []byte
	username     string
	passwordHash string
	logger       logging.Logger
}

// New creates an Auth from configuration.
func New(cfg *config.Config) *Auth {
	return &Auth{
		jwtSecret:    []byte(cfg.JWTSecret),
		username:     cfg.AdminUsername,
		passwordHash: cfg.AdminPasswordHash,
		logger:       logging.WithFields(logging.String("component", "auth")),
	}
}

// Login checks the credentials and returns a signed session token.
func (a *Auth) Login(username, password string) (string, error) {
	if username != a.username {
		// Hash comparison runs anyway so username validity is not observable
		// through response timing
		bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(password))
		return "", errors.AuthError("invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(password)); err != nil {
		return "", errors.AuthError("invalid username or password")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		ID:        uuid.NewString(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
	if err != nil {
		return "", errors.InternalError("failed to sign session token", err)
	}

	a.logger.Info("User logged in", logging.String("username", username))
	return token, nil
}

// ValidateToken checks a session token and returns the logged-in username.
func (a *Auth) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.AuthError("unexpected signing method")
			}
			return a.jwtSecret, nil
		})
	if err != nil || !token.Valid {
		return "", errors.AuthError("invalid or expired session")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.AuthError("invalid session claims")
	}

	return claims.Subject, nil
}

// SessionCookie wraps a session token in an HTTP-only cookie.
func (a *Auth) SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL.Seconds()),
	}
}

// ClearedSessionCookie expires the session cookie immediately.
func ClearedSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
}

// RequireAuth rejects requests without a valid session cookie. API paths get
// a JSON 401; everything else is redirected to the login page.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			a.reject(w, r)
			return
		}

		username, err := a.ValidateToken(cookie.Value)
		if err != nil {
			a.reject(w, r)
			return
		}

		r.Header.Set("X-Username", username)
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) reject(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "Authentication required"}`))
		return
	}

	http.Redirect(w, r, "/login", http.StatusFound)
}
