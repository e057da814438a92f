package credentials

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobtrack/internal/common/errors"
	"jobtrack/internal/common/logging"
	"jobtrack/internal/locks"
)

// refreshTimeout bounds a single token endpoint round trip.
const refreshTimeout = 10 * time.Second

// Refresher keeps access tokens usable. Refreshes for the same identity are
// serialized through the lock manager so concurrent requests cannot spend
// the same refresh token twice.
type Refresher struct {
	store  Store
	locks  locks.Manager
	client *http.Client
	logger logging.Logger
}

// tokenResponse is the provider's refresh grant response body.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// tokenErrorResponse is the provider's OAuth error body.
type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// NewRefresher creates a refresher over the given store and lock manager.
// Passing a nil client uses a default with a bounded timeout.
func NewRefresher(store Store, lockManager locks.Manager, client *http.Client) *Refresher {
	if client == nil {
		client = &http.Client{Timeout: refreshTimeout}
	}
	return &Refresher{
		store:  store,
		locks:  lockManager,
		client: client,
		logger: logging.WithFields(logging.String("component", "refresher")),
	}
}

// EnsureFresh returns a credential whose access token is usable.
//
// A credential that is not expired is returned unchanged with no network
// calls. An expired credential with no refresh token cannot be repaired and
// reports authorization_expired. Otherwise the refresh grant is exchanged
// under the identity's lock; a request that lost the race to another
// refresher finds the stored credential already fresh and uses it.
func (r *Refresher) EnsureFresh(ctx context.Context, identity string, cred *Credential) (*Credential, error) {
	if cred == nil {
		return nil, errors.AuthorizationExpiredError("no stored credential")
	}

	if !cred.IsExpired() {
		return cred, nil
	}

	if !cred.CanRefresh() {
		return nil, errors.AuthorizationExpiredError("credential expired and no refresh token is stored")
	}

	release, err := r.locks.Acquire(ctx, "refresh:"+identity)
	if err != nil {
		return nil, errors.InternalError("failed to acquire refresh lock", err)
	}
	defer release()

	// Another request may have refreshed while this one waited for the lock
	stored, err := r.store.Load(ctx, identity)
	if err != nil {
		return nil, err
	}
	if stored != nil && !stored.IsExpired() {
		r.logger.Debug("Credential already refreshed by a concurrent request",
			logging.String("identity", identity))
		return stored, nil
	}
	if stored != nil {
		cred = stored
	}

	return r.refresh(ctx, identity, cred)
}

// ForceRefresh exchanges the refresh grant regardless of the recorded
// expiry. Used when the provider rejects a token the expiry said was fine.
func (r *Refresher) ForceRefresh(ctx context.Context, identity string, cred *Credential) (*Credential, error) {
	if cred == nil {
		return nil, errors.AuthorizationExpiredError("no stored credential")
	}
	if !cred.CanRefresh() {
		return nil, errors.AuthorizationExpiredError("no refresh token is stored")
	}

	release, err := r.locks.Acquire(ctx, "refresh:"+identity)
	if err != nil {
		return nil, errors.InternalError("failed to acquire refresh lock", err)
	}
	defer release()

	return r.refresh(ctx, identity, cred)
}

// refresh performs one token endpoint round trip. Caller holds the
// identity's lock.
func (r *Refresher) refresh(ctx context.Context, identity string, cred *Credential) (*Credential, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {cred.RefreshToken},
		"client_id":     {cred.ClientID},
		"client_secret": {cred.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cred.TokenURI,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.InternalError("failed to build refresh request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		// Store untouched so the refresh token survives a provider blip
		return nil, errors.TransientProviderError("token endpoint unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.TransientProviderError("failed to read token response", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Handled below
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var oauthErr tokenErrorResponse
		_ = json.Unmarshal(body, &oauthErr)
		code := oauthErr.Error
		if code == "" {
			code = http.StatusText(resp.StatusCode)
		}

		r.logger.Warn("Provider rejected refresh grant, clearing stored credential",
			logging.String("identity", identity),
			logging.String("provider_error", code),
		)
		if clearErr := r.store.Clear(ctx, identity); clearErr != nil {
			r.logger.Error("Failed to clear rejected credential", clearErr,
				logging.String("identity", identity))
		}

		return nil, errors.TokenExchangeError("provider rejected the refresh token", nil).
			WithCode(code).
			WithReauthorization()
	default:
		return nil, errors.TransientProviderError("token endpoint returned a server error", nil).
			WithContext("status", resp.StatusCode)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil || token.AccessToken == "" {
		return nil, errors.TransientProviderError("token endpoint returned an unusable body", err)
	}

	cred.AccessToken = token.AccessToken
	if token.ExpiresIn > 0 {
		cred.Expiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	} else {
		cred.Expiry = time.Now().Add(time.Hour)
	}
	if token.RefreshToken != "" {
		// Provider rotated the refresh token
		cred.RefreshToken = token.RefreshToken
	}

	if err := r.store.Save(ctx, identity, cred); err != nil {
		return nil, err
	}

	r.logger.Info("Access token refreshed",
		logging.String("identity", identity),
		logging.Time("expiry", cred.Expiry),
	)

	return cred, nil
}
