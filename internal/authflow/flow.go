// Package authflow implements the OAuth2 authorization-code flow: building
// the consent URL, tracking anti-CSRF state tokens, and exchanging the
// callback code for a stored credential.
package authflow

import (
	"context"
	"encoding/json"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"jobtrack/internal/common/errors"
	"jobtrack/internal/common/logging"
	"jobtrack/internal/config"
	"jobtrack/internal/credentials"
)

// Flow drives the authorization-code flow for one OAuth client.
type Flow struct {
	oauth  *oauth2.Config
	states StateStore
	store  credentials.Store
	logger logging.Logger
}

// NewFlow builds a Flow from the application configuration.
func NewFlow(cfg *config.Config, states StateStore, store credentials.Store) *Flow {
	return &Flow{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       cfg.GoogleScopes,
			Endpoint:     google.Endpoint,
		},
		states: states,
		store:  store,
		logger: logging.WithFields(logging.String("component", "authflow")),
	}
}

// AuthorizationURL issues a state token for identity and returns the consent
// URL to redirect the user to. Offline access is requested so the provider
// returns a refresh token, and previously granted scopes are kept.
func (f *Flow) AuthorizationURL(ctx context.Context, identity string) (string, error) {
	state, err := f.states.Issue(ctx, identity)
	if err != nil {
		return "", err
	}

	url := f.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)

	f.logger.Debug("Issued authorization URL", logging.String("identity", identity))
	return url, nil
}

// HandleCallback validates the provider callback and exchanges the code for
// tokens. The state check happens before anything touches the network or the
// store, so a forged or replayed callback can never write a credential.
func (f *Flow) HandleCallback(ctx context.Context, code, state string) (string, error) {
	if code == "" {
		return "", errors.MissingCodeError()
	}
	if state == "" {
		return "", errors.StateMismatchError("callback did not include a state token")
	}

	identity, err := f.states.Consume(ctx, state)
	if err != nil {
		return "", err
	}

	token, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		if retrieveErr, ok := err.(*oauth2.RetrieveError); ok {
			code := oauthErrorCode(retrieveErr.Body)
			if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 500 {
				return "", errors.TransientProviderError("token endpoint returned a server error", err)
			}
			return "", errors.TokenExchangeError("provider rejected the authorization code", err).
				WithCode(code)
		}
		return "", errors.TransientProviderError("token exchange failed", err)
	}

	cred := &credentials.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenURI:     f.oauth.Endpoint.TokenURL,
		ClientID:     f.oauth.ClientID,
		ClientSecret: f.oauth.ClientSecret,
		Scopes:       f.oauth.Scopes,
		Expiry:       token.Expiry,
	}

	if err := f.store.Save(ctx, identity, cred); err != nil {
		return "", err
	}

	f.logger.Info("Authorization completed",
		logging.String("identity", identity),
		logging.Bool("has_refresh_token", cred.RefreshToken != ""),
	)

	return identity, nil
}

// oauthErrorCode extracts the "error" field from an OAuth error body.
func oauthErrorCode(body []byte) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error == "" {
		return "exchange_failed"
	}
	return parsed.Error
}
