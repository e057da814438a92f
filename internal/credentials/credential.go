// Package credentials owns the OAuth2 credential lifecycle: the stored
// credential model, the persistence stores, and the refresher that keeps
// access tokens usable.
package credentials

import (
	"time"
)

// expirySkew treats tokens as expired slightly before their real expiry so a
// token never dies mid-request.
const expirySkew = 30 * time.Second

// Credential is the stored OAuth2 grant for one identity. The JSON field
// names match the on-disk file format, so a file written by an earlier
// deployment loads unchanged.
type Credential struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	TokenURI     string    `json:"token_uri"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Scopes       []string  `json:"scopes"`
	Expiry       time.Time `json:"expiry"`
}

// IsExpired reports whether the access token can no longer be used.
// A zero expiry means the expiry is unknown, which is treated as expired.
func (c *Credential) IsExpired() bool {
	if c.Expiry.IsZero() {
		return true
	}
	return time.Now().After(c.Expiry.Add(-expirySkew))
}

// CanRefresh reports whether a refresh attempt is even possible.
func (c *Credential) CanRefresh() bool {
	return c.RefreshToken != ""
}

// Usable reports whether the credential can authorize a request right now
// or could after a refresh. Expired with no refresh token means the user
// has to reauthorize.
func (c *Credential) Usable() bool {
	return !c.IsExpired() || c.CanRefresh()
}
