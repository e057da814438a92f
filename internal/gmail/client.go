// Package gmail fetches unread message summaries for the dashboard through
// the Gmail API.
package gmail

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"jobtrack/internal/common/errors"
	"jobtrack/internal/common/logging"
	"jobtrack/internal/credentials"
)

// maxMessages caps how many unread messages the dashboard shows.
const maxMessages = 25

// Summary is one unread message as shown on the dashboard.
type Summary struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Subject   string `json:"subject"`
	Snippet   string `json:"snippet"`
	Highlight bool   `json:"highlight"`
}

// Client lists unread mail. Token refresh is owned by the Refresher, not the
// SDK: the service is built with a static token source, and a 401 triggers
// exactly one forced refresh and retry.
type Client struct {
	refresher        *credentials.Refresher
	query            string
	highlightKeyword string
	endpoint         string // non-empty only in tests
	logger           logging.Logger
}

// NewClient creates a Gmail client. The query is fixed at construction from
// the configured excluded senders.
func NewClient(refresher *credentials.Refresher, excludedSenders []string, highlightKeyword string) *Client {
	return &Client{
		refresher:        refresher,
		query:            BuildQuery(excludedSenders),
		highlightKeyword: strings.ToLower(highlightKeyword),
		logger:           logging.WithFields(logging.String("component", "gmail_client")),
	}
}

// ListUnread returns unread message summaries in the provider's order.
//
// If the provider rejects the access token mid-call, the credential is
// force-refreshed once and the call retried. A rejection of the refreshed
// token means the grant itself is dead and the user must reauthorize.
func (c *Client) ListUnread(ctx context.Context, identity string, cred *credentials.Credential) ([]Summary, error) {
	summaries, err := c.listOnce(ctx, cred)
	if !isUnauthorized(err) {
		return summaries, c.classify(err)
	}

	c.logger.Info("Provider rejected access token, refreshing once",
		logging.String("identity", identity))

	cred, err = c.refresher.ForceRefresh(ctx, identity, cred)
	if err != nil {
		return nil, err
	}

	summaries, err = c.listOnce(ctx, cred)
	if isUnauthorized(err) {
		return nil, errors.AuthorizationExpiredError("provider rejected a freshly refreshed token")
	}
	return summaries, c.classify(err)
}

// listOnce performs a single list-and-fetch pass with the given credential.
func (c *Client) listOnce(ctx context.Context, cred *credentials.Credential) ([]Summary, error) {
	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cred.AccessToken,
		})),
	}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	svc, err := gmailv1.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}

	list, err := svc.Users.Messages.List("me").
		Q(c.query).
		MaxResults(maxMessages).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := svc.Users.Messages.Get("me", ref.Id).
			Format("metadata").
			MetadataHeaders("From", "Subject").
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, c.toSummary(msg))
	}

	return summaries, nil
}

func (c *Client) toSummary(msg *gmailv1.Message) Summary {
	summary := Summary{
		ID:      msg.Id,
		Snippet: msg.Snippet,
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			switch header.Name {
			case "From":
				summary.Sender = header.Value
			case "Subject":
				summary.Subject = header.Value
			}
		}
	}

	if c.highlightKeyword != "" {
		summary.Highlight = strings.Contains(strings.ToLower(summary.Snippet), c.highlightKeyword)
	}

	return summary
}

// isUnauthorized reports whether err is the provider rejecting the token.
func isUnauthorized(err error) bool {
	if apiErr, ok := err.(*googleapi.Error); ok {
		return apiErr.Code == 401
	}
	return false
}

// classify maps Gmail API failures onto the application error taxonomy.
func (c *Client) classify(err error) error {
	if err == nil {
		return nil
	}

	if apiErr, ok := err.(*googleapi.Error); ok {
		switch {
		case apiErr.Code == 429 || apiErr.Code >= 500:
			return errors.TransientProviderError("mail provider is unavailable", err).
				WithContext("status", apiErr.Code)
		case apiErr.Code == 403:
			return errors.AuthError("mail provider denied access")
		}
		return errors.InternalError("mail provider call failed", err)
	}

	return errors.TransientProviderError("mail provider unreachable", err)
}
