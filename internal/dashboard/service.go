// Package dashboard orchestrates the unread-mail view: it decides between
// showing messages and sending the user back through the consent flow.
package dashboard

import (
	"context"

	"jobtrack/internal/common/errors"
	"jobtrack/internal/common/logging"
	"jobtrack/internal/credentials"
	"jobtrack/internal/gmail"
)

// MailLister is the slice of the Gmail client the dashboard needs.
type MailLister interface {
	ListUnread(ctx context.Context, identity string, cred *credentials.Credential) ([]gmail.Summary, error)
}

// AuthURLBuilder is the slice of the auth flow the dashboard needs.
type AuthURLBuilder interface {
	AuthorizationURL(ctx context.Context, identity string) (string, error)
}

// Service produces the dashboard's unread-mail section.
type Service struct {
	store     credentials.Store
	refresher *credentials.Refresher
	flow      AuthURLBuilder
	mail      MailLister
	logger    logging.Logger
}

// NewService wires the dashboard over the credential store, refresher,
// auth flow, and mail client.
func NewService(store credentials.Store, refresher *credentials.Refresher, flow AuthURLBuilder, mail MailLister) *Service {
	return &Service{
		store:     store,
		refresher: refresher,
		flow:      flow,
		mail:      mail,
		logger:    logging.WithFields(logging.String("component", "dashboard")),
	}
}

// Unread returns the identity's unread messages, or an authorization URL
// when the identity has no usable credential. Exactly one of the two is
// populated on success.
func (s *Service) Unread(ctx context.Context, identity string) ([]gmail.Summary, string, error) {
	cred, err := s.store.Load(ctx, identity)
	if err != nil {
		return nil, "", err
	}
	if cred == nil {
		return s.reauthorize(ctx, identity, "no stored credential")
	}

	cred, err = s.refresher.EnsureFresh(ctx, identity, cred)
	if err != nil {
		if errors.RequiresReauthorization(err) {
			return s.reauthorize(ctx, identity, "credential could not be refreshed")
		}
		return nil, "", err
	}

	summaries, err := s.mail.ListUnread(ctx, identity, cred)
	if err != nil {
		if errors.RequiresReauthorization(err) {
			return s.reauthorize(ctx, identity, "provider rejected the credential")
		}
		return nil, "", err
	}

	return summaries, "", nil
}

func (s *Service) reauthorize(ctx context.Context, identity, reason string) ([]gmail.Summary, string, error) {
	s.logger.Info("Redirecting to consent flow",
		logging.String("identity", identity),
		logging.String("reason", reason),
	)

	url, err := s.flow.AuthorizationURL(ctx, identity)
	if err != nil {
		return nil, "", err
	}
	return nil, url, nil
}
