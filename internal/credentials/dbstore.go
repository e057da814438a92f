package credentials

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"jobtrack/internal/common/errors"
	"jobtrack/internal/common/logging"
	"jobtrack/internal/crypto"
	"jobtrack/internal/database"
)

// DBStore persists one credential row per identity in oauth_credentials.
// The refresh token and client secret are encrypted at rest; the short-lived
// access token is stored in the clear.
type DBStore struct {
	db     *database.DB
	box    *crypto.SecretBox
	logger logging.Logger
}

// NewDBStore creates a database-backed credential store.
func NewDBStore(db *database.DB, box *crypto.SecretBox) *DBStore {
	return &DBStore{
		db:     db,
		box:    box,
		logger: logging.WithFields(logging.String("component", "credential_db_store")),
	}
}

// Save upserts the identity's credential row.
func (s *DBStore) Save(ctx context.Context, identity string, cred *Credential) error {
	if cred == nil {
		return errors.ValidationError("cannot save a nil credential")
	}

	encRefresh, err := s.box.Encrypt(cred.RefreshToken)
	if err != nil {
		return errors.InternalError("failed to encrypt refresh token", err)
	}
	encSecret, err := s.box.Encrypt(cred.ClientSecret)
	if err != nil {
		return errors.InternalError("failed to encrypt client secret", err)
	}

	expiry := ""
	if !cred.Expiry.IsZero() {
		expiry = cred.Expiry.UTC().Format(time.RFC3339)
	}

	query := s.db.Rebind(`INSERT INTO oauth_credentials
		(identity, access_token, refresh_token, token_uri, client_id, client_secret, scopes, expiry, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (identity) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_uri = excluded.token_uri,
			client_id = excluded.client_id,
			client_secret = excluded.client_secret,
			scopes = excluded.scopes,
			expiry = excluded.expiry,
			updated_at = CURRENT_TIMESTAMP`)

	_, err = s.db.ExecContext(ctx, query,
		identity, cred.AccessToken, encRefresh, cred.TokenURI,
		cred.ClientID, encSecret, strings.Join(cred.Scopes, " "), expiry)
	if err != nil {
		return errors.InternalError("failed to save credential", err)
	}

	s.logger.Debug("Credential saved", logging.String("identity", identity))
	return nil
}

// Load reads the identity's credential row. A missing row means not
// authorized; a row that fails to decrypt or parse is logged and reported
// as absent.
func (s *DBStore) Load(ctx context.Context, identity string) (*Credential, error) {
	query := s.db.Rebind(`SELECT access_token, refresh_token, token_uri, client_id, client_secret, scopes, expiry
		FROM oauth_credentials WHERE identity = ?`)

	var (
		cred       Credential
		encRefresh string
		encSecret  string
		scopes     string
		expiry     string
	)

	err := s.db.QueryRowContext(ctx, query, identity).Scan(
		&cred.AccessToken, &encRefresh, &cred.TokenURI,
		&cred.ClientID, &encSecret, &scopes, &expiry)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.InternalError("failed to load credential", err)
	}

	cred.RefreshToken, err = s.box.Decrypt(encRefresh)
	if err != nil {
		s.logger.Warn("Stored refresh token failed to decrypt, treating credential as absent",
			logging.String("identity", identity),
			logging.Err(err),
		)
		return nil, nil
	}
	cred.ClientSecret, err = s.box.Decrypt(encSecret)
	if err != nil {
		s.logger.Warn("Stored client secret failed to decrypt, treating credential as absent",
			logging.String("identity", identity),
			logging.Err(err),
		)
		return nil, nil
	}

	if scopes != "" {
		cred.Scopes = strings.Fields(scopes)
	}
	if expiry != "" {
		t, err := time.Parse(time.RFC3339, expiry)
		if err != nil {
			s.logger.Warn("Stored expiry is unparseable, treating as unknown",
				logging.String("identity", identity),
				logging.Err(err),
			)
		} else {
			cred.Expiry = t
		}
	}

	return &cred, nil
}

// Clear deletes the identity's credential row. Clearing an absent row is
// not an error.
func (s *DBStore) Clear(ctx context.Context, identity string) error {
	query := s.db.Rebind(`DELETE FROM oauth_credentials WHERE identity = ?`)
	if _, err := s.db.ExecContext(ctx, query, identity); err != nil {
		return errors.InternalError("failed to clear credential", err)
	}
	return nil
}
