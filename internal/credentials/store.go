package credentials

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"jobtrack/internal/common/errors"
	"jobtrack/internal/common/logging"
)

// Store persists credentials per identity.
//
// Load returns (nil, nil) when no credential exists for the identity.
// Corrupt persisted data is logged and treated as absent rather than
// failing the caller, so a damaged store degrades to "not authorized"
// instead of an outage.
type Store interface {
	Save(ctx context.Context, identity string, cred *Credential) error
	Load(ctx context.Context, identity string) (*Credential, error)
	Clear(ctx context.Context, identity string) error
}

// FileStore persists a single identity's credential as a JSON file.
// The identity argument is ignored; file mode is single-tenant.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger logging.Logger
}

// NewFileStore creates a file-backed credential store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		logger: logging.WithFields(logging.String("component", "credential_file_store")),
	}
}

// Save writes the credential atomically: a temp file in the same directory
// is written first and then renamed over the target, so a crash mid-write
// never leaves a truncated credential file.
func (s *FileStore) Save(ctx context.Context, identity string, cred *Credential) error {
	if cred == nil {
		return errors.ValidationError("cannot save a nil credential")
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return errors.InternalError("failed to encode credential", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".token-*.json")
	if err != nil {
		return errors.InternalError("failed to create temp credential file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.InternalError("failed to write credential file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.InternalError("failed to close credential file", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.InternalError("failed to replace credential file", err)
	}

	s.logger.Debug("Credential saved", logging.String("path", s.path))
	return nil
}

// Load reads the credential file. A missing file means not authorized;
// unparseable content is logged and also reported as absent.
func (s *FileStore) Load(ctx context.Context, identity string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.InternalError("failed to read credential file", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		s.logger.Warn("Credential file is corrupt, treating as absent",
			logging.String("path", s.path),
			logging.Err(err),
		)
		return nil, nil
	}

	return &cred, nil
}

// Clear removes the credential file. Clearing an already-absent credential
// is not an error.
func (s *FileStore) Clear(ctx context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.InternalError("failed to remove credential file", err)
	}
	return nil
}
