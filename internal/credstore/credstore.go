// Package credstore handles reading and writing the persisted credential:
// the service-issued bearer token plus the owning user's identity. At most
// one credential is resident at a time; an absent file means "logged out".
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// FilePerms restricts the credential file to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the credential directory.
const DirPerms = 0o700

// Metadata keys stored alongside the token.
const (
	metaOwnerID     = "owner_id"
	metaDisplayName = "display_name"
)

// Credential is the locally held proof of authentication.
type Credential struct {
	AccessToken string
	OwnerID     string
	DisplayName string
	Expiry      time.Time
}

// file is the on-disk format: an OAuth2 token plus identity metadata.
type file struct {
	Token *oauth2.Token     `json:"token"`
	Meta  map[string]string `json:"meta,omitempty"`
}

// Store persists a single credential at a fixed path.
type Store struct {
	path   string
	logger *slog.Logger
}

// New creates a credential store backed by the file at path.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{path: path, logger: logger}
}

// Load reads the saved credential. Returns (nil, nil) if no credential file
// exists — the logged-out state is not an error.
func (s *Store) Load() (*Credential, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "logged out"
	}

	if err != nil {
		return nil, fmt.Errorf("credstore: reading %s: %w", s.path, err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("credstore: decoding %s: %w", s.path, err)
	}

	if f.Token == nil {
		return nil, fmt.Errorf("credstore: %s missing token field (re-login required)", s.path)
	}

	return &Credential{
		AccessToken: f.Token.AccessToken,
		OwnerID:     f.Meta[metaOwnerID],
		DisplayName: f.Meta[metaDisplayName],
		Expiry:      f.Token.Expiry,
	}, nil
}

// Save writes the credential to disk atomically (write-to-temp + rename)
// with 0600 permissions. Never logs token values.
func (s *Store) Save(c *Credential) error {
	f := file{
		Token: &oauth2.Token{
			AccessToken: c.AccessToken,
			TokenType:   "Bearer",
			Expiry:      c.Expiry,
		},
		Meta: map[string]string{
			metaOwnerID:     c.OwnerID,
			metaDisplayName: c.DisplayName,
		},
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("credstore: encoding: %w", err)
	}

	dir := filepath.Dir(s.path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("credstore: creating directory %s: %w", dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".cred-*.tmp")
	if err != nil {
		return fmt.Errorf("credstore: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("credstore: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("credstore: writing: %w", err)
	}

	// Flush to stable storage before rename so a power loss between close and
	// rename cannot leave an empty or partial credential file at the final path.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("credstore: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credstore: closing: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("credstore: renaming: %w", err)
	}

	success = true

	s.logger.Info("credential saved",
		slog.String("path", s.path),
		slog.Time("expiry", c.Expiry),
	)

	return nil
}

// Clear removes the credential file, forcing the logged-out state.
// Returns nil if the file does not exist (already logged out).
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("credstore: removing %s: %w", s.path, err)
	}

	s.logger.Info("credential cleared", slog.String("path", s.path))

	return nil
}
