// Package imagestore persists identify photos as durable local files.
// Photos are written before any upload attempt, so a failed identification
// never loses the image.
package imagestore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	// FilePerms restricts images to the owning user.
	FilePerms = 0o600

	// DirPerms restricts the image directory to the owning user.
	DirPerms = 0o700
)

// Store writes images into a single flat directory with generated names.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates an image store rooted at dir. The directory is created lazily
// on first save.
func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{dir: dir, logger: logger}
}

// Save writes the image to a new file and returns its path. The write is
// atomic: temp file in the same directory, fsync, then rename, so a crash
// never leaves a half-written image behind.
func (s *Store) Save(image []byte) (string, error) {
	if err := os.MkdirAll(s.dir, DirPerms); err != nil {
		return "", fmt.Errorf("imagestore: creating directory: %w", err)
	}

	path := filepath.Join(s.dir, uuid.NewString()+".jpg")

	tmp, err := os.CreateTemp(s.dir, ".image-*.tmp")
	if err != nil {
		return "", fmt.Errorf("imagestore: creating temp file: %w", err)
	}

	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if err := tmp.Chmod(FilePerms); err != nil {
		tmp.Close()
		return "", fmt.Errorf("imagestore: setting permissions: %w", err)
	}

	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return "", fmt.Errorf("imagestore: writing image: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("imagestore: syncing image: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("imagestore: closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("imagestore: renaming image into place: %w", err)
	}

	s.logger.Debug("image saved",
		slog.String("path", path),
		slog.Int("bytes", len(image)),
	)

	return path, nil
}
