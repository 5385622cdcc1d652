package artifacts

import (
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/services"
)

// Store persists accepted artifact text on disk, one file per work item.
// Writes go through a temp file and rename so a crash never leaves a partial
// artifact behind, and an existing artifact is never overwritten.
type Store struct {
	dir string
}

// NewStore opens (creating if needed) the artifact directory.
func NewStore(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "artifacts", "open", "artifact directory not set", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "artifacts", "open", "create directory", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the artifact directory.
func (s *Store) Dir() string {
	return s.dir
}

// Put stores text for a work item and returns the artifact reference. If an
// artifact already exists for the ID the existing reference is returned
// untouched; commit-side idempotency does not depend on the ledger alone.
func (s *Store) Put(workItemID, text string) (ref string, existed bool, err error) {
	path := s.pathFor(workItemID)
	if _, statErr := os.Stat(path); statErr == nil {
		return path, true, nil
	}

	tmp, err := os.CreateTemp(s.dir, "."+workItemID+".*.tmp")
	if err != nil {
		return "", false, services.Wrap(services.ErrConfiguration, "artifacts", "put", "create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return "", false, services.Wrap(services.ErrConfiguration, "artifacts", "put", "write artifact", err)
	}
	if err := tmp.Close(); err != nil {
		return "", false, services.Wrap(services.ErrConfiguration, "artifacts", "put", "close artifact", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", false, services.Wrap(services.ErrConfiguration, "artifacts", "put", "publish artifact", err)
	}
	return path, false, nil
}

// Get reads the artifact text behind a reference returned by Put.
func (s *Store) Get(ref string) (string, error) {
	data, err := os.ReadFile(ref)
	if err != nil {
		if os.IsNotExist(err) {
			return "", services.Wrap(services.ErrConfiguration, "artifacts", "get", "artifact missing: "+ref, err)
		}
		return "", services.Wrap(services.ErrConfiguration, "artifacts", "get", "read artifact", err)
	}
	return string(data), nil
}

// Exists reports whether an artifact is already stored for a work item.
func (s *Store) Exists(workItemID string) bool {
	_, err := os.Stat(s.pathFor(workItemID))
	return err == nil
}

func (s *Store) pathFor(workItemID string) string {
	return filepath.Join(s.dir, workItemID+".txt")
}
