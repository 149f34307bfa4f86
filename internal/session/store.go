package session

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fakeyudi/codeweave/internal/logging"
)

// ErrNoSession is returned by Load when no record exists for a document.
var ErrNoSession = errors.New("no abandoned session")

// Store keeps the record of every generation left in place, one per
// document, so each can be reverted later.
type Store interface {
	Save(s *Session) error              // replaces any record for s.DocumentPath
	Load(path string) (*Session, error) // returns ErrNoSession if none exists
	List() ([]*Session, error)          // oldest first
	Delete(path string) error
}

// diskStore writes one JSON file per document under the XDG data directory.
type diskStore struct {
	dir string
}

// NewStore returns a Store backed by the XDG data directory.
// Path: $XDG_DATA_HOME/codeweave/sessions or ~/.local/share/codeweave/sessions
func NewStore() (Store, error) {
	base, err := dataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	dir := filepath.Join(base, "sessions")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &diskStore{dir: dir}, nil
}

// dataDir returns the codeweave-specific XDG data directory.
func dataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "codeweave"), nil
}

// recordPath maps a document path to its record file. Relative paths are
// made absolute first so "main.js" and "./main.js" share a record.
func (d *diskStore) recordPath(doc string) string {
	if abs, err := filepath.Abs(doc); err == nil {
		doc = abs
	}
	sum := sha256.Sum256([]byte(filepath.Clean(doc)))
	return filepath.Join(d.dir, hex.EncodeToString(sum[:8])+".json")
}

// Save writes s atomically via a temp file + os.Rename. The record holds
// document content, so it is readable by the owner only.
func (d *diskStore) Save(s *Session) (err error) {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to persist session state: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, "record-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist session state: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist session state: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist session state: %w", err)
	}
	if err = os.Rename(tmpName, d.recordPath(s.DocumentPath)); err != nil {
		return fmt.Errorf("failed to persist session state: %w", err)
	}
	return nil
}

// Load returns the record for the document at path.
func (d *diskStore) Load(path string) (*Session, error) {
	s, err := readRecord(d.recordPath(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	return s, err
}

func readRecord(name string) (*Session, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session state %s: %w", filepath.Base(name), err)
	}
	return &s, nil
}

// List returns every record, oldest first. Unreadable records are skipped
// with a warning.
func (d *diskStore) List() ([]*Session, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}
	var out []*Session
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		s, err := readRecord(filepath.Join(d.dir, e.Name()))
		if err != nil {
			logging.Get().Warn("skipping session record", "file", e.Name(), "error", err)
			continue
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *Session) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.DocumentPath, b.DocumentPath)
	})
	return out, nil
}

// Delete removes the record for the document at path. Deleting a missing
// record is not an error.
func (d *diskStore) Delete(path string) error {
	if err := os.Remove(d.recordPath(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session state: %w", err)
	}
	return nil
}
