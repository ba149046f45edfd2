package uploadengine

import (
	"os"
	"path/filepath"
)

// Spool manages the upload spool directory described by spec.md §4.6: a
// dedicated location where each record's multipart body is composed
// before the HTTP task adapter reads it. Generalized from "one download's
// temp file" to "one directory holding every in-flight upload's spool
// file."
type Spool struct {
	dir string
}

// NewSpool builds a Spool rooted at dir, creating it if missing. If reset
// is true, any existing contents are deleted first, the constructor-level
// willResetDirectory option spec.md §6 names.
func NewSpool(dir string, reset bool) (*Spool, error) {
	if reset {
		if err := os.RemoveAll(dir); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Spool{dir: dir}, nil
}

// Dir returns the spool root.
func (s *Spool) Dir() string { return s.dir }

// Path returns the spool file path for recordID, without creating it.
func (s *Spool) Path(recordID string) string {
	return filepath.Join(s.dir, recordID)
}

// Remove deletes one record's spool file once its task no longer needs it.
func (s *Spool) Remove(recordID string) error {
	return os.Remove(s.Path(recordID))
}
