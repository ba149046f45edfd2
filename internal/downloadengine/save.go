package downloadengine

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tinoosan/xfer/internal/transfer"
)

// savePolicy implements spec.md §4.5's save policy: dest must resolve to a
// local file path, its parent directory is created if missing, and the
// write atomically replaces anything already there (unless collision says
// otherwise).
func savePolicy(dest string, body []byte, collision transfer.CollisionPolicy) error {
	path, err := localFilePath(dest)
	if err != nil {
		return fmt.Errorf("%w: %s", transfer.ErrInvalidFileURL, dest)
	}

	switch collision {
	case transfer.CollisionError:
		if _, statErr := os.Stat(path); statErr == nil {
			return fmt.Errorf("%w: %s already exists", transfer.ErrNoDataInLocal, path)
		}
	case transfer.CollisionRename:
		path = renameForCollision(path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", transfer.ErrNoDataInLocal, err)
	}

	tmp, err := os.CreateTemp(dir, ".xfer-save-*")
	if err != nil {
		return fmt.Errorf("%w: %v", transfer.ErrNoDataInLocal, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", transfer.ErrNoDataInLocal, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", transfer.ErrNoDataInLocal, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", transfer.ErrNoDataInLocal, err)
	}
	return nil
}

// localFilePath accepts a file:// URL or a plain filesystem path and
// returns the filesystem path, rejecting any other scheme.
func localFilePath(dest string) (string, error) {
	u, err := url.Parse(dest)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Scheme == "file" {
		if u.Path != "" {
			return u.Path, nil
		}
		return dest, nil
	}
	return "", fmt.Errorf("scheme %q is not a local file URL", u.Scheme)
}

// renameForCollision finds the first "name (n).ext" that doesn't already
// exist, the conventional collision-avoidance naming for user-visible
// renames.
func renameForCollision(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
