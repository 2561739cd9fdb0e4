package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"playlist-relinker/internal/logging"
)

// DefaultFileMode is used by WriteFileAtomic when the target does not exist yet.
const DefaultFileMode fs.FileMode = 0o644

// WriteFileAtomic replaces path with data. The bytes are written to a
// temporary file in the same directory, flushed to disk and renamed over the
// target, so readers see either the old content or the new content and never
// a partial file. The target's permission bits are kept.
func WriteFileAtomic(path string, data []byte) (err error) {
	start := time.Now()
	volume := defaultResolver.Resolve(path)
	defer func() {
		if obs := observe(); obs != nil {
			obs.ObserveOperation(volume, "write", time.Since(start).Seconds(), err)
		}
	}()

	mode := DefaultFileMode
	if info, statErr := os.Stat(path); statErr == nil {
		if !info.Mode().IsRegular() {
			return fmt.Errorf("write %s: not a regular file", path)
		}
		mode = info.Mode().Perm()
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, statErr)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temporary file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				logging.Warn("Failed to remove temporary file %s: %v", tmpName, rmErr)
			}
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err = os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmpName, path, err)
	}

	syncDir(dir)
	return nil
}

// syncDir flushes a directory entry after a rename. Not every platform can
// open a directory for syncing, so failures are only logged.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		logging.Debug("Directory sync skipped for %s: %v", dir, err)
	}
}
