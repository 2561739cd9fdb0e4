package backup

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"playlist-relinker/internal/filesystem"
	"playlist-relinker/internal/logging"
	"playlist-relinker/internal/metrics"
)

// DefaultDirName is the folder created beside a playlist to hold its backups.
const DefaultDirName = "backup"

const (
	timestampFormat = "20060102T150405Z"
	maxSuffix       = 999
	dirMode         = 0o755
)

var (
	// ErrNotConfirmed is returned by Write when the handle does not point at
	// an existing backup of the target file.
	ErrNotConfirmed = errors.New("backup not confirmed")

	// ErrNotBackup is returned by Restore for a path that is not a backup of
	// the given playlist.
	ErrNotBackup = errors.New("not a backup of this playlist")

	// ErrNoFreeName is returned when every candidate backup name is taken.
	ErrNoFreeName = errors.New("no free backup name")
)

// Handle identifies one backup on disk.
type Handle struct {
	Path      string    `json:"path"`
	Source    string    `json:"source"`
	Size      int64     `json:"size"`
	Digest    string    `json:"digest"` // hex blake2b-256 of the backed up bytes
	CreatedAt time.Time `json:"createdAt"`
}

// IsZero reports whether h refers to no backup.
func (h Handle) IsZero() bool {
	return h.Path == ""
}

// Manager snapshots playlists before they are overwritten and performs the
// overwrite itself. Backups are never deleted or replaced.
type Manager struct {
	dirName string
	retry   filesystem.RetryConfig
	now     func() time.Time
}

// NewManager returns a Manager that stores backups in a dirName folder next
// to each playlist. An empty dirName selects DefaultDirName.
func NewManager(dirName string) *Manager {
	if dirName == "" {
		dirName = DefaultDirName
	}
	return &Manager{
		dirName: dirName,
		retry:   filesystem.DefaultRetryConfig(),
		now:     time.Now,
	}
}

// DirName returns the backup folder name.
func (m *Manager) DirName() string {
	return m.dirName
}

// Dir returns the backup folder for filePath.
func (m *Manager) Dir(filePath string) string {
	return filepath.Join(filepath.Dir(filePath), m.dirName)
}

// Digest returns the hex blake2b-256 digest of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Snapshot persists original as a new backup of filePath. The first backup
// uses the playlist's own name; later ones carry a UTC timestamp and, if
// needed, a numeric suffix. An existing file is never overwritten.
func (m *Manager) Snapshot(original []byte, filePath string) (Handle, error) {
	dir := m.Dir(filePath)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return Handle{}, fmt.Errorf("create backup folder %s: %w", dir, err)
	}

	now := m.now().UTC()
	name := filepath.Base(filePath)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	stamp := now.Format(timestampFormat)

	candidates := func(yield func(string) bool) {
		if !yield(name) {
			return
		}
		if !yield(stem + "." + stamp + ext) {
			return
		}
		for n := 1; n <= maxSuffix; n++ {
			if !yield(stem + "." + stamp + "-" + strconv.Itoa(n) + ext) {
				return
			}
		}
	}

	for candidate := range candidates {
		path := filepath.Join(dir, candidate)
		err := writeExclusive(path, original)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return Handle{}, err
		}

		h := Handle{
			Path:      path,
			Source:    filePath,
			Size:      int64(len(original)),
			Digest:    Digest(original),
			CreatedAt: now,
		}
		metrics.BackupsCreated.Inc()
		metrics.BackupBytes.Add(float64(h.Size))
		logging.Info("Backed up %s to %s (%d bytes)", filePath, path, h.Size)
		return h, nil
	}

	return Handle{}, fmt.Errorf("%w for %s in %s", ErrNoFreeName, name, dir)
}

// writeExclusive creates path, failing with fs.ErrExist if it is present,
// and syncs the data before returning.
func writeExclusive(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filesystem.DefaultFileMode)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write backup %s: %w", path, err)
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync backup %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close backup %s: %w", path, err)
	}
	return nil
}

// Write atomically replaces filePath with data. h must be a snapshot of
// filePath that is still on disk with its recorded size.
func (m *Manager) Write(h Handle, data []byte, filePath string) error {
	if err := m.confirm(h, filePath); err != nil {
		return err
	}
	return filesystem.WriteFileAtomic(filePath, data)
}

func (m *Manager) confirm(h Handle, filePath string) error {
	if h.IsZero() {
		return fmt.Errorf("%w: no backup taken for %s", ErrNotConfirmed, filePath)
	}
	if filepath.Clean(h.Source) != filepath.Clean(filePath) {
		return fmt.Errorf("%w: backup %s belongs to %s, not %s", ErrNotConfirmed, h.Path, h.Source, filePath)
	}
	info, err := filesystem.StatWithRetry(h.Path, m.retry)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConfirmed, err)
	}
	if info.Size() != h.Size {
		return fmt.Errorf("%w: backup %s is %d bytes, expected %d", ErrNotConfirmed, h.Path, info.Size(), h.Size)
	}
	return nil
}

// SnapshotAndWrite backs up original and then replaces filePath with data.
// Nothing is written when the snapshot fails.
func (m *Manager) SnapshotAndWrite(original, data []byte, filePath string) (Handle, error) {
	h, err := m.Snapshot(original, filePath)
	if err != nil {
		return Handle{}, err
	}
	if err := m.Write(h, data, filePath); err != nil {
		return h, err
	}
	return h, nil
}

// List returns the backups of filePath, oldest first.
func (m *Manager) List(filePath string) ([]Handle, error) {
	dir := m.Dir(filePath)
	entries, err := filesystem.ReadDirWithRetry(dir, m.retry)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup folder %s: %w", dir, err)
	}

	name := filepath.Base(filePath)
	var handles []Handle
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !m.isBackupName(name, entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := filesystem.ReadFileWithRetry(path, m.retry)
		if err != nil {
			logging.Warn("Skipping unreadable backup %s: %v", path, err)
			continue
		}
		info, err := entry.Info()
		if err != nil {
			logging.Warn("Skipping backup %s: %v", path, err)
			continue
		}
		handles = append(handles, Handle{
			Path:      path,
			Source:    filePath,
			Size:      int64(len(data)),
			Digest:    Digest(data),
			CreatedAt: info.ModTime(),
		})
	}

	slices.SortFunc(handles, func(a, b Handle) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
	return handles, nil
}

// isBackupName reports whether candidate is one of the names Snapshot would
// pick for a playlist called name.
func (m *Manager) isBackupName(name, candidate string) bool {
	if candidate == name {
		return true
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if !strings.HasPrefix(candidate, stem+".") || !strings.HasSuffix(candidate, ext) {
		return false
	}
	middle := candidate[len(stem)+1 : len(candidate)-len(ext)]
	if stamp, n, ok := strings.Cut(middle, "-"); ok {
		if _, err := strconv.Atoi(n); err != nil {
			return false
		}
		middle = stamp
	}
	_, err := time.Parse(timestampFormat, middle)
	return err == nil
}

// Restore copies backupPath back over filePath. The current content of
// filePath, if any, is itself snapshotted first and that handle is returned.
func (m *Manager) Restore(backupPath, filePath string) (Handle, []byte, error) {
	if filepath.Clean(filepath.Dir(backupPath)) != filepath.Clean(m.Dir(filePath)) ||
		!m.isBackupName(filepath.Base(filePath), filepath.Base(backupPath)) {
		return Handle{}, nil, fmt.Errorf("%w: %s", ErrNotBackup, backupPath)
	}

	data, err := filesystem.ReadFileWithRetry(backupPath, m.retry)
	if err != nil {
		return Handle{}, nil, fmt.Errorf("read backup %s: %w", backupPath, err)
	}

	current, err := filesystem.ReadFileWithRetry(filePath, m.retry)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := filesystem.WriteFileAtomic(filePath, data); err != nil {
			return Handle{}, nil, err
		}
		logging.Info("Restored %s from %s", filePath, backupPath)
		return Handle{}, data, nil
	case err != nil:
		return Handle{}, nil, fmt.Errorf("read %s: %w", filePath, err)
	}

	h, err := m.SnapshotAndWrite(current, data, filePath)
	if err != nil {
		return h, nil, err
	}
	logging.Info("Restored %s from %s", filePath, backupPath)
	return h, data, nil
}
