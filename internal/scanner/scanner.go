package scanner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"playlist-relinker/internal/backup"
	"playlist-relinker/internal/filesystem"
	"playlist-relinker/internal/logging"
	"playlist-relinker/internal/metrics"
	"playlist-relinker/internal/playlist"
)

// ErrNotDirectory is returned when the scan root is not a folder.
var ErrNotDirectory = errors.New("not a directory")

// Options configures a scan
type Options struct {
	// Recursive descends into subfolders
	Recursive bool
	// SkipHidden skips files and directories starting with "."
	SkipHidden bool
	// SkipDirs are folder names that are never entered, such as the backup folder
	SkipDirs []string
}

// DefaultOptions returns a non-recursive scan that ignores hidden entries and
// the default backup folder.
func DefaultOptions() Options {
	return Options{
		SkipHidden: true,
		SkipDirs:   []string{backup.DefaultDirName},
	}
}

// Scan lists the playlist files under root in lexical order. Unreadable
// subfolders are logged and skipped; an unreadable root is an error.
func Scan(ctx context.Context, root string, opts Options) (paths []string, err error) {
	start := time.Now()
	retry := filesystem.DefaultRetryConfig()

	defer func() {
		status := "success"
		switch {
		case ctx.Err() != nil:
			status = "cancelled"
		case err != nil:
			status = "error"
		default:
			metrics.ScanPlaylistsFound.Observe(float64(len(paths)))
		}
		metrics.ScanOperations.WithLabelValues(status).Inc()
	}()

	info, err := filesystem.StatWithRetry(root, retry)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: %w", root, ErrNotDirectory)
	}

	s := &scan{opts: opts, retry: retry}
	if err := s.dir(ctx, root, true); err != nil {
		return nil, err
	}

	slices.Sort(s.found)
	logging.Info("Scanned %s: %d playlists in %v (recursive: %v)", root, len(s.found), time.Since(start), opts.Recursive)
	return s.found, nil
}

type scan struct {
	opts  Options
	retry filesystem.RetryConfig
	found []string
}

func (s *scan) dir(ctx context.Context, dir string, isRoot bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := filesystem.ReadDirWithRetry(dir, s.retry)
	if err != nil {
		if isRoot {
			return fmt.Errorf("scan %s: %w", dir, err)
		}
		logging.Warn("Error reading folder %s: %v", dir, err)
		return nil
	}

	for _, entry := range entries {
		name := entry.Name()
		if s.opts.SkipHidden && strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)

		if entry.IsDir() {
			if !s.opts.Recursive || slices.Contains(s.opts.SkipDirs, name) {
				continue
			}
			if err := s.dir(ctx, path, false); err != nil {
				return err
			}
			continue
		}

		if entry.Type().IsRegular() && playlist.IsPlaylist(name) {
			s.found = append(s.found, path)
		}
	}
	return nil
}
