package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"

	"playlist-relinker/internal/backup"
	"playlist-relinker/internal/database"
	"playlist-relinker/internal/filesystem"
	"playlist-relinker/internal/logging"
	"playlist-relinker/internal/metrics"
	"playlist-relinker/internal/pathmodel"
	"playlist-relinker/internal/playlist"
	"playlist-relinker/internal/remap"
	"playlist-relinker/internal/scanner"
	"playlist-relinker/internal/workers"
)

var (
	// ErrIO marks failures to read, back up or write a playlist file.
	ErrIO = errors.New("playlist i/o")

	// ErrStale is returned by Save when the file on disk no longer holds the
	// bytes it was loaded from.
	ErrStale = errors.New("playlist changed on disk since it was loaded")
)

// Ledger operation names.
const (
	OpSave      = "save"
	OpRelink    = "relink"
	OpDriveSwap = "drive_swap"
	OpRestore   = "restore"
)

// Ledger records saves. *database.Database implements it.
type Ledger interface {
	RecordSave(ctx context.Context, rec database.SaveRecord) (int64, error)
}

// Options configures a Session.
type Options struct {
	// BackupDirName is the folder beside each playlist that holds backups.
	BackupDirName string
	// Ledger, when set, receives one record per save attempt.
	Ledger Ledger
	// Workers bounds parallel loads; 0 picks a count for I/O-bound work.
	Workers int
	// SkipHidden is passed to the scanner.
	SkipHidden bool
}

// Session owns the playlists loaded for one relinking job. Each batch
// operation runs under its own run ID so its saves can be looked up together
// in the ledger.
type Session struct {
	ID string

	backups *backup.Manager
	ledger  Ledger
	workers int
	hidden  bool
	retry   filesystem.RetryConfig
}

// New creates a session.
func New(opts Options) *Session {
	n := opts.Workers
	if n <= 0 {
		n = workers.ForIO(0)
	}
	return &Session{
		ID:      uuid.NewString(),
		backups: backup.NewManager(opts.BackupDirName),
		ledger:  opts.Ledger,
		workers: n,
		hidden:  opts.SkipHidden,
		retry:   filesystem.DefaultRetryConfig(),
	}
}

// BackupManager returns the session's backup manager.
func (s *Session) BackupManager() *backup.Manager {
	return s.backups
}

// SaveResult describes the outcome of writing one playlist.
type SaveResult struct {
	Path           string         `json:"path"`
	Status         string         `json:"status"` // database.StatusSuccess, StatusUnchanged or StatusError
	EntriesChanged int            `json:"entriesChanged"`
	BytesBefore    int            `json:"bytesBefore"`
	BytesAfter     int            `json:"bytesAfter"`
	Backup         *backup.Handle `json:"backup,omitempty"`
	Err            error          `json:"-"`
	Error          string         `json:"error,omitempty"`
}

// FileResult is the per-file outcome of a batch operation.
type FileResult struct {
	SaveResult
	Failures []remap.Failure `json:"failures,omitempty"`
}

func (r *SaveResult) fail(err error) {
	r.Status = database.StatusError
	r.Err = err
	r.Error = err.Error()
}

// Scan lists the playlists under root, skipping backup folders.
func (s *Session) Scan(ctx context.Context, root string, recursive bool) ([]string, error) {
	return scanner.Scan(ctx, root, scanner.Options{
		Recursive:  recursive,
		SkipHidden: s.hidden,
		SkipDirs:   []string{s.backups.DirName()},
	})
}

// Load reads and parses one playlist.
func (s *Session) Load(path string) (*playlist.File, error) {
	data, err := filesystem.ReadFileWithRetry(path, s.retry)
	if err != nil {
		metrics.PlaylistLoadErrors.WithLabelValues("io").Inc()
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
	}

	f, err := playlist.Parse(path, data)
	if err != nil {
		metrics.PlaylistLoadErrors.WithLabelValues("unsupported").Inc()
		return nil, err
	}

	metrics.PlaylistsLoaded.WithLabelValues(f.Format.String()).Inc()
	if len(f.Errors) > 0 {
		metrics.ParseErrors.Add(float64(len(f.Errors)))
		logging.Debug("Loaded %s with %d unparsed lines", path, len(f.Errors))
	}
	return f, nil
}

// LoadAll loads paths in parallel. files[i] is nil when paths[i] failed, in
// which case errs[i] holds the reason. Paths not started before ctx is
// cancelled report the context error.
func (s *Session) LoadAll(ctx context.Context, paths []string) (files []*playlist.File, errs []error) {
	files = make([]*playlist.File, len(paths))
	errs = make([]error, len(paths))
	started := make([]bool, len(paths))

	workers.ForEach(ctx, s.workers, len(paths), func(i int) {
		started[i] = true
		files[i], errs[i] = s.Load(paths[i])
	})

	if err := ctx.Err(); err != nil {
		for i := range paths {
			if !started[i] {
				errs[i] = err
			}
		}
	}
	return files, errs
}

// Group clusters the parsed entries of files by root.
func (s *Session) Group(files []*playlist.File, depth int) []remap.RootGroup {
	return remap.Group(remap.Refs(files...), depth)
}

// Preview shows what replacing oldRoot with newRoot would do to group,
// without modifying anything.
func (s *Session) Preview(group remap.RootGroup, oldRoot, newRoot pathmodel.Path) []remap.Change {
	return remap.PreviewSubstitution(group, oldRoot, newRoot)
}

// Save writes f back to its path. With withBackup the bytes on disk are
// snapshotted first and the write only happens once the snapshot exists. A
// file whose serialization equals what was loaded is not written. Save
// refuses to overwrite a file that changed on disk after it was loaded.
func (s *Session) Save(ctx context.Context, f *playlist.File, withBackup bool) SaveResult {
	return s.save(ctx, s.ID, OpSave, f, withBackup)
}

func (s *Session) save(ctx context.Context, runID, op string, f *playlist.File, withBackup bool) (res SaveResult) {
	start := time.Now()
	res = SaveResult{Path: f.Path, EntriesChanged: f.ChangedEntries(), BytesBefore: len(f.Original())}

	defer func() {
		metrics.SavesTotal.WithLabelValues(res.Status).Inc()
		if res.Status != database.StatusUnchanged {
			metrics.SaveDuration.Observe(time.Since(start).Seconds())
		}
		s.record(ctx, runID, op, res)
	}()

	data, err := playlist.Serialize(f)
	if err != nil {
		res.fail(fmt.Errorf("serialize %s: %w", f.Path, err))
		return res
	}
	res.BytesAfter = len(data)

	if bytes.Equal(data, f.Original()) {
		res.Status = database.StatusUnchanged
		res.EntriesChanged = 0
		return res
	}

	current, err := filesystem.ReadFileWithRetry(f.Path, s.retry)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		res.fail(fmt.Errorf("%w: read %s: %w", ErrIO, f.Path, err))
		return res
	}
	if err != nil || !bytes.Equal(current, f.Original()) {
		res.fail(fmt.Errorf("%w: %s", ErrStale, f.Path))
		return res
	}

	if withBackup {
		h, err := s.backups.SnapshotAndWrite(current, data, f.Path)
		if !h.IsZero() {
			res.Backup = &h
		}
		if err != nil {
			res.fail(fmt.Errorf("%w: %w", ErrIO, err))
			return res
		}
	} else if err := filesystem.WriteFileAtomic(f.Path, data); err != nil {
		res.fail(fmt.Errorf("%w: %w", ErrIO, err))
		return res
	}

	f.MarkSaved(data)
	res.Status = database.StatusSuccess
	logging.Info("Saved %s (%d entries changed)", f.Path, res.EntriesChanged)
	return res
}

// record appends res to the ledger. Ledger failures are logged and never
// change the outcome of a save.
func (s *Session) record(ctx context.Context, runID, op string, res SaveResult) {
	if s.ledger == nil {
		return
	}
	rec := database.SaveRecord{
		RunID:          runID,
		PlaylistPath:   res.Path,
		BytesBefore:    int64(res.BytesBefore),
		BytesAfter:     int64(res.BytesAfter),
		EntriesChanged: res.EntriesChanged,
		Operation:      op,
		Status:         res.Status,
		Error:          res.Error,
	}
	if res.Backup != nil {
		rec.BackupPath = res.Backup.Path
		rec.BackupDigest = res.Backup.Digest
	}
	if _, err := s.ledger.RecordSave(context.WithoutCancel(ctx), rec); err != nil {
		logging.Warn("Failed to record save of %s in ledger: %v", res.Path, err)
	}
}

// Backups lists the backups of path, oldest first.
func (s *Session) Backups(path string) ([]backup.Handle, error) {
	handles, err := s.backups.List(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return handles, nil
}

// Restore copies backupPath over path. The content being replaced is backed
// up first, so a restore can itself be undone.
func (s *Session) Restore(ctx context.Context, path, backupPath string) FileResult {
	start := time.Now()
	res := FileResult{SaveResult: SaveResult{Path: path}}

	defer func() {
		metrics.SavesTotal.WithLabelValues(res.Status).Inc()
		metrics.SaveDuration.Observe(time.Since(start).Seconds())
		s.record(ctx, uuid.NewString(), OpRestore, res.SaveResult)
	}()

	h, data, err := s.backups.Restore(backupPath, path)
	if !h.IsZero() {
		res.Backup = &h
		res.BytesBefore = int(h.Size)
	}
	if err != nil {
		if errors.Is(err, backup.ErrNotBackup) {
			res.fail(err)
		} else {
			res.fail(fmt.Errorf("%w: %w", ErrIO, err))
		}
		return res
	}

	res.BytesAfter = len(data)
	res.Status = database.StatusSuccess
	if res.Backup != nil {
		if current, err := filesystem.ReadFileWithRetry(res.Backup.Path, s.retry); err == nil {
			res.EntriesChanged = changedEntries(path, current, data)
			metrics.EntriesRemapped.WithLabelValues(OpRestore).Add(float64(res.EntriesChanged))
		}
	}
	return res
}

// changedEntries counts the path entries that differ between two versions
// of a playlist. Versions that cannot be parsed count as zero.
func changedEntries(name string, before, after []byte) int {
	a, err := playlist.Parse(name, before)
	if err != nil {
		return 0
	}
	b, err := playlist.Parse(name, after)
	if err != nil {
		return 0
	}
	ea, eb := a.PathEntries(), b.PathEntries()
	n := max(len(ea), len(eb)) - min(len(ea), len(eb))
	for i := range min(len(ea), len(eb)) {
		if ea[i].Text() != eb[i].Text() {
			n++
		}
	}
	return n
}
