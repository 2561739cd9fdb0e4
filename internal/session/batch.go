package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"playlist-relinker/internal/database"
	"playlist-relinker/internal/logging"
	"playlist-relinker/internal/metrics"
	"playlist-relinker/internal/pathmodel"
	"playlist-relinker/internal/playlist"
	"playlist-relinker/internal/remap"
)

// ErrInvalidSubstitution is returned by Relink for substitutions that are
// empty or whose old roots overlap.
var ErrInvalidSubstitution = errors.New("invalid substitution")

// Substitution replaces the root Old with New.
type Substitution struct {
	Old pathmodel.Path `json:"old"`
	New pathmodel.Path `json:"new"`
}

// ParseSubstitutions parses pairs written as "OLD=NEW".
func ParseSubstitutions(pairs []string) ([]Substitution, error) {
	subs := make([]Substitution, 0, len(pairs))
	for _, pair := range pairs {
		old, repl, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not of the form OLD=NEW", ErrInvalidSubstitution, pair)
		}
		subs = append(subs, Substitution{Old: pathmodel.Parse(old), New: pathmodel.Parse(repl)})
	}
	return subs, nil
}

func validateSubstitutions(subs []Substitution) error {
	for i, a := range subs {
		if a.Old.IsZero() || a.New.IsZero() {
			return fmt.Errorf("%w: empty root in %q=%q", ErrInvalidSubstitution, a.Old, a.New)
		}
		for _, b := range subs[i+1:] {
			if a.Old.StartsWith(b.Old) || b.Old.StartsWith(a.Old) {
				return fmt.Errorf("%w: %q and %q overlap", ErrInvalidSubstitution, a.Old, b.Old)
			}
		}
	}
	return nil
}

// BatchDriveSwap applies mapping to every playlist in paths and saves the
// ones that changed, each with a backup. Files are processed independently:
// one file failing to load, back up or write does not stop the others, and
// ctx is checked before each file. The mapping is validated up front; an
// ambiguous mapping touches nothing and is returned as the error.
func (s *Session) BatchDriveSwap(ctx context.Context, paths []string, mapping remap.DriveMapping) ([]FileResult, error) {
	snapshot, err := mapping.Validate()
	if err != nil {
		metrics.DriveSwapBatches.WithLabelValues("rejected").Inc()
		return nil, err
	}

	runID := uuid.NewString()
	logging.Info("Drive swap %s: %d playlists, mapping %v", runID, len(paths), snapshot)

	files, errs := s.LoadAll(ctx, paths)
	results := make([]FileResult, len(paths))

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			results[i] = s.failed(ctx, runID, OpDriveSwap, path, err)
			continue
		}
		if errs[i] != nil {
			results[i] = s.failed(ctx, runID, OpDriveSwap, path, errs[i])
			continue
		}

		f := files[i]
		res, err := remap.ApplyDriveSwap([]*playlist.File{f}, snapshot)
		if err != nil {
			results[i] = s.failed(ctx, runID, OpDriveSwap, path, err)
			continue
		}
		res.Commit()
		results[i] = s.saveResult(ctx, runID, OpDriveSwap, f, res.Failures)
	}

	status := batchStatus(ctx, results)
	metrics.DriveSwapBatches.WithLabelValues(status).Inc()
	logging.Info("Drive swap %s finished: %s", runID, status)
	return results, nil
}

// Relink loads paths, groups their entries at depth and replaces each
// substitution's old root with its new one across every file at once.
// Entries under a matching group that do not start with the old root are
// reported and left as they are. Changed files are saved with a backup.
func (s *Session) Relink(ctx context.Context, paths []string, subs []Substitution, depth int) ([]FileResult, error) {
	if err := validateSubstitutions(subs); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logging.Info("Relink %s: %d playlists, %d substitutions", runID, len(paths), len(subs))

	files, errs := s.LoadAll(ctx, paths)
	var loaded []*playlist.File
	for _, f := range files {
		if f != nil {
			loaded = append(loaded, f)
		}
	}

	// compute every change before committing any, so substitutions never chain
	var results []remap.Result
	groups := s.Group(loaded, depth)
	filter := newFailureFilter(groups, subs)
	for _, sub := range subs {
		matched := matchingGroups(groups, sub.Old)
		if len(matched) == 0 {
			logging.Warn("Relink %s: no entries under %s", runID, sub.Old)
		}
		for _, g := range matched {
			results = append(results, remap.ApplyRootSubstitution(g, sub.Old, sub.New))
		}
	}

	failures := make(map[*playlist.File][]remap.Failure)
	for i := range results {
		results[i].Commit()
		for _, fl := range results[i].Failures {
			if filter.keep(fl.Ref.Entry, fl.Err) {
				failures[fl.Ref.File] = append(failures[fl.Ref.File], fl)
			}
		}
	}
	for _, fls := range failures {
		slices.SortStableFunc(fls, func(a, b remap.Failure) int { return a.Line - b.Line })
	}

	out := make([]FileResult, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			out[i] = s.failed(ctx, runID, OpRelink, path, err)
			continue
		}
		if errs[i] != nil {
			out[i] = s.failed(ctx, runID, OpRelink, path, errs[i])
			continue
		}
		out[i] = s.saveResult(ctx, runID, OpRelink, files[i], failures[files[i]])
	}

	logging.Info("Relink %s finished: %s", runID, batchStatus(ctx, out))
	return out, nil
}

// PreviewRelink returns the changes Relink would make to files, one per
// entry of every group a substitution touches. Nothing is modified.
func (s *Session) PreviewRelink(files []*playlist.File, subs []Substitution, depth int) ([]remap.Change, error) {
	if err := validateSubstitutions(subs); err != nil {
		return nil, err
	}
	var changes []remap.Change
	groups := s.Group(files, depth)
	filter := newFailureFilter(groups, subs)
	for _, sub := range subs {
		for _, g := range matchingGroups(groups, sub.Old) {
			for _, c := range s.Preview(g, sub.Old, sub.New) {
				if c.Err == nil || filter.keep(c.Ref.Entry, c.Err) {
					changes = append(changes, c)
				}
			}
		}
	}
	return changes, nil
}

// failureFilter drops the mismatches that several substitutions sharing a
// group report for one another's entries. An entry under some substitution's
// old root is never a mismatch, and an entry no substitution claims is
// reported once.
type failureFilter struct {
	claimed  map[*playlist.Entry]bool
	reported map[*playlist.Entry]bool
}

func newFailureFilter(groups []remap.RootGroup, subs []Substitution) *failureFilter {
	ff := &failureFilter{
		claimed:  make(map[*playlist.Entry]bool),
		reported: make(map[*playlist.Entry]bool),
	}
	for _, sub := range subs {
		for _, g := range matchingGroups(groups, sub.Old) {
			for _, m := range g.Members {
				if m.Path().StartsWith(sub.Old) {
					ff.claimed[m.Entry] = true
				}
			}
		}
	}
	return ff
}

// keep reports whether the failure err of entry should be reported.
func (ff *failureFilter) keep(entry *playlist.Entry, err error) bool {
	if !errors.Is(err, pathmodel.ErrPathMismatch) {
		return true
	}
	if ff.claimed[entry] || ff.reported[entry] {
		return false
	}
	ff.reported[entry] = true
	return true
}

// matchingGroups returns the groups whose root lies under old, or contains
// it when old is deeper than the grouping depth.
func matchingGroups(groups []remap.RootGroup, old pathmodel.Path) []remap.RootGroup {
	var out []remap.RootGroup
	for _, g := range groups {
		if g.Root.StartsWith(old) || old.StartsWith(g.Root) {
			out = append(out, g)
		}
	}
	return out
}

// saveResult saves f after a committed substitution and attaches the
// entries that could not be changed.
func (s *Session) saveResult(ctx context.Context, runID, op string, f *playlist.File, failures []remap.Failure) FileResult {
	for _, fl := range failures {
		metrics.SubstitutionFailures.WithLabelValues(fl.Reason()).Inc()
	}
	res := FileResult{
		SaveResult: s.save(ctx, runID, op, f, true),
		Failures:   failures,
	}
	if res.Status == database.StatusSuccess {
		metrics.EntriesRemapped.WithLabelValues(op).Add(float64(res.EntriesChanged))
	}
	return res
}

// failed builds and records the result for a file that never reached save.
func (s *Session) failed(ctx context.Context, runID, op, path string, err error) FileResult {
	res := FileResult{SaveResult: SaveResult{Path: path}}
	res.fail(err)
	metrics.SavesTotal.WithLabelValues(res.Status).Inc()
	s.record(ctx, runID, op, res.SaveResult)
	return res
}

func batchStatus(ctx context.Context, results []FileResult) string {
	if ctx.Err() != nil {
		return "cancelled"
	}
	for _, r := range results {
		if r.Status == database.StatusError {
			return "partial"
		}
	}
	return "success"
}
