package remap

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"playlist-relinker/internal/pathmodel"
	"playlist-relinker/internal/playlist"
)

var (
	// ErrAmbiguousDriveSwap is returned for drive mappings whose outcome is
	// not well defined.
	ErrAmbiguousDriveSwap = errors.New("ambiguous drive swap")

	// ErrInvalidDriveMapping is returned for drive mapping pairs that cannot
	// be parsed.
	ErrInvalidDriveMapping = errors.New("invalid drive mapping")
)

// Change is a pending replacement of one entry's path.
type Change struct {
	Ref    Ref            `json:"-"`
	File   string         `json:"file"`
	Line   int            `json:"line"`
	Before pathmodel.Path `json:"before"`
	After  pathmodel.Path `json:"after"`

	Err error `json:"-"` // set by PreviewSubstitution for entries that cannot change
}

// Failure is an entry a substitution could not be applied to. The entry is
// left untouched.
type Failure struct {
	Ref  Ref            `json:"-"`
	File string         `json:"file"`
	Line int            `json:"line"`
	Path pathmodel.Path `json:"path"`
	Err  error          `json:"-"`
}

// Reason classifies the failure for reporting.
func (f Failure) Reason() string {
	switch {
	case errors.Is(f.Err, pathmodel.ErrPathMismatch):
		return "mismatch"
	case errors.Is(f.Err, playlist.ErrEncoding):
		return "encoding"
	case errors.Is(f.Err, playlist.ErrBinaryFieldSize):
		return "field_size"
	default:
		return "other"
	}
}

// MarshalJSON adds the reason and error text, which the struct tags omit.
func (f Failure) MarshalJSON() ([]byte, error) {
	type plain Failure
	return json.Marshal(struct {
		plain
		Reason string `json:"reason"`
		Error  string `json:"error,omitempty"`
	}{plain(f), f.Reason(), errText(f.Err)})
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Error returns the failure's error text.
func (f Failure) Error() string {
	return fmt.Sprintf("%s:%d: %v", f.File, f.Line, f.Err)
}

// Result holds the outcome of a substitution. Updated lists the changes that
// will be applied by Commit; Failures lists entries left as they are.
type Result struct {
	Updated  []Change
	Failures []Failure
}

// Commit writes the pending changes into their entries and returns how many
// were applied. A change its entry refuses at this point moves to Failures.
func (r *Result) Commit() int {
	applied := make([]Change, 0, len(r.Updated))
	for _, c := range r.Updated {
		if err := c.Ref.Entry.SetPath(c.After); err != nil {
			r.Failures = append(r.Failures, failure(c.Ref, err))
			continue
		}
		applied = append(applied, c)
	}
	r.Updated = applied
	return len(applied)
}

// Files returns the distinct playlists touched by the pending changes.
func (r *Result) Files() []*playlist.File {
	var files []*playlist.File
	seen := make(map[*playlist.File]bool)
	for _, c := range r.Updated {
		if !seen[c.Ref.File] {
			seen[c.Ref.File] = true
			files = append(files, c.Ref.File)
		}
	}
	return files
}

func failure(ref Ref, err error) Failure {
	return Failure{
		Ref:  ref,
		File: ref.File.Path,
		Line: ref.Entry.Line,
		Path: ref.Entry.Path,
		Err:  err,
	}
}

func change(ref Ref, after pathmodel.Path) Change {
	return Change{
		Ref:    ref,
		File:   ref.File.Path,
		Line:   ref.Entry.Line,
		Before: ref.Entry.Path,
		After:  after,
	}
}

// PreviewSubstitution returns, for every member of group in order, the path
// it has now and the path it would have after replacing oldRoot with newRoot.
// Members that cannot be rewritten keep After equal to Before and carry Err.
// Nothing is modified.
func PreviewSubstitution(group RootGroup, oldRoot, newRoot pathmodel.Path) []Change {
	changes := make([]Change, 0, len(group.Members))
	for _, ref := range group.Members {
		after, err := ref.Path().ReplacePrefix(oldRoot, newRoot)
		if err == nil {
			err = ref.Entry.CheckPath(after)
		}
		c := change(ref, after)
		if err != nil {
			c.After = c.Before
			c.Err = err
		}
		changes = append(changes, c)
	}
	return changes
}

// ApplyRootSubstitution computes the replacement of oldRoot by newRoot for
// every member of group. Members that do not start with oldRoot are reported
// with pathmodel.ErrPathMismatch and do not stop the others. Members whose
// path would not change are neither updated nor failed.
func ApplyRootSubstitution(group RootGroup, oldRoot, newRoot pathmodel.Path) Result {
	var res Result
	for _, c := range PreviewSubstitution(group, oldRoot, newRoot) {
		switch {
		case c.Err != nil:
			res.Failures = append(res.Failures, failure(c.Ref, c.Err))
		case !c.After.Equal(c.Before):
			res.Updated = append(res.Updated, c)
		}
	}
	return res
}

// DriveMapping maps upper-case source drive letters to target letters.
type DriveMapping map[string]string

// ParseDriveMapping parses pairs written as "C=D", "C:=D:" or "C>D".
func ParseDriveMapping(pairs []string) (DriveMapping, error) {
	m := make(DriveMapping, len(pairs))
	for _, pair := range pairs {
		from, to, ok := strings.Cut(pair, "=")
		if !ok {
			from, to, ok = strings.Cut(pair, ">")
		}
		if !ok {
			return nil, fmt.Errorf("%w: %q is not of the form C=D", ErrInvalidDriveMapping, pair)
		}
		from = strings.ToUpper(strings.TrimSuffix(strings.TrimSpace(from), ":"))
		to = strings.ToUpper(strings.TrimSuffix(strings.TrimSpace(to), ":"))
		if prev, dup := m[from]; dup && prev != to {
			return nil, fmt.Errorf("%w: %s mapped to both %s and %s", ErrAmbiguousDriveSwap, from, prev, to)
		}
		m[from] = to
	}
	return m, nil
}

func validLetter(s string) bool {
	return len(s) == 1 && ((s[0] >= 'A' && s[0] <= 'Z') || (s[0] >= 'a' && s[0] <= 'z'))
}

// Validate returns a normalised copy of m with identity pairs removed. It
// fails with ErrAmbiguousDriveSwap when a letter is invalid or when two
// sources, counting an explicit identity pair, share a target.
func (m DriveMapping) Validate() (DriveMapping, error) {
	targets := make(map[string]string, len(m))
	sources := make(map[string]string, len(m))
	for from, to := range m {
		if !validLetter(from) || !validLetter(to) {
			return nil, fmt.Errorf("%w: %q -> %q is not a drive letter pair", ErrAmbiguousDriveSwap, from, to)
		}
		from, to = strings.ToUpper(from), strings.ToUpper(to)
		if prev, dup := sources[from]; dup && prev != to {
			a, b := min(prev, to), max(prev, to)
			return nil, fmt.Errorf("%w: %s mapped to both %s and %s", ErrAmbiguousDriveSwap, from, a, b)
		}
		sources[from] = to
		if other, taken := targets[to]; taken && other != from {
			a, b := min(other, from), max(other, from)
			return nil, fmt.Errorf("%w: %s and %s both map to %s", ErrAmbiguousDriveSwap, a, b, to)
		}
		targets[to] = from
	}

	out := make(DriveMapping, len(m))
	for to, from := range targets {
		if from != to {
			out[from] = to
		}
	}
	return out, nil
}

// ApplyDriveSwap computes the drive letter change for every entry of files.
// Target letters are looked up in a snapshot of the mapping taken before any
// entry is examined, and each entry is translated at most once. Entries on
// drives the mapping does not name are left alone. The drive letter keeps the
// case it was written in.
func ApplyDriveSwap(files []*playlist.File, mapping DriveMapping) (Result, error) {
	snapshot, err := mapping.Validate()
	if err != nil {
		return Result{}, err
	}

	var res Result
	if len(snapshot) == 0 {
		return res, nil
	}
	for _, ref := range Refs(files...) {
		p := ref.Path()
		target, ok := snapshot[p.Drive()]
		if !ok {
			continue
		}
		if written := p.String()[:1]; written != p.Drive() {
			target = strings.ToLower(target)
		}
		after := p.WithDrive(target)
		if err := ref.Entry.CheckPath(after); err != nil {
			res.Failures = append(res.Failures, failure(ref, err))
			continue
		}
		res.Updated = append(res.Updated, change(ref, after))
	}
	return res, nil
}
