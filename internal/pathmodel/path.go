package pathmodel

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPathMismatch is returned when a path does not start with the prefix a
// substitution expects.
var ErrPathMismatch = errors.New("path does not start with prefix")

// NoDriveKey is the key prefix used for paths that carry neither a drive
// letter nor a UNC volume.
const NoDriveKey = "<no-drive>"

const (
	// SepBackslash is the Windows separator.
	SepBackslash byte = '\\'
	// SepSlash is the POSIX separator.
	SepSlash byte = '/'
)

// Path is a parsed playlist path. The zero value is the empty relative path.
type Path struct {
	drive  string // single letter in its original case, empty when absent
	unc    bool   // parts[0] and parts[1] are the server and share
	abs    bool
	sep    byte
	sepSet bool // sep was observed in the text rather than defaulted
	parts  []string

	// raw holds the original text of a path written with mixed separators,
	// which components alone cannot reproduce. Cleared once components change.
	raw string
}

// Parse parses s into a Path. Parse never fails: every string has a
// structural reading even when it is not a path anyone would write.
func Parse(s string) Path {
	p := Path{}
	p.sep, p.sepSet = detectSeparator(s)
	if strings.Contains(s, `\`) && strings.Contains(s, "/") {
		p.raw = s
	}

	rest := s
	switch {
	case hasDrive(rest):
		p.drive = rest[:1]
		rest = rest[2:]
		if rest != "" && isSep(rest[0]) {
			p.abs = true
			rest = rest[1:]
		}
	case len(rest) >= 2 && isSep(rest[0]) && isSep(rest[1]):
		p.unc = true
		p.abs = true
		rest = rest[2:]
	case rest != "" && isSep(rest[0]):
		p.abs = true
		rest = rest[1:]
	}

	p.parts = splitParts(rest)
	return p
}

func hasDrive(s string) bool {
	if len(s) < 2 || s[1] != ':' {
		return false
	}
	c := s[0]
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isSep(c byte) bool {
	return c == SepBackslash || c == SepSlash
}

// detectSeparator returns the first separator in s. Text without any
// separator defaults to backslash when it starts with a drive letter.
func detectSeparator(s string) (byte, bool) {
	if i := strings.IndexAny(s, `\/`); i >= 0 {
		return s[i], true
	}
	if hasDrive(s) {
		return SepBackslash, false
	}
	return SepSlash, false
}

// splitParts splits on either separator and keeps empty components so that
// doubled and trailing separators survive a round trip.
func splitParts(s string) []string {
	if s == "" {
		return nil
	}
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if isSep(s[i]) {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// String serializes the path with its recorded separator.
func (p Path) String() string {
	if p.raw != "" {
		return p.raw
	}

	var b strings.Builder
	switch {
	case p.drive != "":
		b.WriteString(p.drive)
		b.WriteByte(':')
		if p.abs {
			b.WriteByte(p.sep)
		}
	case p.unc:
		b.WriteByte(p.sep)
		b.WriteByte(p.sep)
	case p.abs:
		b.WriteByte(p.sep)
	}

	for i, part := range p.parts {
		if i > 0 {
			b.WriteByte(p.sep)
		}
		b.WriteString(part)
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Path) UnmarshalText(text []byte) error {
	*p = Parse(string(text))
	return nil
}

// Drive returns the upper-cased drive letter, or "" when the path has none.
func (p Path) Drive() string {
	return strings.ToUpper(p.drive)
}

// HasDrive reports whether the path starts with a drive designator.
func (p Path) HasDrive() bool {
	return p.drive != ""
}

// IsUNC reports whether the path is a \\server\share path.
func (p Path) IsUNC() bool {
	return p.unc
}

// IsAbs reports whether the path is rooted.
func (p Path) IsAbs() bool {
	return p.abs
}

// IsZero reports whether p is the empty path.
func (p Path) IsZero() bool {
	return p.drive == "" && !p.unc && !p.abs && len(p.parts) == 0
}

// Separator returns the separator used when serializing.
func (p Path) Separator() byte {
	return p.sep
}

// Components returns a copy of the path components. For UNC paths the first
// two components are the server and share.
func (p Path) Components() []string {
	return append([]string(nil), p.parts...)
}

// Volume returns the drive designator ("C:") or UNC volume (\\server\share)
// as written, or "" for paths without either.
func (p Path) Volume() string {
	switch {
	case p.drive != "":
		return p.drive + ":"
	case p.unc:
		n := len(p.parts)
		if n > 2 {
			n = 2
		}
		return `\\` + strings.Join(p.parts[:n], `\`)
	}
	return ""
}

// Root returns the volume plus the first depth directory components. The
// final component is treated as the file name and never becomes part of a
// root, so a file sitting directly on a drive has the drive as its root.
func (p Path) Root(depth int) Path {
	if depth < 0 {
		depth = 0
	}
	volume := 0
	if p.unc {
		volume = min(2, len(p.parts))
	}
	dirs := max(len(p.parts)-volume-1, 0)
	n := volume + min(depth, dirs)

	return Path{
		drive:  p.drive,
		unc:    p.unc,
		abs:    p.abs,
		sep:    p.sep,
		sepSet: p.sepSet,
		parts:  append([]string(nil), p.parts[:n]...),
	}
}

// Key returns a canonical form used to cluster paths: drive letter upper
// cased, UNC server and share lower cased, backslash separators. Paths with
// no volume are keyed under NoDriveKey.
func (p Path) Key() string {
	var b strings.Builder
	switch {
	case p.drive != "":
		b.WriteString(strings.ToUpper(p.drive))
		b.WriteByte(':')
		if p.abs {
			b.WriteByte('\\')
		}
	case p.unc:
		b.WriteString(`\\`)
	default:
		b.WriteString(NoDriveKey)
		b.WriteByte(':')
		if p.abs {
			b.WriteByte('\\')
		}
	}

	for i, part := range p.parts {
		if i > 0 {
			b.WriteByte('\\')
		}
		if p.unc && i < 2 {
			part = strings.ToLower(part)
		}
		b.WriteString(part)
	}
	return b.String()
}

// significant returns the components with trailing empty components removed,
// so a prefix written as "S:\Music\" behaves like "S:\Music".
func (p Path) significant() []string {
	n := len(p.parts)
	for n > 0 && p.parts[n-1] == "" {
		n--
	}
	return p.parts[:n]
}

// StartsWith reports whether prefix is a component-wise prefix of p.
// Components compare case-sensitively; the drive letter and the UNC server
// and share compare case-insensitively. A bare drive such as "S:" is the
// whole drive and matches absolute paths on it as well.
func (p Path) StartsWith(prefix Path) bool {
	bareDrive := prefix.drive != "" && !prefix.abs && len(prefix.significant()) == 0
	if p.unc != prefix.unc || (p.abs != prefix.abs && !bareDrive) {
		return false
	}
	if !strings.EqualFold(p.drive, prefix.drive) {
		return false
	}

	want := prefix.significant()
	if len(want) > len(p.parts) {
		return false
	}
	for i, part := range want {
		if p.unc && i < 2 {
			if !strings.EqualFold(part, p.parts[i]) {
				return false
			}
			continue
		}
		if part != p.parts[i] {
			return false
		}
	}
	return true
}

// ReplacePrefix returns a copy of p with oldPrefix's components removed from
// the front and newPrefix's components prepended. The volume comes from
// newPrefix, and so does the separator when newPrefix was written with one.
func (p Path) ReplacePrefix(oldPrefix, newPrefix Path) (Path, error) {
	if !p.StartsWith(oldPrefix) {
		return Path{}, fmt.Errorf("%w: %q does not start with %q", ErrPathMismatch, p.String(), oldPrefix.String())
	}

	head := newPrefix.significant()
	tail := p.parts[len(oldPrefix.significant()):]
	parts := make([]string, 0, len(head)+len(tail))
	parts = append(parts, head...)
	parts = append(parts, tail...)

	sep, sepSet := p.sep, p.sepSet
	if newPrefix.sepSet {
		sep, sepSet = newPrefix.sep, true
	}

	// A bare "E:" replacing the root of an absolute path means "E:".
	abs := newPrefix.abs
	if newPrefix.drive != "" && len(head) == 0 && p.abs {
		abs = true
	}

	return Path{
		drive:  newPrefix.drive,
		unc:    newPrefix.unc,
		abs:    abs,
		sep:    sep,
		sepSet: sepSet,
		parts:  parts,
	}, nil
}

// WithDrive returns a copy of p with its drive letter replaced. Paths
// without a drive letter are returned unchanged. Everything after the
// designator, including mixed separators, is kept verbatim.
func (p Path) WithDrive(letter string) Path {
	if p.drive == "" {
		return p
	}
	q := p
	q.drive = letter
	q.parts = append([]string(nil), p.parts...)
	if p.raw != "" {
		q.raw = letter + p.raw[1:]
	}
	return q
}

// Equal reports whether p and o serialize to the same text.
func (p Path) Equal(o Path) bool {
	return p.String() == o.String()
}
