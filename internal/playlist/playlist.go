package playlist

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"playlist-relinker/internal/pathmodel"
)

var (
	// ErrUnsupportedFormat is returned for files that are not a known playlist type.
	ErrUnsupportedFormat = errors.New("unsupported playlist format")
	// ErrEncoding is returned when text cannot be represented in a file's encoding.
	ErrEncoding = errors.New("encoding error")
	// ErrBinaryFieldSize is returned when a binary path field would change length.
	ErrBinaryFieldSize = errors.New("binary path field cannot change length")
)

// ParseError describes a line or record that could not be interpreted. The
// offending content is kept verbatim; a ParseError never aborts a file.
type ParseError struct {
	Line   int    `json:"line"`   // 1-based line number, or record index for binary files
	Text   string `json:"text"`   // the verbatim content
	Reason string `json:"reason"` // why it was not parsed
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// Format identifies how a playlist is stored on disk.
type Format int

const (
	// FormatPlainText is a line-oriented text playlist.
	FormatPlainText Format = iota
	// FormatBinary is an opaque binary playlist.
	FormatBinary
)

func (f Format) String() string {
	switch f {
	case FormatPlainText:
		return "text"
	case FormatBinary:
		return "binary"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// Encoding is the character encoding of a text playlist.
type Encoding string

const (
	// EncodingUTF8 is UTF-8, with or without a byte order mark.
	EncodingUTF8 Encoding = "utf-8"
	// EncodingLatin1 is ISO-8859-1, used when a file is not valid UTF-8.
	EncodingLatin1 Encoding = "iso-8859-1"
)

// TextExtensions maps file extensions to whether they are plain-text playlists.
var TextExtensions = map[string]bool{
	".m3u":    true,
	".m3u8":   true,
	".fplite": true,
	".txt":    true,
}

// BinaryExtensions maps file extensions to whether they are binary playlists.
var BinaryExtensions = map[string]bool{
	".fpl": true,
}

// IsPlaylist reports whether filename has a supported playlist extension.
func IsPlaylist(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return TextExtensions[ext] || BinaryExtensions[ext]
}

// DetectFormat decides how to read a file from its name and leading bytes.
// A binary-extension file that does not carry the binary header but reads as
// valid UTF-8 text is treated as plain text.
func DetectFormat(filename string, sniffed []byte) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case TextExtensions[ext]:
		return FormatPlainText, nil
	case BinaryExtensions[ext]:
		if !hasBinaryMagic(sniffed) && looksLikeText(sniffed) {
			return FormatPlainText, nil
		}
		return FormatBinary, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Base(filename))
}

// looksLikeText reports whether b is NUL-free UTF-8, allowing for a rune cut
// in half at the end of the sniffed window.
func looksLikeText(b []byte) bool {
	if len(b) == 0 || bytes.IndexByte(b, 0) >= 0 {
		return false
	}
	for cut := 0; cut < utf8.UTFMax && cut < len(b); cut++ {
		if utf8.Valid(b[:len(b)-cut]) {
			return true
		}
	}
	return false
}

// Entry is one media reference in a playlist together with the verbatim
// content that surrounds it.
type Entry struct {
	// Prefix holds the metadata, comment and blank lines that precede this
	// entry, each with its original terminator.
	Prefix []string
	Lead   string // whitespace before the reference
	URI    string // "file://" style prefix as written, or ""
	Path   pathmodel.Path
	Trail  string // whitespace after the reference
	EOL    string // line terminator, "" for a final unterminated line

	// Raw is the verbatim line content of an entry that could not be parsed.
	Raw    string
	Parsed bool
	Err    *ParseError

	Line int // 1-based line number, or record index for binary files

	changed  bool
	encoding Encoding
	width    int // encoded field size for binary entries, 0 for text
	offset   int // byte offset of the field for binary entries
}

// Text returns the reference as written in the file, URI prefix included.
func (e *Entry) Text() string {
	if !e.Parsed {
		return e.Raw
	}
	return e.URI + e.Path.String()
}

// Changed reports whether the entry's path has been replaced since loading.
func (e *Entry) Changed() bool {
	return e.changed
}

// CheckPath reports whether p could replace the entry's path without
// breaking the file: the entry must be parsed, the new text must be
// representable in the file's encoding, and binary fields must keep their size.
func (e *Entry) CheckPath(p pathmodel.Path) error {
	if !e.Parsed {
		return fmt.Errorf("line %d is not a parsed path", e.Line)
	}
	text := e.URI + p.String()
	if e.width > 0 && len(text) != e.width {
		return fmt.Errorf("%w: %d bytes, field holds %d", ErrBinaryFieldSize, len(text), e.width)
	}
	if e.encoding == EncodingLatin1 {
		for _, r := range text {
			if r > 0xFF {
				return fmt.Errorf("%w: %q is not representable in %s", ErrEncoding, r, e.encoding)
			}
		}
	}
	return nil
}

// SetPath replaces the entry's path after CheckPath accepts it.
func (e *Entry) SetPath(p pathmodel.Path) error {
	if err := e.CheckPath(p); err != nil {
		return err
	}
	if p.String() == e.Path.String() {
		e.Path = p
		return nil
	}
	e.Path = p
	e.changed = true
	return nil
}

// File is a loaded playlist. A File is owned by one session at a time and is
// not safe for concurrent mutation.
type File struct {
	Path       string
	Format     Format
	Encoding   Encoding
	BOM        bool
	LineEnding string // dominant terminator, informational

	Entries []*Entry
	Trailer []string // verbatim lines after the last entry

	// Errors collects every ParseError recovered while loading.
	Errors []*ParseError

	original []byte
}

// Original returns the bytes the file was parsed from. The returned slice
// must not be modified.
func (f *File) Original() []byte {
	return f.original
}

// Modified reports whether any entry's path has changed since loading.
func (f *File) Modified() bool {
	for _, e := range f.Entries {
		if e.changed {
			return true
		}
	}
	return false
}

// ChangedEntries returns the number of entries whose path changed.
func (f *File) ChangedEntries() int {
	n := 0
	for _, e := range f.Entries {
		if e.changed {
			n++
		}
	}
	return n
}

// PathEntries returns the parsed entries in playlist order.
func (f *File) PathEntries() []*Entry {
	entries := make([]*Entry, 0, len(f.Entries))
	for _, e := range f.Entries {
		if e.Parsed {
			entries = append(entries, e)
		}
	}
	return entries
}

// Parse decodes data read from name.
func Parse(name string, data []byte) (*File, error) {
	format, err := DetectFormat(name, sniff(data))
	if err != nil {
		return nil, err
	}

	var f *File
	switch format {
	case FormatBinary:
		f = parseBinary(data)
	default:
		f = parseText(data)
	}
	f.Path = name
	f.original = data
	return f, nil
}

// Serialize encodes f back to bytes. An unmodified File serializes to
// exactly the bytes it was parsed from.
func Serialize(f *File) ([]byte, error) {
	if f.Format == FormatBinary {
		return serializeBinary(f)
	}
	return serializeText(f)
}

// MarkSaved records that data, the serialized form of f, is now on disk.
// Entries stop reporting changes and later saves compare against data.
func (f *File) MarkSaved(data []byte) {
	f.original = data
	for _, e := range f.Entries {
		e.changed = false
	}
}

func sniff(data []byte) []byte {
	const sniffLen = 512
	if len(data) > sniffLen {
		return data[:sniffLen]
	}
	return data
}
