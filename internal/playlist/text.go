package playlist

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"playlist-relinker/internal/pathmodel"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// latin1BOM is how a UTF-8 byte order mark reads after ISO-8859-1 decoding.
const latin1BOM = "ï»¿"

// uriPrefixes are checked longest first.
var uriPrefixes = []string{"file:///", "file://", `file:\\`, `file:\`}

// urlScheme matches references such as http:// streams that are not files.
var urlScheme = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]+://`)

type line struct {
	content string
	eol     string
}

// decode returns the text of data, the encoding it was read with, and
// whether a UTF-8 byte order mark was stripped.
func decode(data []byte) (string, Encoding, bool) {
	body, bom := data, false
	if bytes.HasPrefix(data, utf8BOM) {
		body, bom = data[len(utf8BOM):], true
	}
	if utf8.Valid(body) {
		return string(body), EncodingUTF8, bom
	}

	// ISO-8859-1 maps every byte to exactly one rune, so this cannot fail
	// and encodes back to the same bytes.
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(data), EncodingLatin1, false
	}
	return string(text), EncodingLatin1, false
}

func encode(text string, enc Encoding, bom bool) ([]byte, error) {
	switch enc {
	case EncodingLatin1:
		out, err := charmap.ISO8859_1.NewEncoder().String(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
		}
		return []byte(out), nil
	default:
		if !bom {
			return []byte(text), nil
		}
		out := make([]byte, 0, len(utf8BOM)+len(text))
		out = append(out, utf8BOM...)
		return append(out, text...), nil
	}
}

// splitLines splits text into lines, keeping each line's own terminator.
func splitLines(text string) []line {
	var lines []line
	for i := 0; i < len(text); {
		j := strings.IndexAny(text[i:], "\r\n")
		if j < 0 {
			lines = append(lines, line{content: text[i:]})
			break
		}
		j += i
		eol := text[j : j+1]
		if text[j] == '\r' && j+1 < len(text) && text[j+1] == '\n' {
			eol = "\r\n"
		}
		lines = append(lines, line{content: text[i:j], eol: eol})
		i = j + len(eol)
	}
	return lines
}

func dominantEOL(lines []line) string {
	counts := map[string]int{}
	for _, l := range lines {
		if l.eol != "" {
			counts[l.eol]++
		}
	}
	best, bestCount := "\n", 0
	for _, eol := range []string{"\r\n", "\n", "\r"} {
		if counts[eol] > bestCount {
			best, bestCount = eol, counts[eol]
		}
	}
	return best
}

func parseText(data []byte) *File {
	text, enc, bom := decode(data)
	lines := splitLines(text)
	f := &File{
		Format:     FormatPlainText,
		Encoding:   enc,
		BOM:        bom,
		LineEnding: dominantEOL(lines),
	}

	var pending []string
	for i, l := range lines {
		if isSideContent(l.content, i == 0) {
			pending = append(pending, l.content+l.eol)
			continue
		}

		e := parseLine(l.content, i == 0)
		e.EOL = l.eol
		e.Line = i + 1
		e.Prefix = pending
		e.encoding = enc
		pending = nil

		if e.Err != nil {
			e.Err.Line = e.Line
			f.Errors = append(f.Errors, e.Err)
		}
		f.Entries = append(f.Entries, e)
	}
	f.Trailer = pending
	return f
}

// isSideContent reports whether a line is blank or a metadata/comment line.
func isSideContent(content string, first bool) bool {
	if first {
		content = strings.TrimPrefix(content, latin1BOM)
	}
	trimmed := strings.Trim(content, " \t")
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}

func parseLine(content string, first bool) *Entry {
	lead := ""
	body := content
	if first && strings.HasPrefix(body, latin1BOM) {
		lead, body = latin1BOM, body[len(latin1BOM):]
	}
	trimmedLeft := strings.TrimLeft(body, " \t")
	lead += body[:len(body)-len(trimmedLeft)]
	core := strings.TrimRight(trimmedLeft, " \t")
	trail := trimmedLeft[len(core):]

	uri, ref := splitURI(core)
	if reason := rejectReference(ref); reason != "" {
		return &Entry{
			Raw: content,
			Err: &ParseError{Text: content, Reason: reason},
		}
	}

	return &Entry{
		Lead:   lead,
		URI:    uri,
		Path:   pathmodel.Parse(ref),
		Trail:  trail,
		Parsed: true,
	}
}

// splitURI separates a "file://" style prefix from the path it wraps. A
// "file:///" prefix in front of a POSIX path gives its third slash back to
// the path so the path stays absolute.
func splitURI(s string) (string, string) {
	lower := strings.ToLower(s)
	for _, prefix := range uriPrefixes {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		n := len(prefix)
		if prefix == "file:///" && !startsWithDrive(s[n:]) {
			n--
		}
		return s[:n], s[n:]
	}
	return "", s
}

func startsWithDrive(s string) bool {
	if len(s) < 2 || s[1] != ':' {
		return false
	}
	c := s[0]
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func rejectReference(ref string) string {
	if ref == "" {
		return "empty file reference"
	}
	if urlScheme.MatchString(ref) {
		return "not a local file reference"
	}
	for _, r := range ref {
		if (r < 0x20 && r != '\t') || r == 0x7f {
			return "contains control characters"
		}
	}
	return ""
}

func serializeText(f *File) ([]byte, error) {
	var b strings.Builder
	b.Grow(len(f.original) + 64)

	for _, e := range f.Entries {
		for _, side := range e.Prefix {
			b.WriteString(side)
		}
		if e.Parsed {
			b.WriteString(e.Lead)
			b.WriteString(e.URI)
			b.WriteString(e.Path.String())
			b.WriteString(e.Trail)
		} else {
			b.WriteString(e.Raw)
		}
		b.WriteString(e.EOL)
	}
	for _, side := range f.Trailer {
		b.WriteString(side)
	}

	return encode(b.String(), f.Encoding, f.BOM)
}
