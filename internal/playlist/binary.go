package playlist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"

	"playlist-relinker/internal/pathmodel"
)

// binaryMagic opens every foobar2000 .fpl playlist.
var binaryMagic = []byte{
	0xE1, 0xA0, 0x9C, 0x91, 0xF8, 0x3C, 0x77, 0x42,
	0x85, 0x2C, 0x3B, 0xCC, 0x14, 0x01, 0xD3, 0xF2,
}

// binaryHeaderLen is the magic plus the little-endian uint32 size of the
// string table that follows it. Track records after the table are opaque.
const binaryHeaderLen = 20

func hasBinaryMagic(b []byte) bool {
	return len(b) >= len(binaryMagic) && bytes.Equal(b[:len(binaryMagic)], binaryMagic)
}

// parseBinary exposes the "file:" strings of the string table as entries.
// Anything it cannot interpret is left alone and reported in File.Errors.
func parseBinary(data []byte) *File {
	f := &File{Format: FormatBinary, Encoding: EncodingUTF8}

	if len(data) < binaryHeaderLen || !hasBinaryMagic(data) {
		f.Errors = append(f.Errors, &ParseError{Reason: "unrecognised binary header, file kept opaque"})
		return f
	}

	size := binary.LittleEndian.Uint32(data[len(binaryMagic):binaryHeaderLen])
	if uint64(size) > uint64(len(data)-binaryHeaderLen) {
		f.Errors = append(f.Errors, &ParseError{
			Reason: fmt.Sprintf("string table of %d bytes exceeds file size, file kept opaque", size),
		})
		return f
	}

	table := data[binaryHeaderLen : binaryHeaderLen+int(size)]
	record := 0
	for start := 0; start < len(table); {
		record++
		n := bytes.IndexByte(table[start:], 0)
		terminated := n >= 0
		if !terminated {
			n = len(table) - start
		}
		field := table[start : start+n]

		if hasFileScheme(field) {
			e := &Entry{
				Line:     record,
				offset:   binaryHeaderLen + start,
				width:    n,
				encoding: EncodingUTF8,
			}
			switch {
			case !terminated:
				e.Raw = string(field)
				e.Err = &ParseError{Line: record, Text: e.Raw, Reason: "unterminated path field"}
			case !utf8.Valid(field):
				e.Raw = string(field)
				e.Err = &ParseError{Line: record, Text: e.Raw, Reason: "path field is not valid UTF-8"}
			default:
				uri, ref := splitURI(string(field))
				if reason := rejectReference(ref); reason != "" {
					e.Raw = string(field)
					e.Err = &ParseError{Line: record, Text: e.Raw, Reason: reason}
				} else {
					e.URI, e.Path, e.Parsed = uri, pathmodel.Parse(ref), true
				}
			}
			if e.Err != nil {
				f.Errors = append(f.Errors, e.Err)
			}
			f.Entries = append(f.Entries, e)
		}

		start += n + 1
	}
	return f
}

func hasFileScheme(field []byte) bool {
	const scheme = "file:"
	return len(field) >= len(scheme) && strings.EqualFold(string(field[:len(scheme)]), scheme)
}

// serializeBinary patches changed path fields into a copy of the original
// bytes.
func serializeBinary(f *File) ([]byte, error) {
	out := bytes.Clone(f.original)
	for _, e := range f.Entries {
		if !e.Parsed || !e.changed {
			continue
		}
		text := e.Text()
		if len(text) != e.width {
			return nil, fmt.Errorf("%w: record %d", ErrBinaryFieldSize, e.Line)
		}
		copy(out[e.offset:e.offset+e.width], text)
	}
	return out, nil
}
