package playlist

import (
	"bytes"
	"errors"
	"testing"

	"playlist-relinker/internal/pathmodel"
)

// =============================================================================
// Round Trip Tests
// =============================================================================

func TestTextRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
	}{
		{
			name: "Extended m3u with CRLF",
			file: "mix.m3u",
			data: []byte("#EXTM3U\r\n#EXTINF:215,Green Day - Basket Case\r\nS:\\Music\\Green Day\\Basket Case.mp3\r\n"),
		},
		{
			name: "LF without trailing newline",
			file: "mix.m3u8",
			data: []byte("S:\\Music\\a.mp3\nS:\\Music\\b.mp3"),
		},
		{
			name: "Mixed line endings",
			file: "mix.m3u",
			data: []byte("#EXTM3U\nC:\\a.mp3\r\nD:\\b.mp3\rE:\\c.mp3\n"),
		},
		{
			name: "UTF-8 BOM",
			file: "mix.m3u8",
			data: append([]byte{0xEF, 0xBB, 0xBF}, []byte("#EXTM3U\nS:\\Música\\Beyoncé.mp3\n")...),
		},
		{
			name: "Latin-1 bytes",
			file: "mix.m3u",
			data: []byte("#EXTM3U\r\nS:\\M\xfasica\\Beyonc\xe9.mp3\r\n"),
		},
		{
			name: "Blank lines and trailing comment",
			file: "mix.m3u",
			data: []byte("\n\nS:\\a.mp3\n\n# end\n\n"),
		},
		{
			name: "File URIs",
			file: "mix.fplite",
			data: []byte("file://S:\\Music\\a.mp3\nfile:///C:/Music/b.mp3\nfile:///home/me/c.mp3\n"),
		},
		{
			name: "Whitespace around paths",
			file: "mix.m3u",
			data: []byte("  S:\\Music\\a.mp3\t\n\tS:\\Music\\b.mp3  \n"),
		},
		{
			name: "Stream URL and control characters",
			file: "mix.m3u",
			data: []byte("http://radio.example/stream\nS:\\bad\x01name.mp3\nS:\\ok.mp3\n"),
		},
		{
			name: "Empty file",
			file: "empty.m3u",
			data: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(tt.file, tt.data)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			got, err := Serialize(f)
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			if !bytes.Equal(got, tt.data) {
				t.Errorf("round trip mismatch\n got: %q\nwant: %q", got, tt.data)
			}
			if f.Modified() {
				t.Error("freshly parsed file reports Modified() = true")
			}
		})
	}
}

// =============================================================================
// Structure Tests
// =============================================================================

func TestParseTextStructure(t *testing.T) {
	data := []byte("#EXTM3U\r\n" +
		"#EXTINF:215,Green Day - Basket Case\r\n" +
		"S:\\Music\\Green Day\\Basket Case.mp3\r\n" +
		"\r\n" +
		"#EXTINF:180,Other\r\n" +
		"D:\\Other\\x.mp3\r\n" +
		"# trailing comment\r\n")

	f, err := Parse("list.m3u", data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if f.Format != FormatPlainText {
		t.Errorf("Format = %v, want text", f.Format)
	}
	if f.Encoding != EncodingUTF8 {
		t.Errorf("Encoding = %v, want utf-8", f.Encoding)
	}
	if f.LineEnding != "\r\n" {
		t.Errorf("LineEnding = %q, want CRLF", f.LineEnding)
	}
	if len(f.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(f.Entries))
	}

	first := f.Entries[0]
	if len(first.Prefix) != 2 {
		t.Errorf("first entry prefix = %q, want 2 lines", first.Prefix)
	}
	if first.Path.String() != `S:\Music\Green Day\Basket Case.mp3` {
		t.Errorf("first path = %q", first.Path.String())
	}
	if first.Line != 3 {
		t.Errorf("first entry line = %d, want 3", first.Line)
	}

	second := f.Entries[1]
	if len(second.Prefix) != 2 || second.Prefix[0] != "\r\n" {
		t.Errorf("second entry prefix = %q, want blank line then EXTINF", second.Prefix)
	}
	if len(f.Trailer) != 1 || f.Trailer[0] != "# trailing comment\r\n" {
		t.Errorf("Trailer = %q", f.Trailer)
	}
}

func TestParseTextRecoversBadLines(t *testing.T) {
	data := []byte("http://radio.example/stream\nS:\\bad\x01name.mp3\nfile://\nS:\\ok.mp3\n")

	f, err := Parse("list.m3u", data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(f.Entries) != 4 {
		t.Fatalf("len(Entries) = %d, want 4", len(f.Entries))
	}
	if len(f.Errors) != 3 {
		t.Fatalf("len(Errors) = %d, want 3", len(f.Errors))
	}

	wantLines := []int{1, 2, 3}
	for i, perr := range f.Errors {
		if perr.Line != wantLines[i] {
			t.Errorf("Errors[%d].Line = %d, want %d", i, perr.Line, wantLines[i])
		}
	}
	if f.Entries[0].Parsed || f.Entries[0].Raw != "http://radio.example/stream" {
		t.Errorf("stream URL entry = %+v, want unparsed verbatim", f.Entries[0])
	}
	if !f.Entries[3].Parsed {
		t.Error("valid line after bad lines was not parsed")
	}
	if got := len(f.PathEntries()); got != 1 {
		t.Errorf("len(PathEntries()) = %d, want 1", got)
	}
}

func TestSplitURI(t *testing.T) {
	tests := []struct {
		in      string
		wantURI string
		wantRef string
	}{
		{`file:///C:/Music/a.mp3`, "file:///", "C:/Music/a.mp3"},
		{`FILE://S:\Music\a.mp3`, "FILE://", `S:\Music\a.mp3`},
		{`file:///home/me/a.mp3`, "file://", "/home/me/a.mp3"},
		{`file:\\nas\media\a.mp3`, `file:\\`, `nas\media\a.mp3`},
		{`S:\Music\a.mp3`, "", `S:\Music\a.mp3`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			uri, ref := splitURI(tt.in)
			if uri != tt.wantURI || ref != tt.wantRef {
				t.Errorf("splitURI(%q) = (%q, %q), want (%q, %q)", tt.in, uri, ref, tt.wantURI, tt.wantRef)
			}
		})
	}
}

// =============================================================================
// Modification Tests
// =============================================================================

func TestSerializeAfterSetPath(t *testing.T) {
	data := []byte("#EXTM3U\r\n#EXTINF:1,A\r\n  file:///S:/Music/a.mp3 \r\nS:\\Music\\b.mp3")

	f, err := Parse("list.m3u8", data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	for _, e := range f.PathEntries() {
		next, err := e.Path.ReplacePrefix(pathmodel.Parse(`S:\Music`), pathmodel.Parse(`D:\Audio`))
		if err != nil {
			t.Fatalf("ReplacePrefix() error = %v", err)
		}
		if err := e.SetPath(next); err != nil {
			t.Fatalf("SetPath() error = %v", err)
		}
	}

	if !f.Modified() || f.ChangedEntries() != 2 {
		t.Errorf("Modified() = %v, ChangedEntries() = %d", f.Modified(), f.ChangedEntries())
	}

	got, err := Serialize(f)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	want := "#EXTM3U\r\n#EXTINF:1,A\r\n  file:///D:\\Audio\\a.mp3 \r\nD:\\Audio\\b.mp3"
	if string(got) != want {
		t.Errorf("Serialize() = %q, want %q", got, want)
	}
}

func TestLatin1EncodingPreserved(t *testing.T) {
	data := []byte("S:\\M\xfasica\\a.mp3\n")

	f, err := Parse("list.m3u", data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if f.Encoding != EncodingLatin1 {
		t.Fatalf("Encoding = %v, want iso-8859-1", f.Encoding)
	}

	e := f.Entries[0]
	if e.Path.String() != "S:\\Música\\a.mp3" {
		t.Errorf("decoded path = %q", e.Path.String())
	}

	if err := e.SetPath(pathmodel.Parse("D:\\Música\\a.mp3")); err != nil {
		t.Fatalf("SetPath() error = %v", err)
	}
	got, err := Serialize(f)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if want := []byte("D:\\M\xfasica\\a.mp3\n"); !bytes.Equal(got, want) {
		t.Errorf("Serialize() = %q, want %q", got, want)
	}

	err = e.SetPath(pathmodel.Parse("D:\\音楽\\a.mp3"))
	if !errors.Is(err, ErrEncoding) {
		t.Errorf("SetPath() with unrepresentable text error = %v, want ErrEncoding", err)
	}
	if e.Path.String() != "D:\\Música\\a.mp3" {
		t.Errorf("rejected SetPath() changed the entry to %q", e.Path.String())
	}
}

func TestLatin1WithBOMBytes(t *testing.T) {
	// A UTF-8 byte order mark followed by Latin-1 content: the mark must not
	// turn the #EXTM3U header into a path.
	data := []byte("\xef\xbb\xbf#EXTM3U\nS:\\Beyonc\xe9.mp3\n")

	f, err := Parse("list.m3u", data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(f.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(f.Entries))
	}
	got, err := Serialize(f)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip mismatch: %q", got)
	}
}

// =============================================================================
// Format Detection Tests
// =============================================================================

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		sniffed []byte
		want    Format
		wantErr bool
	}{
		{"m3u", "a.m3u", nil, FormatPlainText, false},
		{"m3u8 upper case", "a.M3U8", nil, FormatPlainText, false},
		{"fplite", "a.fplite", nil, FormatPlainText, false},
		{"fpl binary", "a.fpl", binaryMagic, FormatBinary, false},
		{"fpl that is text", "a.fpl", []byte("file://C:\\a.mp3\n"), FormatPlainText, false},
		{"fpl with NUL", "a.fpl", []byte{'a', 0, 'b'}, FormatBinary, false},
		{"unknown", "a.wpl", nil, 0, true},
		{"no extension", "playlist", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.file, tt.sniffed)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("DetectFormat() error = %v, want ErrUnsupportedFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectFormat() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsPlaylist(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a.m3u", true},
		{"a.M3U8", true},
		{"a.fplite", true},
		{"a.fpl", true},
		{"a.mp3", false},
		{"backup", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPlaylist(tt.name); got != tt.want {
				t.Errorf("IsPlaylist(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
