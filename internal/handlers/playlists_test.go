package handlers

import (
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
)

func TestScan(t *testing.T) {
	api := newTestAPI(t, false)
	a := api.write(t, "a.m3u", crlf(`C:\Music\a.mp3`))
	b := api.write(t, "b.m3u8", "C:/Music/b.mp3\n")
	c := api.write(t, filepath.Join("sub", "c.m3u"), crlf(`C:\Music\c.mp3`))
	api.write(t, "cover.jpg", "not a playlist")
	api.write(t, filepath.Join("backup", "a.m3u"), crlf(`C:\Music\old.mp3`))

	tests := []struct {
		name string
		body string
		want []string
	}{
		{"configured folder", ``, []string{a, b}},
		{"recursive", `{"recursive":true}`, []string{a, b, c}},
		{"explicit folder", `{"dir":` + quote(filepath.Join(api.dir, "sub")) + `}`, []string{c}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/api/scan", tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			var resp ScanResponse
			decode(t, w, &resp)
			if len(resp.Playlists) != len(tt.want) {
				t.Fatalf("playlists = %v, want %v", resp.Playlists, tt.want)
			}
			for i := range tt.want {
				if resp.Playlists[i] != tt.want[i] {
					t.Errorf("playlists[%d] = %q, want %q", i, resp.Playlists[i], tt.want[i])
				}
			}
		})
	}
}

func TestScanErrors(t *testing.T) {
	api := newTestAPI(t, false)
	file := api.write(t, "a.m3u", crlf(`C:\a.mp3`))

	tests := []struct {
		name string
		dir  string
		want int
	}{
		{"missing folder", filepath.Join(api.dir, "gone"), http.StatusNotFound},
		{"not a folder", file, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/api/scan", `{"dir":`+quote(tt.dir)+`}`)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	api := newTestAPI(t, false)
	a := api.write(t, "a.m3u", "\xEF\xBB\xBF#EXTM3U\r\n#EXTINF:1,x\r\nC:\\Music\\a.mp3\r\nC:\\Music\\b.mp3\r\n")
	missing := filepath.Join(api.dir, "missing.m3u")

	w := api.do(t, http.MethodPost, "/api/load", Target{Paths: []string{a, missing}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp LoadResponse
	decode(t, w, &resp)
	if len(resp.Playlists) != 1 {
		t.Fatalf("playlists = %+v", resp.Playlists)
	}
	p := resp.Playlists[0]
	if p.Path != a || p.Format != "text" || p.Encoding != "utf-8" || !p.BOM || p.PathEntries != 2 {
		t.Errorf("summary = %+v", p)
	}
	if len(resp.Errors) != 1 || resp.Errors[0].Path != missing {
		t.Errorf("errors = %+v, want the missing file", resp.Errors)
	}
}

func TestGroups(t *testing.T) {
	api := newTestAPI(t, false)
	a := api.write(t, "a.m3u", crlf(`S:\Music\Green Day\x.mp3`, `C:\Other\z.mp3`))
	b := api.write(t, "b.m3u", crlf(`s:/Music/Beck/y.mp3`))

	w := api.do(t, http.MethodPost, "/api/groups", ``)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp GroupsResponse
	decode(t, w, &resp)

	if resp.Depth != 1 {
		t.Errorf("depth = %d, want the configured 1", resp.Depth)
	}
	if len(resp.Groups) != 2 {
		t.Fatalf("groups = %+v", resp.Groups)
	}
	if resp.Groups[0].Key != `C:\Other` || resp.Groups[1].Key != `S:\Music` {
		t.Errorf("keys = %q, %q", resp.Groups[0].Key, resp.Groups[1].Key)
	}
	music := resp.Groups[1]
	if music.Entries != 2 || len(music.Files) != 2 || music.Files[0] != a || music.Files[1] != b {
		t.Errorf("music group = %+v", music)
	}

	w = api.do(t, http.MethodPost, "/api/groups", `{"depth":0}`)
	decode(t, w, &resp)
	if len(resp.Groups) != 2 || resp.Groups[1].Key != `S:\` {
		t.Errorf("depth 0 groups = %+v", resp.Groups)
	}

	w = api.do(t, http.MethodPost, "/api/groups", `{"depth":-1}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative depth status = %d, want 400", w.Code)
	}
}

func TestPreview(t *testing.T) {
	api := newTestAPI(t, false)
	content := crlf(`S:\Music\Rock\x.mp3`, `S:\Music\Pop\y.mp3`)
	a := api.write(t, "a.m3u", content)

	body := RelinkRequest{Map: []string{`S:\Music\Rock=R:\Rock`}}
	w := api.do(t, http.MethodPost, "/api/preview", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp PreviewResponse
	decode(t, w, &resp)

	if len(resp.Changes) != 2 {
		t.Fatalf("changes = %+v", resp.Changes)
	}
	if resp.Changes[0].After.String() != `R:\Rock\x.mp3` || resp.Changes[0].Error != "" {
		t.Errorf("changes[0] = %+v", resp.Changes[0])
	}
	if resp.Changes[1].Error == "" || resp.Changes[1].After.String() != `S:\Music\Pop\y.mp3` {
		t.Errorf("changes[1] = %+v, want a mismatch", resp.Changes[1])
	}
	if got := read(t, a); got != content {
		t.Errorf("preview wrote the file: %q", got)
	}
}

func TestPreviewRequiresSubstitutions(t *testing.T) {
	api := newTestAPI(t, false)

	tests := []struct {
		name string
		body string
	}{
		{"none", `{}`},
		{"malformed", `{"map":["C:\\Music"]}`},
		{"overlapping", `{"map":["C:\\Music=D:\\","C:\\Music\\Rock=E:\\"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/api/preview", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestDrives(t *testing.T) {
	api := newTestAPI(t, false)
	a := api.write(t, "a.m3u", crlf(`C:\Music\a.mp3`, `d:\Music\b.mp3`))
	api.write(t, filepath.Join("sub", "b.m3u"), crlf(`E:\Music\c.mp3`, `\\nas\share\d.mp3`))

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"configured folder", "", []string{"C", "D"}},
		{"recursive", "?recursive=true", []string{"C", "D", "E"}},
		{"explicit path", "?path=" + url.QueryEscape(a), []string{"C", "D"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodGet, "/api/drives"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			var resp DrivesResponse
			decode(t, w, &resp)
			if len(resp.Drives) != len(tt.want) {
				t.Fatalf("drives = %v, want %v", resp.Drives, tt.want)
			}
			for i := range tt.want {
				if resp.Drives[i] != tt.want[i] {
					t.Errorf("drives = %v, want %v", resp.Drives, tt.want)
				}
			}
		})
	}

	w := api.do(t, http.MethodGet, "/api/drives?recursive=maybe", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad recursive status = %d, want 400", w.Code)
	}
}

func quote(s string) string {
	b := []byte{'"'}
	for _, r := range s {
		if r == '\\' || r == '"' {
			b = append(b, '\\')
		}
		b = append(b, string(r)...)
	}
	return string(append(b, '"'))
}
