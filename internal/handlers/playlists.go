package handlers

import (
	"context"
	"net/http"
	"strconv"

	"playlist-relinker/internal/pathmodel"
	"playlist-relinker/internal/playlist"
	"playlist-relinker/internal/remap"
	"playlist-relinker/internal/session"
)

// Target names the playlists a request works on. Paths wins over Dir; with
// neither, the configured scan directory is used.
type Target struct {
	Paths     []string `json:"paths,omitempty"`
	Dir       string   `json:"dir,omitempty"`
	Recursive *bool    `json:"recursive,omitempty"`
}

func (h *Handlers) resolve(ctx context.Context, t Target) ([]string, error) {
	if len(t.Paths) > 0 {
		return t.Paths, nil
	}
	dir := t.Dir
	if dir == "" {
		dir = h.scanDir
	}
	recursive := h.recursive
	if t.Recursive != nil {
		recursive = *t.Recursive
	}
	return h.session.Scan(ctx, dir, recursive)
}

// targetFromQuery reads repeated "path" parameters, or "dir" and "recursive".
func targetFromQuery(r *http.Request) (Target, error) {
	q := r.URL.Query()
	t := Target{Paths: q["path"], Dir: q.Get("dir")}
	if v := q.Get("recursive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return t, badRequest("recursive: %v", err)
		}
		t.Recursive = &b
	}
	return t, nil
}

// LoadError reports a playlist that could not be loaded.
type LoadError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// loadTarget resolves and loads t. Files that fail to load are reported and
// left out of the returned slice.
func (h *Handlers) loadTarget(ctx context.Context, t Target) ([]*playlist.File, []LoadError, error) {
	paths, err := h.resolve(ctx, t)
	if err != nil {
		return nil, nil, err
	}
	files, errs := h.session.LoadAll(ctx, paths)

	loaded := make([]*playlist.File, 0, len(files))
	loadErrors := []LoadError{}
	for i, f := range files {
		if errs[i] != nil {
			loadErrors = append(loadErrors, LoadError{Path: paths[i], Error: errs[i].Error()})
			continue
		}
		loaded = append(loaded, f)
	}
	return loaded, loadErrors, ctx.Err()
}

// ScanResponse lists the playlists found.
type ScanResponse struct {
	Playlists []string `json:"playlists"`
}

// Scan lists the playlists in a folder
func (h *Handlers) Scan(w http.ResponseWriter, r *http.Request) {
	var req Target
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.Paths = nil

	paths, err := h.resolve(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	if paths == nil {
		paths = []string{}
	}
	writeJSONStatusCode(w, ScanResponse{Playlists: paths}, http.StatusOK)
}

// PlaylistSummary describes one loaded playlist.
type PlaylistSummary struct {
	Path        string `json:"path"`
	Format      string `json:"format"`
	Encoding    string `json:"encoding,omitempty"`
	BOM         bool   `json:"bom,omitempty"`
	Entries     int    `json:"entries"`
	PathEntries int    `json:"pathEntries"`
	Unparsed    int    `json:"unparsed"`
}

// LoadResponse is returned by Load.
type LoadResponse struct {
	Playlists []PlaylistSummary `json:"playlists"`
	Errors    []LoadError       `json:"errors"`
}

// Load parses the target playlists and summarises each one
func (h *Handlers) Load(w http.ResponseWriter, r *http.Request) {
	var req Target
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	files, loadErrors, err := h.loadTarget(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := LoadResponse{Playlists: make([]PlaylistSummary, 0, len(files)), Errors: loadErrors}
	for _, f := range files {
		resp.Playlists = append(resp.Playlists, PlaylistSummary{
			Path:        f.Path,
			Format:      f.Format.String(),
			Encoding:    string(f.Encoding),
			BOM:         f.BOM,
			Entries:     len(f.Entries),
			PathEntries: len(f.PathEntries()),
			Unparsed:    len(f.Errors),
		})
	}
	writeJSONStatusCode(w, resp, http.StatusOK)
}

// GroupsRequest asks for the root groups of the target at Depth.
type GroupsRequest struct {
	Target
	Depth *int `json:"depth,omitempty"`
}

func (h *Handlers) depthOf(d *int) (int, error) {
	if d == nil {
		return h.depth, nil
	}
	if *d < 0 {
		return 0, badRequest("depth must not be negative")
	}
	return *d, nil
}

// GroupSummary describes one root group.
type GroupSummary struct {
	Key     string         `json:"key"`
	Root    pathmodel.Path `json:"root"`
	Entries int            `json:"entries"`
	Files   []string       `json:"files"`
}

// GroupsResponse is returned by Groups.
type GroupsResponse struct {
	Depth  int            `json:"depth"`
	Groups []GroupSummary `json:"groups"`
	Errors []LoadError    `json:"errors"`
}

// Groups loads the target and clusters its entries by root
func (h *Handlers) Groups(w http.ResponseWriter, r *http.Request) {
	var req GroupsRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	depth, err := h.depthOf(req.Depth)
	if err != nil {
		writeError(w, err)
		return
	}

	files, loadErrors, err := h.loadTarget(r.Context(), req.Target)
	if err != nil {
		writeError(w, err)
		return
	}

	groups := h.session.Group(files, depth)
	resp := GroupsResponse{Depth: depth, Groups: make([]GroupSummary, 0, len(groups)), Errors: loadErrors}
	for _, g := range groups {
		summary := GroupSummary{Key: g.Key, Root: g.Root, Entries: len(g.Members), Files: []string{}}
		for _, f := range g.Files() {
			summary.Files = append(summary.Files, f.Path)
		}
		resp.Groups = append(resp.Groups, summary)
	}
	writeJSONStatusCode(w, resp, http.StatusOK)
}

// RelinkRequest carries root substitutions, either as structured pairs or
// as "OLD=NEW" strings.
type RelinkRequest struct {
	GroupsRequest
	Substitutions []session.Substitution `json:"substitutions,omitempty"`
	Map           []string               `json:"map,omitempty"`
}

func (req RelinkRequest) substitutions() ([]session.Substitution, error) {
	subs := append([]session.Substitution(nil), req.Substitutions...)
	parsed, err := session.ParseSubstitutions(req.Map)
	if err != nil {
		return nil, err
	}
	subs = append(subs, parsed...)
	if len(subs) == 0 {
		return nil, badRequest("no substitutions given")
	}
	return subs, nil
}

// PreviewChange is one entry as it is and as it would become.
type PreviewChange struct {
	File   string         `json:"file"`
	Line   int            `json:"line"`
	Before pathmodel.Path `json:"before"`
	After  pathmodel.Path `json:"after"`
	Error  string         `json:"error,omitempty"`
}

// PreviewResponse is returned by Preview.
type PreviewResponse struct {
	Changes []PreviewChange `json:"changes"`
	Errors  []LoadError     `json:"errors"`
}

// Preview shows what a relink would change without writing anything
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	var req RelinkRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	depth, err := h.depthOf(req.Depth)
	if err != nil {
		writeError(w, err)
		return
	}
	subs, err := req.substitutions()
	if err != nil {
		writeError(w, err)
		return
	}

	files, loadErrors, err := h.loadTarget(r.Context(), req.Target)
	if err != nil {
		writeError(w, err)
		return
	}

	changes, err := h.session.PreviewRelink(files, subs, depth)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := PreviewResponse{Changes: make([]PreviewChange, 0, len(changes)), Errors: loadErrors}
	for _, c := range changes {
		pc := PreviewChange{File: c.File, Line: c.Line, Before: c.Before, After: c.After}
		if c.Err != nil {
			pc.Error = c.Err.Error()
		}
		resp.Changes = append(resp.Changes, pc)
	}
	writeJSONStatusCode(w, resp, http.StatusOK)
}

// DrivesResponse is returned by Drives.
type DrivesResponse struct {
	Drives []string    `json:"drives"`
	Errors []LoadError `json:"errors"`
}

// Drives lists the drive letters used across the target playlists
func (h *Handlers) Drives(w http.ResponseWriter, r *http.Request) {
	t, err := targetFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	files, loadErrors, err := h.loadTarget(r.Context(), t)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatusCode(w, DrivesResponse{Drives: remap.Drives(files), Errors: loadErrors}, http.StatusOK)
}
