package handlers

import (
	"net/http"

	"playlist-relinker/internal/database"
	"playlist-relinker/internal/remap"
	"playlist-relinker/internal/session"
)

// BatchSummary counts the outcomes of a batch.
type BatchSummary struct {
	Files          int `json:"files"`
	Succeeded      int `json:"succeeded"`
	Unchanged      int `json:"unchanged"`
	Failed         int `json:"failed"`
	EntriesChanged int `json:"entriesChanged"`
	EntriesSkipped int `json:"entriesSkipped"`
}

// BatchResponse is returned by Relink and DriveSwap.
type BatchResponse struct {
	Summary BatchSummary         `json:"summary"`
	Results []session.FileResult `json:"results"`
}

func summarize(results []session.FileResult) BatchResponse {
	resp := BatchResponse{Summary: BatchSummary{Files: len(results)}, Results: results}
	if resp.Results == nil {
		resp.Results = []session.FileResult{}
	}
	for _, r := range results {
		switch r.Status {
		case database.StatusSuccess:
			resp.Summary.Succeeded++
			resp.Summary.EntriesChanged += r.EntriesChanged
		case database.StatusUnchanged:
			resp.Summary.Unchanged++
		default:
			resp.Summary.Failed++
		}
		resp.Summary.EntriesSkipped += len(r.Failures)
	}
	return resp
}

// batchStatusCode is 200 when every file succeeded or was left unchanged,
// and 207 when some failed.
func batchStatusCode(resp BatchResponse) int {
	if resp.Summary.Failed > 0 {
		return http.StatusMultiStatus
	}
	return http.StatusOK
}

// Relink replaces roots across the target playlists and saves them with backups
func (h *Handlers) Relink(w http.ResponseWriter, r *http.Request) {
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

	paths, err := h.resolve(r.Context(), req.Target)
	if err != nil {
		writeError(w, err)
		return
	}

	results, err := h.session.Relink(r.Context(), paths, subs, depth)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := summarize(results)
	writeJSONStatusCode(w, resp, batchStatusCode(resp))
}

// DriveSwapRequest maps drive letters, either as an object ("C": "D") or as
// "C=D" strings.
type DriveSwapRequest struct {
	Target
	Mapping map[string]string `json:"mapping,omitempty"`
	Map     []string          `json:"map,omitempty"`
}

func (req DriveSwapRequest) mapping() (remap.DriveMapping, error) {
	m, err := remap.ParseDriveMapping(req.Map)
	if err != nil {
		return nil, err
	}
	for from, to := range req.Mapping {
		if prev, dup := m[from]; dup && prev != to {
			return nil, badRequest("drive %s mapped twice", from)
		}
		m[from] = to
	}
	if len(m) == 0 {
		return nil, badRequest("no drive mapping given")
	}
	return m, nil
}

// DriveSwap changes drive letters across the target playlists
func (h *Handlers) DriveSwap(w http.ResponseWriter, r *http.Request) {
	var req DriveSwapRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	mapping, err := req.mapping()
	if err != nil {
		writeError(w, err)
		return
	}

	paths, err := h.resolve(r.Context(), req.Target)
	if err != nil {
		writeError(w, err)
		return
	}

	results, err := h.session.BatchDriveSwap(r.Context(), paths, mapping)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := summarize(results)
	writeJSONStatusCode(w, resp, batchStatusCode(resp))
}
