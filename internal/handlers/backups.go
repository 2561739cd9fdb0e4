package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"playlist-relinker/internal/backup"
	"playlist-relinker/internal/database"
)

// BackupsResponse lists the backups of one playlist, oldest first.
type BackupsResponse struct {
	Path    string          `json:"path"`
	Backups []backup.Handle `json:"backups"`
}

// Backups lists the backups kept beside a playlist
func (h *Handlers) Backups(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, badRequest("path is required"))
		return
	}

	handles, err := h.session.Backups(path)
	if err != nil {
		writeError(w, err)
		return
	}
	if handles == nil {
		handles = []backup.Handle{}
	}
	writeJSONStatusCode(w, BackupsResponse{Path: path, Backups: handles}, http.StatusOK)
}

// RestoreRequest names a playlist and one of its backups.
type RestoreRequest struct {
	Path   string `json:"path"`
	Backup string `json:"backup"`
}

// Restore copies a backup over its playlist. The replaced content is itself
// backed up first.
func (h *Handlers) Restore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Path == "" || req.Backup == "" {
		writeError(w, badRequest("path and backup are required"))
		return
	}

	res := h.session.Restore(r.Context(), req.Path, req.Backup)
	if res.Err != nil {
		writeJSONStatusCode(w, res, statusForError(res.Err))
		return
	}
	writeJSONStatusCode(w, res, http.StatusOK)
}

// HistoryResponse holds ledger rows, and the run summary when a run was asked for.
type HistoryResponse struct {
	Run   *database.RunSummary  `json:"run,omitempty"`
	Saves []database.SaveRecord `json:"saves"`
}

// History returns ledger rows for a playlist (?path=), a run (?run=) or the
// most recent saves (?limit=).
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeError(w, errLedgerDisabled)
		return
	}

	ctx := r.Context()
	q := r.URL.Query()
	var resp HistoryResponse
	var err error

	switch {
	case q.Get("run") != "":
		runID := q.Get("run")
		sum, sumErr := h.db.RunSummary(ctx, runID)
		if errors.Is(sumErr, sql.ErrNoRows) {
			writeJSONError(w, "unknown run "+runID, http.StatusNotFound)
			return
		}
		if sumErr != nil {
			writeError(w, sumErr)
			return
		}
		resp.Run = &sum
		resp.Saves, err = h.db.SavesForRun(ctx, runID)
	case q.Get("path") != "":
		resp.Saves, err = h.db.SavesForPlaylist(ctx, q.Get("path"))
	default:
		limit := 0
		if v := q.Get("limit"); v != "" {
			limit, err = strconv.Atoi(v)
			if err != nil || limit < 0 {
				writeError(w, badRequest("limit must be a non-negative integer"))
				return
			}
		}
		resp.Saves, err = h.db.RecentSaves(ctx, limit)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if resp.Saves == nil {
		resp.Saves = []database.SaveRecord{}
	}
	writeJSONStatusCode(w, resp, http.StatusOK)
}
