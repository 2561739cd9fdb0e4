package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"

	"playlist-relinker/internal/backup"
	"playlist-relinker/internal/logging"
	"playlist-relinker/internal/playlist"
	"playlist-relinker/internal/remap"
	"playlist-relinker/internal/scanner"
	"playlist-relinker/internal/session"
)

// maxBodyBytes bounds request bodies. Path lists for large libraries fit
// comfortably.
const maxBodyBytes = 8 << 20

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatusCode writes v with the given status code.
func writeJSONStatusCode(w http.ResponseWriter, v interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatusCode(w, map[string]string{"error": message}, statusCode)
}

// writeError maps err to a status code and writes it.
func writeError(w http.ResponseWriter, err error) {
	code := statusForError(err)
	if code >= http.StatusInternalServerError {
		logging.Error("request failed: %v", err)
	}
	writeJSONError(w, err.Error(), code)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, session.ErrInvalidSubstitution),
		errors.Is(err, remap.ErrAmbiguousDriveSwap),
		errors.Is(err, remap.ErrInvalidDriveMapping),
		errors.Is(err, backup.ErrNotBackup),
		errors.Is(err, scanner.ErrNotDirectory):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, playlist.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrStale):
		return http.StatusConflict
	case errors.Is(err, errLedgerDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var (
	errBadRequest     = errors.New("bad request")
	errLedgerDisabled = errors.New("ledger is disabled")
)

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// readJSON decodes the request body into v. An empty body leaves v as is.
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}
