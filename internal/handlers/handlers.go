package handlers

import (
	"time"

	"playlist-relinker/internal/database"
	"playlist-relinker/internal/session"
	"playlist-relinker/internal/startup"
)

// Handlers serves the relinker API. Every request loads the playlists it
// names afresh, so no playlist state is shared between requests.
type Handlers struct {
	session   *session.Session
	db        *database.Database // nil when the ledger is disabled
	scanDir   string
	recursive bool
	depth     int
	started   time.Time
}

// New creates the API handlers. db may be nil.
func New(sess *session.Session, db *database.Database, config *startup.Config) *Handlers {
	return &Handlers{
		session:   sess,
		db:        db,
		scanDir:   config.ScanDir,
		recursive: config.ScanRecursive,
		depth:     config.GroupDepth,
		started:   time.Now(),
	}
}
