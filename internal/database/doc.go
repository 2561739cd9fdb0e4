// Package database provides the SQLite save ledger for the playlist relinker.
//
// Every playlist write attempt is recorded in the saves table together with
// the run it belonged to, the backup taken before it and a digest of that
// backup. The ledger answers "what happened to this playlist" and "what did
// that batch do" long after the run, and lists backups to restore from.
//
// The database uses WAL mode so the CLI and the API server can share it,
// and creates its schema on first use. The ledger is optional: nothing in
// the relinking engine depends on it.
package database
