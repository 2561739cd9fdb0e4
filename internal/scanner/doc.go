// Package scanner finds playlist files in a folder, optionally including its
// subfolders. Backup folders and hidden entries are skipped so a scan never
// picks up the relinker's own backups.
package scanner
