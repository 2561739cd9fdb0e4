// Package handlers provides the HTTP API used by the relinker GUI.
//
// It includes handlers for:
//   - Scanning folders for playlists and loading them
//   - Grouping entries by root and previewing substitutions
//   - Relinking roots and swapping drive letters, with backups
//   - Listing and restoring backups, and the save ledger
//   - Health checks and version information
//
// Requests name their playlists either as an explicit path list or as a
// folder to scan; without either the configured SCAN_DIR is scanned.
package handlers
