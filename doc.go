// Package main provides the entry point for the Playlist Relinker API server.
//
// Playlist Relinker repairs music playlists whose entries point at folders or
// drives that have moved. It groups the paths inside a set of playlists by
// root, previews and applies root substitutions and drive letter swaps, and
// writes each changed playlist back only after a backup of its previous
// content exists.
//
// # Application Lifecycle
//
//  1. Configuration Loading: Reads environment variables and validates directories
//  2. Ledger Initialization: Opens the SQLite save ledger in DATABASE_DIR, if available
//  3. Component Initialization:
//     - Session: Loads, remaps and saves playlists with backups
//     - Metrics Collector: Publishes ledger statistics every minute
//  4. HTTP Server Setup: Configures routes, middleware, and starts the API and metrics servers
//  5. Graceful Shutdown: Handles SIGINT/SIGTERM, stops servers and closes the ledger
//
// # Environment Variables
//
//	SCAN_DIR           Folder scanned when a request names no playlists (default ".")
//	SCAN_RECURSIVE     Include subfolders when scanning (default false)
//	GROUP_DEPTH        Folder components kept in a root group key (default 1)
//	BACKUP_DIR_NAME    Folder beside each playlist that holds backups (default "backup")
//	DATABASE_DIR       Ledger location (default: user config dir); empty disables the ledger
//	PORT               API port (default 8080)
//	METRICS_PORT       Prometheus port (default 9090)
//	METRICS_ENABLED    Serve /metrics (default true)
//	LOG_HEALTH_CHECKS  Log health probe requests (default false)
//	LOG_LEVEL          debug, info, warn or error (default info)
//	SCAN_WORKERS       Parallel playlist loads (default: based on CPU count)
//
// The relinker command in cmd/relinker offers the same operations from a
// terminal.
package main
