// Package startup handles configuration loading, build information and
// startup/shutdown logging for the relinker's API server and CLI.
//
// # Configuration
//
// Configuration comes from environment variables via [FromEnv] (quiet, used
// by the CLI) or [LoadConfig] (banner and directory checks, used by the
// server):
//
//   - SCAN_DIR: Default folder to scan for playlists (default: .)
//   - SCAN_RECURSIVE: Include subfolders when scanning (default: false)
//   - GROUP_DEPTH: Folders below the drive that form a root group (default: 1)
//   - BACKUP_DIR_NAME: Backup folder created beside each playlist (default: backup)
//   - DATABASE_DIR: Folder holding the save ledger (default: user config dir)
//   - PORT: HTTP API port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable the metrics server (default: true)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: false)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - SCAN_WORKERS: Parallel playlist loads (default: derived from CPUs)
//
// The ledger is optional. When DATABASE_DIR cannot be created or written,
// [Config.PrepareLedger] disables it with a warning instead of failing.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//
//	go build -ldflags "-X playlist-relinker/internal/startup.Version=1.0.0"
package startup
