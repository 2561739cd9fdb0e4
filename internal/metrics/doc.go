// Package metrics provides Prometheus instrumentation for the playlist relinker.
//
// All metrics are prefixed with "playlist_relinker_" and registered with the
// default registry through promauto.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Relinking Metrics
//
//   - PlaylistsLoaded: Counter of loaded playlists by format
//   - PlaylistLoadErrors: Counter of playlists that failed to load
//   - ParseErrors: Counter of lines or records kept verbatim
//   - EntriesRemapped: Counter of rewritten entries by operation
//   - SubstitutionFailures: Counter of entries left untouched, by reason
//   - SavesTotal / SaveDuration: Saves by status and their duration
//   - BackupsCreated / BackupBytes: Backups written before overwrites
//   - DriveSwapBatches: Mass drive-letter swaps by outcome
//   - ScanOperations / ScanPlaylistsFound: Directory scans
//
// ## Ledger and Filesystem Metrics
//
//   - DBQueryTotal / DBQueryDuration / DBSizeBytes: the SQLite save ledger
//   - Filesystem*: operation latency and stale-handle retries, by volume
//   - LedgerSaves / LedgerPlaylists / LedgerRuns: gauges set by the Collector
//
// # Usage
//
// Expose the default registry on the metrics server:
//
//	mux.Handle("/metrics", promhttp.Handler())
//
// Record from other packages through the exported variables:
//
//	metrics.SavesTotal.WithLabelValues("success").Inc()
//
// The filesystem package cannot import this package, so install the observer
// at startup:
//
//	filesystem.SetObserver(metrics.NewFilesystemObserver())
//
// # Prometheus Queries
//
// Save error rate:
//
//	sum(rate(playlist_relinker_saves_total{status="error"}[1h])) / sum(rate(playlist_relinker_saves_total[1h]))
//
// Entries that did not match their group's root:
//
//	increase(playlist_relinker_substitution_failures_total{reason="mismatch"}[1d])
package metrics
