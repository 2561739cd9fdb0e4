package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_relinker_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playlist_relinker_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "playlist_relinker_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Ledger database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_relinker_db_queries_total",
			Help: "Total number of ledger database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playlist_relinker_db_query_duration_seconds",
			Help:    "Ledger database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "playlist_relinker_db_size_bytes",
			Help: "Size of the ledger database files in bytes",
		},
		[]string{"file"}, // main, wal, shm
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playlist_relinker_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations by volume and operation",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_relinker_filesystem_operation_errors_total",
			Help: "Filesystem operations that returned an error",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_relinker_filesystem_retry_attempts_total",
			Help: "Retries after a stale file handle error",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_relinker_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_relinker_filesystem_retry_failures_total",
			Help: "Operations that failed after exhausting all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playlist_relinker_filesystem_retry_duration_seconds",
			Help:    "Total duration of retried filesystem operations, including backoff",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_relinker_filesystem_stale_errors_total",
			Help: "Stale file handle errors encountered",
		},
		[]string{"operation", "volume"},
	)
)

// Relinking metrics
var (
	PlaylistsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_relinker_playlists_loaded_total",
			Help: "Playlists loaded by format",
		},
		[]string{"format"},
	)

	PlaylistLoadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_relinker_playlist_load_errors_total",
			Help: "Playlists that could not be loaded, by reason",
		},
		[]string{"reason"}, // unsupported, io
	)

	ParseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playlist_relinker_parse_errors_total",
			Help: "Playlist lines or records kept verbatim because they could not be parsed",
		},
	)

	EntriesRemapped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_relinker_entries_remapped_total",
			Help: "Playlist entries whose path was rewritten",
		},
		[]string{"operation"}, // relink, drive_swap, restore
	)

	SubstitutionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_relinker_substitution_failures_total",
			Help: "Entries a substitution could not be applied to, by reason",
		},
		[]string{"reason"}, // mismatch, encoding, field_size, other
	)

	SavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_relinker_saves_total",
			Help: "Playlist saves by status",
		},
		[]string{"status"}, // success, unchanged, error
	)

	SaveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "playlist_relinker_save_duration_seconds",
			Help:    "Duration of a playlist save including its backup",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	BackupsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playlist_relinker_backups_created_total",
			Help: "Backup files written before overwriting a playlist",
		},
	)

	BackupBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playlist_relinker_backup_bytes_total",
			Help: "Bytes written to backup files",
		},
	)

	DriveSwapBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_relinker_drive_swap_batches_total",
			Help: "Mass drive-letter swaps by outcome",
		},
		[]string{"status"}, // success, partial, rejected, cancelled
	)

	ScanOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlist_relinker_scan_operations_total",
			Help: "Directory scans by status",
		},
		[]string{"status"},
	)

	ScanPlaylistsFound = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "playlist_relinker_scan_playlists_found",
			Help:    "Number of playlists found per scan",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)
)

// Ledger gauges updated by the Collector
var (
	LedgerSaves = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "playlist_relinker_ledger_saves",
			Help: "Saves recorded in the ledger by status",
		},
		[]string{"status"},
	)

	LedgerPlaylists = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "playlist_relinker_ledger_playlists",
			Help: "Distinct playlists recorded in the ledger",
		},
	)

	LedgerRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "playlist_relinker_ledger_runs",
			Help: "Distinct runs recorded in the ledger",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "playlist_relinker_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
