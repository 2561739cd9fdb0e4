package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	// --- Filesystem operation metrics (per volume × operation) ---
	volumes := []string{"library", "database", "unknown"}
	fsOps := []string{"stat", "read", "readdir", "write"}

	for _, vol := range volumes {
		for _, op := range fsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, format := range []string{"text", "binary"} {
		PlaylistsLoaded.WithLabelValues(format)
	}
	for _, reason := range []string{"unsupported", "io"} {
		PlaylistLoadErrors.WithLabelValues(reason)
	}
	for _, op := range []string{"relink", "drive_swap", "restore"} {
		EntriesRemapped.WithLabelValues(op)
	}
	for _, reason := range []string{"mismatch", "encoding", "field_size", "other"} {
		SubstitutionFailures.WithLabelValues(reason)
	}
	for _, status := range []string{"success", "unchanged", "error"} {
		SavesTotal.WithLabelValues(status)
		LedgerSaves.WithLabelValues(status)
	}
	for _, status := range []string{"success", "partial", "rejected", "cancelled"} {
		DriveSwapBatches.WithLabelValues(status)
	}
	for _, status := range []string{"success", "error", "cancelled"} {
		ScanOperations.WithLabelValues(status)
	}

	for _, op := range []string{"initialize_schema", "record_save", "saves_for_playlist",
		"recent_saves", "run_summary", "stats"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
