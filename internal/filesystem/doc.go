/*
Package filesystem provides the file operations the relinker relies on: reads
that survive transient network share failures, and atomic replacement of
playlist files.

# Retry

Playlists and music libraries often live on NFS or SMB shares. The *WithRetry
helpers wrap os.Stat, os.ReadFile and os.ReadDir and retry stale file
handle errors (ESTALE) with exponential backoff:

	data, err := filesystem.ReadFileWithRetry(path, filesystem.DefaultRetryConfig())

Defaults:
  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

All other errors fail immediately without retry attempts.

# Atomic writes

WriteFileAtomic writes to a temporary file beside the target, syncs it and
renames it over the target. A crash at any point leaves either the old or the
new playlist in place, never a truncated one. File permissions are preserved.

# Metrics

Operations report to an Observer installed with SetObserver. The metrics
package provides the implementation; with no observer installed nothing is
recorded. Paths are labelled by volume through an optional VolumeResolver.
*/
package filesystem
