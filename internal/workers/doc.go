/*
Package workers sizes and runs bounded worker pools.

# Sizing

runtime.NumCPU reports the host's CPUs even inside a container with a CPU
limit, while GOMAXPROCS follows the limit (Go 1.19+). Count and its helpers
derive worker counts from GOMAXPROCS:

	// Loading playlists is I/O bound: 2 workers per CPU, at most 8
	n := workers.ForIO(8)

	// 3 workers per CPU, no maximum
	n := workers.Count(3.0, 0)

The SCAN_WORKERS environment variable overrides the calculation (still capped
by the limit), which helps on slow network shares where fewer concurrent reads
are faster:

	SCAN_WORKERS=2 relinker swap-drives --map S=D ~/Music/Playlists

# Running

ForEach fans a fixed number of indexed jobs out to the workers. Each job
writes only to its own result slot, so no locking is needed:

	results := make([]*playlist.File, len(paths))
	workers.ForEach(ctx, workers.ForIO(8), len(paths), func(i int) {
		results[i], errs[i] = load(paths[i])
	})

All functions in this package are safe for concurrent use.
*/
package workers
