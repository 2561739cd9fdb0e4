package metrics

import (
	"os"
	"time"

	"playlist-relinker/internal/logging"
)

// StatsProvider reports ledger totals. The database package implements it.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current ledger statistics
type Stats struct {
	SuccessfulSaves int
	UnchangedSaves  int
	FailedSaves     int
	Playlists       int
	Runs            int
}

// Collector periodically collects ledger statistics and database file sizes.
type Collector struct {
	statsProvider StatsProvider
	dbPath        string
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector. dbPath may be empty when no
// ledger file is in use.
func NewCollector(provider StatsProvider, dbPath string, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		dbPath:        dbPath,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	c.collectDBSize()

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	LedgerSaves.WithLabelValues("success").Set(float64(stats.SuccessfulSaves))
	LedgerSaves.WithLabelValues("unchanged").Set(float64(stats.UnchangedSaves))
	LedgerSaves.WithLabelValues("error").Set(float64(stats.FailedSaves))
	LedgerPlaylists.Set(float64(stats.Playlists))
	LedgerRuns.Set(float64(stats.Runs))

	logging.Debug("Metrics collected: saves=%d, failed=%d, playlists=%d, runs=%d",
		stats.SuccessfulSaves, stats.FailedSaves, stats.Playlists, stats.Runs)
}

func (c *Collector) collectDBSize() {
	if c.dbPath == "" {
		return
	}
	for label, suffix := range map[string]string{"main": "", "wal": "-wal", "shm": "-shm"} {
		info, err := os.Stat(c.dbPath + suffix)
		if err != nil {
			DBSizeBytes.WithLabelValues(label).Set(0)
			continue
		}
		DBSizeBytes.WithLabelValues(label).Set(float64(info.Size()))
	}
}
