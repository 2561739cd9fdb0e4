package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"playlist-relinker/internal/database"
	"playlist-relinker/internal/filesystem"
	"playlist-relinker/internal/handlers"
	"playlist-relinker/internal/logging"
	"playlist-relinker/internal/metrics"
	"playlist-relinker/internal/middleware"
	"playlist-relinker/internal/session"
	"playlist-relinker/internal/startup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"library":  config.ScanDir,
		"database": config.DatabaseDir,
	}))
	metrics.InitializeMetrics()
	buildInfo := startup.GetBuildInfo()
	metrics.SetAppInfo(buildInfo.Version, buildInfo.Commit, buildInfo.GoVersion)

	// Open the ledger; the API works without it
	db, collector := openLedger(config)

	opts := session.Options{
		BackupDirName: config.BackupDirName,
		Workers:       config.Workers,
		SkipHidden:    true,
	}
	if db != nil {
		// a nil *Database must not become a non-nil Ledger
		opts.Ledger = db
	}

	h := handlers.New(session.New(opts), db, config)
	router := handlers.NewRouter(h)
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      buildHandler(router, config),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // batch relinks over large libraries
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsPort)
		go func() {
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go handleShutdown(srv, metricsSrv, collector, db, done)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

// openLedger opens the save ledger and starts its metrics collector. Both
// are nil when the ledger is disabled or cannot be opened.
func openLedger(config *startup.Config) (*database.Database, *metrics.Collector) {
	if !config.LedgerEnabled {
		return nil, nil
	}

	dbStart := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		logging.Warn("Failed to open ledger, continuing without it: %v", err)
		return nil, nil
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	collector := metrics.NewCollector(db, config.DatabasePath, time.Minute)
	collector.Start()
	return db, collector
}

// buildHandler wraps the router in logging and compression middleware.
func buildHandler(router http.Handler, config *startup.Config) http.Handler {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	logged := middleware.Logger(loggingConfig)(router)

	return middleware.Compression(middleware.DefaultCompressionConfig())(logged)
}

func newMetricsServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handlers.MetricsHandler())
	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

func handleShutdown(srv, metricsSrv *http.Server, collector *metrics.Collector, db *database.Database, done chan<- struct{}) {
	defer close(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	if collector != nil {
		collector.Stop()
	}
	if db != nil {
		startup.LogShutdownStep("Closing ledger")
		if err := db.Close(); err != nil {
			logging.Warn("Ledger close error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Ledger closed")
		}
	}

	startup.LogShutdownComplete()
}
