package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"playlist-relinker/internal/backup"
	"playlist-relinker/internal/database"
	"playlist-relinker/internal/logging"
	"playlist-relinker/internal/remap"
	"playlist-relinker/internal/workers"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	ScanDir         string
	ScanRecursive   bool
	GroupDepth      int
	BackupDirName   string
	DatabaseDir     string
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogHealthChecks bool
	Workers         int

	// Derived paths
	DatabasePath string

	// LedgerEnabled is false when DATABASE_DIR is empty or not writable.
	LedgerEnabled bool
}

// FromEnv reads the configuration from environment variables without
// logging or touching the filesystem.
func FromEnv() *Config {
	databaseDir := getEnv("DATABASE_DIR", defaultDatabaseDir())
	config := &Config{
		ScanDir:         getEnv("SCAN_DIR", "."),
		ScanRecursive:   getEnvBool("SCAN_RECURSIVE", false),
		GroupDepth:      getEnvInt("GROUP_DEPTH", remap.DefaultDepth),
		BackupDirName:   getEnv("BACKUP_DIR_NAME", backup.DefaultDirName),
		DatabaseDir:     databaseDir,
		Port:            getEnv("PORT", "8080"),
		MetricsPort:     getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", false),
		Workers:         workers.ForIO(0),
	}
	if databaseDir != "" {
		config.DatabasePath = filepath.Join(databaseDir, database.FileName)
	}
	return config
}

// defaultDatabaseDir places the ledger in the user's config directory.
func defaultDatabaseDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "playlist-relinker")
}

// Validate checks values that have no safe fallback.
func (c *Config) Validate() error {
	if c.GroupDepth < 0 {
		return fmt.Errorf("GROUP_DEPTH must not be negative, got %d", c.GroupDepth)
	}
	if c.BackupDirName == "" || c.BackupDirName == "." || c.BackupDirName == ".." ||
		strings.ContainsAny(c.BackupDirName, `/\`) {
		return fmt.Errorf("BACKUP_DIR_NAME must be a plain folder name, got %q", c.BackupDirName)
	}
	return nil
}

// PrepareLedger creates the database directory and sets LedgerEnabled. A
// ledger that cannot be set up is disabled with a warning.
func (c *Config) PrepareLedger() {
	c.LedgerEnabled = false
	if c.DatabaseDir == "" {
		logging.Warn("  No DATABASE_DIR and no user config directory; ledger disabled")
		return
	}

	dir, err := filepath.Abs(c.DatabaseDir)
	if err != nil {
		logging.Warn("  Failed to resolve database directory path: %v", err)
		return
	}
	c.DatabaseDir = dir
	c.DatabasePath = filepath.Join(dir, database.FileName)

	if err := ensureDirectory(dir, "database"); err != nil {
		logging.Warn("  Database directory issue: %v; ledger disabled", err)
		return
	}
	if err := testWriteAccess(dir); err != nil {
		logging.Warn("  Database directory is not writable: %v; ledger disabled", err)
		return
	}
	c.LedgerEnabled = true
}

// LoadConfig prints the startup banner, loads the configuration from the
// environment and validates directories.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	config := FromEnv()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  SCAN_DIR:            %s", config.ScanDir)
	logging.Info("  SCAN_RECURSIVE:      %v", config.ScanRecursive)
	logging.Info("  GROUP_DEPTH:         %d", config.GroupDepth)
	logging.Info("  BACKUP_DIR_NAME:     %s", config.BackupDirName)
	logging.Info("  DATABASE_DIR:        %s", config.DatabaseDir)
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
	logging.Info("  %s:        %d", workers.EnvOverride, config.Workers)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	scanDir, err := filepath.Abs(config.ScanDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scan directory path: %w", err)
	}
	config.ScanDir = scanDir
	logging.Info("  Scan directory (absolute): %s", scanDir)

	// The scan directory is only a default for requests, so a missing one is a warning
	if info, err := os.Stat(scanDir); err != nil {
		logging.Warn("  Scan directory issue: %v", err)
	} else if !info.IsDir() {
		logging.Warn("  Scan directory is not a directory: %s", scanDir)
	}

	config.PrepareLedger()

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Ledger:      %s", enabledString(config.LedgerEnabled))
	logging.Info("    Metrics:     %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDatabaseInit logs ledger initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("LEDGER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Ledger initialized in %v", duration)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes at debug level
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}
	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://localhost:%s/api", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://localhost:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    ____  __            ___      __     ____       ___       __
   / __ \/ /___ ___  __/ (_)____/ /_   / __ \___  / (_)___  / /__
  / /_/ / / __ '/ / / / / / ___/ __/  / /_/ / _ \/ / / __ \/ //_/
 / ____/ / /_/ / /_/ / / (__  ) /_   / _, _/  __/ / / / / / ,<
/_/   /_/\__,_/\__, /_/_/____/\__/  /_/ |_|\___/_/_/_/ /_/_/|_|
              /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
