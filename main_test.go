package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"playlist-relinker/internal/handlers"
	"playlist-relinker/internal/middleware"
	"playlist-relinker/internal/session"
	"playlist-relinker/internal/startup"
)

func testConfig(t *testing.T) *startup.Config {
	t.Helper()
	return &startup.Config{
		ScanDir:       t.TempDir(),
		GroupDepth:    1,
		BackupDirName: "backup",
	}
}

func TestBuildHandlerServesAPI(t *testing.T) {
	config := testConfig(t)
	h := handlers.New(session.New(session.Options{BackupDirName: config.BackupDirName}), nil, config)
	router := handlers.NewRouter(h)
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	handler := buildHandler(router, config)

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/livez", http.StatusOK},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodPost, "/api/scan", http.StatusOK},
		{http.MethodGet, "/api/history", http.StatusServiceUnavailable},
		{http.MethodGet, "/static/app.js", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestBuildHandlerLeavesSmallResponsesUncompressed(t *testing.T) {
	config := testConfig(t)
	h := handlers.New(session.New(session.Options{BackupDirName: config.BackupDirName}), nil, config)
	handler := buildHandler(handlers.NewRouter(h), config)

	body := `{"paths":["missing.m3u"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/load", strings.NewReader(body))
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	// one load error is well under the compression threshold
	if w.Header().Get("Content-Encoding") == "gzip" {
		t.Error("small response should not be compressed")
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestMetricsServer(t *testing.T) {
	srv := newMetricsServer("0")
	if srv.ReadTimeout <= 0 || srv.WriteTimeout <= 0 || srv.IdleTimeout <= 0 {
		t.Errorf("timeouts must be positive: %v %v %v", srv.ReadTimeout, srv.WriteTimeout, srv.IdleTimeout)
	}

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "playlist_relinker_") {
		t.Error("expected relinker metrics in the exposition")
	}
}

func TestOpenLedgerDisabled(t *testing.T) {
	config := testConfig(t)
	db, collector := openLedger(config)
	if db != nil || collector != nil {
		t.Error("expected no ledger when LedgerEnabled is false")
	}
}

func TestOpenLedger(t *testing.T) {
	config := testConfig(t)
	config.DatabaseDir = t.TempDir()
	config.PrepareLedger()
	if !config.LedgerEnabled {
		t.Fatal("PrepareLedger() did not enable the ledger")
	}

	db, collector := openLedger(config)
	if db == nil || collector == nil {
		t.Fatal("expected an open ledger and collector")
	}
	collector.Stop()
	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
