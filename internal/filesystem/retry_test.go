package filesystem

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"
)

// recordingObserver captures observer calls for assertions.
type recordingObserver struct {
	mu         sync.Mutex
	operations []string
	failed     []string
	stale      int
}

func (r *recordingObserver) ObserveOperation(volume, operation string, _ float64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations = append(r.operations, volume+"/"+operation)
	if err != nil {
		r.failed = append(r.failed, volume+"/"+operation)
	}
}

func (r *recordingObserver) ObserveRetryAttempt(string, string)            {}
func (r *recordingObserver) ObserveRetrySuccess(string, string)            {}
func (r *recordingObserver) ObserveRetryFailure(string, string)            {}
func (r *recordingObserver) ObserveRetryDuration(string, string, float64) {}

func (r *recordingObserver) ObserveStaleError(string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stale++
}

func withObserver(t *testing.T, o Observer) {
	t.Helper()
	original := defaultObserver
	SetObserver(o)
	t.Cleanup(func() { SetObserver(original) })
}

func fastConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
	if config.VolumeResolver != nil {
		t.Error("VolumeResolver should be nil by default")
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"ESTALE error", syscall.ESTALE, true},
		{"wrapped ESTALE", &os.PathError{Op: "open", Path: "/x", Err: syscall.ESTALE}, true},
		{"ENOENT error", syscall.ENOENT, false},
		{"generic error", os.ErrNotExist, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// VolumeResolver Tests
// =============================================================================

func TestVolumeResolver_Resolve(t *testing.T) {
	library := t.TempDir()
	nested := filepath.Join(library, "db")

	vr := NewVolumeResolver(map[string]string{
		"library":  library,
		"database": nested,
		"empty":    "",
	})
	if len(vr.mounts) != 2 {
		t.Fatalf("len(mounts) = %d, want 2", len(vr.mounts))
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"library root", library, "library"},
		{"playlist in library", filepath.Join(library, "Rock", "mix.m3u"), "library"},
		{"longest prefix wins", filepath.Join(nested, "relinker.db"), "database"},
		{"sibling with shared prefix", library + "-other", "unknown"},
		{"outside", os.TempDir(), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vr.Resolve(tt.path); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Resolve_NilResolver(t *testing.T) {
	var vr *VolumeResolver
	if got := vr.Resolve("/anything"); got != "unknown" {
		t.Errorf("nil Resolve() = %q, want unknown", got)
	}
}

func TestRetryConfig_ResolveVolume(t *testing.T) {
	original := defaultResolver
	defer func() { defaultResolver = original }()

	dir := t.TempDir()
	SetDefaultVolumeResolver(NewVolumeResolver(map[string]string{"library": dir}))

	config := fastConfig()
	if got := config.resolveVolume(filepath.Join(dir, "a.m3u")); got != "library" {
		t.Errorf("resolveVolume() with default = %q, want library", got)
	}

	config.VolumeResolver = NewVolumeResolver(map[string]string{"override": dir})
	if got := config.resolveVolume(filepath.Join(dir, "a.m3u")); got != "override" {
		t.Errorf("resolveVolume() with override = %q, want override", got)
	}
}

// =============================================================================
// Retry Helper Tests
// =============================================================================

func TestStatWithRetry(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.m3u")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	info, err := StatWithRetry(testFile, fastConfig())
	if err != nil {
		t.Fatalf("StatWithRetry() error = %v", err)
	}
	if info.Size() != 4 {
		t.Errorf("FileInfo.Size() = %d, want 4", info.Size())
	}

	start := time.Now()
	_, err = StatWithRetry(filepath.Join(tmpDir, "missing.m3u"), fastConfig())
	if !os.IsNotExist(err) {
		t.Errorf("StatWithRetry() error = %v, want os.IsNotExist", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("StatWithRetry took %v, should not retry non-NFS errors", elapsed)
	}
}

func TestReadFileWithRetry(t *testing.T) {
	rec := &recordingObserver{}
	withObserver(t, rec)

	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.m3u")
	content := []byte("C:\\a.mp3\r\n")
	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	got, err := ReadFileWithRetry(testFile, fastConfig())
	if err != nil {
		t.Fatalf("ReadFileWithRetry() error = %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("ReadFileWithRetry() = %q, want %q", got, content)
	}

	if _, err := ReadFileWithRetry(filepath.Join(tmpDir, "missing"), fastConfig()); err == nil {
		t.Error("ReadFileWithRetry() of missing file error = nil")
	}

	if len(rec.operations) != 2 || rec.operations[0] != "unknown/read" {
		t.Errorf("observed operations = %v, want two unknown/read", rec.operations)
	}
	if len(rec.failed) != 1 {
		t.Errorf("observed failures = %v, want one", rec.failed)
	}
	if rec.stale != 0 {
		t.Errorf("stale errors = %d, want 0", rec.stale)
	}
}

func TestWithRetry_StaleHandle(t *testing.T) {
	rec := &recordingObserver{}
	withObserver(t, rec)

	config := RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	calls := 0
	got, err := withRetry("read", "/share/a.m3u", config, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, &os.PathError{Op: "read", Path: "/share/a.m3u", Err: syscall.ESTALE}
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("withRetry() error = %v", err)
	}
	if got != 42 || calls != 3 {
		t.Errorf("withRetry() = %d after %d calls, want 42 after 3", got, calls)
	}
	if rec.stale != 2 {
		t.Errorf("stale errors = %d, want 2", rec.stale)
	}

	calls = 0
	_, err = withRetry("read", "/share/a.m3u", config, func() (int, error) {
		calls++
		return 0, syscall.ESTALE
	})
	if err == nil {
		t.Error("withRetry() error = nil after exhausting retries")
	}
	if calls != config.MaxRetries+1 {
		t.Errorf("calls = %d, want %d", calls, config.MaxRetries+1)
	}
}

func TestReadDirWithRetry(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"b.m3u", "a.m3u"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := ReadDirWithRetry(tmpDir, fastConfig())
	if err != nil {
		t.Fatalf("ReadDirWithRetry() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Name() != "a.m3u" {
		t.Errorf("ReadDirWithRetry() = %v, want sorted a.m3u, b.m3u", entries)
	}
}
