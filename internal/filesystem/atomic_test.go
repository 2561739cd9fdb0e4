package filesystem

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	tests := []struct {
		name     string
		existing []byte
		data     []byte
	}{
		{"Replace existing", []byte("C:\\a.mp3\n"), []byte("D:\\a.mp3\n")},
		{"Create new", nil, []byte("#EXTM3U\n")},
		{"Shrink", []byte("a much longer original playlist\n"), []byte("x\n")},
		{"Empty content", []byte("content"), []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "mix.m3u")
			if tt.existing != nil {
				if err := os.WriteFile(path, tt.existing, 0o644); err != nil {
					t.Fatal(err)
				}
			}

			if err := WriteFileAtomic(path, tt.data); err != nil {
				t.Fatalf("WriteFileAtomic() error = %v", err)
			}

			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != string(tt.data) {
				t.Errorf("content = %q, want %q", got, tt.data)
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				t.Fatal(err)
			}
			for _, e := range entries {
				if strings.Contains(e.Name(), ".tmp-") {
					t.Errorf("temporary file %s left behind", e.Name())
				}
			}
		})
	}
}

func TestWriteFileAtomic_PreservesMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not preserved on Windows")
	}

	path := filepath.Join(t.TempDir(), "mix.m3u")
	if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0o640); err != nil {
		t.Fatal(err)
	}

	if err := WriteFileAtomic(path, []byte("new")); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("mode = %v, want 0640", info.Mode().Perm())
	}
}

func TestWriteFileAtomic_Errors(t *testing.T) {
	dir := t.TempDir()

	if err := WriteFileAtomic(filepath.Join(dir, "missing", "mix.m3u"), []byte("x")); err == nil {
		t.Error("WriteFileAtomic() into missing directory error = nil")
	}

	if err := WriteFileAtomic(dir, []byte("x")); err == nil {
		t.Error("WriteFileAtomic() over a directory error = nil")
	}
}

func TestWriteFileAtomic_Observed(t *testing.T) {
	rec := &recordingObserver{}
	withObserver(t, rec)

	path := filepath.Join(t.TempDir(), "mix.m3u")
	if err := WriteFileAtomic(path, []byte("x")); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	if len(rec.operations) != 1 || rec.operations[0] != "unknown/write" {
		t.Errorf("observed operations = %v, want [unknown/write]", rec.operations)
	}
}
