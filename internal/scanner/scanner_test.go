package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

// createTestTree lays out files (relative paths) under a temporary root.
func createTestTree(t *testing.T, files []string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("#EXTM3U\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func relative(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func TestScan(t *testing.T) {
	root := createTestTree(t, []string{
		"b.m3u8",
		"a.m3u",
		"c.fplite",
		"d.fpl",
		"notes.txt",
		"cover.jpg",
		"song.mp3",
		".hidden.m3u",
		"backup/a.m3u",
		"rock/live.m3u8",
		"rock/deep/x.m3u",
		".git/y.m3u",
	})

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "top level only",
			opts: DefaultOptions(),
			want: []string{"a.m3u", "b.m3u8", "c.fplite", "d.fpl", "notes.txt"},
		},
		{
			name: "recursive",
			opts: Options{Recursive: true, SkipHidden: true, SkipDirs: []string{"backup"}},
			want: []string{"a.m3u", "b.m3u8", "c.fplite", "d.fpl", "notes.txt", "rock/deep/x.m3u", "rock/live.m3u8"},
		},
		{
			name: "recursive including hidden and backups",
			opts: Options{Recursive: true},
			want: []string{
				".git/y.m3u", ".hidden.m3u", "a.m3u", "b.m3u8", "backup/a.m3u", "c.fplite",
				"d.fpl", "notes.txt", "rock/deep/x.m3u", "rock/live.m3u8",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths, err := Scan(context.Background(), root, tt.opts)
			if err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			got := relative(t, root, paths)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Scan() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScanEmpty(t *testing.T) {
	paths, err := Scan(context.Background(), t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("Scan() = %v, want none", paths)
	}
}

func TestScanErrors(t *testing.T) {
	root := createTestTree(t, []string{"a.m3u"})

	t.Run("missing root", func(t *testing.T) {
		if _, err := Scan(context.Background(), filepath.Join(root, "missing"), DefaultOptions()); err == nil {
			t.Error("Scan() of a missing folder succeeded")
		}
	})

	t.Run("root is a file", func(t *testing.T) {
		if _, err := Scan(context.Background(), filepath.Join(root, "a.m3u"), DefaultOptions()); err == nil {
			t.Error("Scan() of a file succeeded")
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Scan(ctx, root, DefaultOptions())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Scan() error = %v, want context.Canceled", err)
		}
	})
}
