package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupTestDB creates a ledger in a temporary directory.
func setupTestDB(t *testing.T) *Database {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return db
}

func TestNewCreatesSchema(t *testing.T) {
	db := setupTestDB(t)

	if _, err := os.Stat(db.Path()); err != nil {
		t.Fatalf("database file not created: %v", err)
	}

	var name string
	err := db.db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='saves'`).Scan(&name)
	if err != nil {
		t.Fatalf("saves table missing: %v", err)
	}

	var mode string
	if err := db.db.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestNewReopensExisting(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), FileName)
	ctx := context.Background()

	db, err := New(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.RecordSave(ctx, SaveRecord{RunID: "r1", PlaylistPath: "/m/a.m3u", Operation: "relink", Status: StatusSuccess}); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = New(ctx, dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	recs, err := db.RecentSaves(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Errorf("RecentSaves() after reopen = %d rows, want 1", len(recs))
	}
}

func TestNewMissingDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing", "test.db")
	if _, err := New(context.Background(), dbPath); err == nil {
		t.Error("New() in a missing directory succeeded, want error")
	}
}

func TestRecordSaveRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	want := SaveRecord{
		RunID:          "run-1",
		PlaylistPath:   "/music/lists/rock.m3u8",
		BackupPath:     "/music/lists/backup/rock.m3u8",
		BackupDigest:   "abcd",
		BytesBefore:    120,
		BytesAfter:     118,
		EntriesChanged: 4,
		Operation:      "relink",
		Status:         StatusSuccess,
		CreatedAt:      created,
	}

	id, err := db.RecordSave(ctx, want)
	if err != nil {
		t.Fatalf("RecordSave() error = %v", err)
	}
	if id <= 0 {
		t.Errorf("RecordSave() id = %d, want > 0", id)
	}

	recs, err := db.SavesForPlaylist(ctx, want.PlaylistPath)
	if err != nil {
		t.Fatalf("SavesForPlaylist() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("SavesForPlaylist() = %d rows, want 1", len(recs))
	}

	got := recs[0]
	want.ID = id
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	got.CreatedAt = want.CreatedAt
	if got != want {
		t.Errorf("record = %+v, want %+v", got, want)
	}
}

func TestRecordSaveDefaultsCreatedAt(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	if _, err := db.RecordSave(ctx, SaveRecord{RunID: "r", PlaylistPath: "a", Operation: "drive_swap", Status: StatusUnchanged}); err != nil {
		t.Fatal(err)
	}
	recs, err := db.RecentSaves(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].CreatedAt.Before(before) {
		t.Errorf("RecentSaves() = %+v, want one row created after %v", recs, before)
	}
}

func TestSavesOrdering(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range []string{"a.m3u", "b.m3u", "a.m3u", "c.m3u"} {
		_, err := db.RecordSave(ctx, SaveRecord{
			RunID:        "run",
			PlaylistPath: p,
			Operation:    "relink",
			Status:       StatusSuccess,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	t.Run("SavesForPlaylist newest first", func(t *testing.T) {
		recs, err := db.SavesForPlaylist(ctx, "a.m3u")
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 2 {
			t.Fatalf("got %d rows, want 2", len(recs))
		}
		if !recs[0].CreatedAt.After(recs[1].CreatedAt) {
			t.Errorf("rows not newest first: %v, %v", recs[0].CreatedAt, recs[1].CreatedAt)
		}
	})

	t.Run("RecentSaves limit", func(t *testing.T) {
		recs, err := db.RecentSaves(ctx, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 2 || recs[0].PlaylistPath != "c.m3u" || recs[1].PlaylistPath != "a.m3u" {
			t.Errorf("RecentSaves(2) = %+v", recs)
		}
	})

	t.Run("RecentSaves default limit", func(t *testing.T) {
		recs, err := db.RecentSaves(ctx, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 4 {
			t.Errorf("RecentSaves(0) = %d rows, want 4", len(recs))
		}
	})

	t.Run("SavesForRun insertion order", func(t *testing.T) {
		recs, err := db.SavesForRun(ctx, "run")
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 4 || recs[0].PlaylistPath != "a.m3u" || recs[3].PlaylistPath != "c.m3u" {
			t.Errorf("SavesForRun() = %+v", recs)
		}
	})

	t.Run("unknown playlist", func(t *testing.T) {
		recs, err := db.SavesForPlaylist(ctx, "nope.m3u")
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 0 {
			t.Errorf("got %d rows, want 0", len(recs))
		}
	})
}

func TestRunSummary(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	rows := []SaveRecord{
		{RunID: "batch", PlaylistPath: "1.m3u", Status: StatusSuccess, EntriesChanged: 10},
		{RunID: "batch", PlaylistPath: "2.m3u", Status: StatusSuccess, EntriesChanged: 5},
		{RunID: "batch", PlaylistPath: "3.m3u", Status: StatusUnchanged},
		{RunID: "batch", PlaylistPath: "4.m3u", Status: StatusError, Error: "permission denied"},
		{RunID: "other", PlaylistPath: "1.m3u", Status: StatusSuccess, EntriesChanged: 99},
	}
	for i, rec := range rows {
		rec.Operation = "drive_swap"
		rec.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if _, err := db.RecordSave(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	sum, err := db.RunSummary(ctx, "batch")
	if err != nil {
		t.Fatalf("RunSummary() error = %v", err)
	}
	want := RunSummary{
		RunID:          "batch",
		Files:          4,
		Succeeded:      2,
		Unchanged:      1,
		Failed:         1,
		EntriesChanged: 15,
		StartedAt:      base,
		FinishedAt:     base.Add(3 * time.Second),
	}
	if sum.RunID != want.RunID || sum.Files != want.Files || sum.Succeeded != want.Succeeded ||
		sum.Unchanged != want.Unchanged || sum.Failed != want.Failed || sum.EntriesChanged != want.EntriesChanged {
		t.Errorf("RunSummary() = %+v, want %+v", sum, want)
	}
	if !sum.StartedAt.Equal(want.StartedAt) || !sum.FinishedAt.Equal(want.FinishedAt) {
		t.Errorf("RunSummary() span = %v..%v, want %v..%v", sum.StartedAt, sum.FinishedAt, want.StartedAt, want.FinishedAt)
	}

	if _, err := db.RunSummary(ctx, "unknown"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("RunSummary(unknown) error = %v, want sql.ErrNoRows", err)
	}
}

func TestGetStats(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if got := db.GetStats(); got.Runs != 0 || got.Playlists != 0 {
		t.Errorf("GetStats() on empty ledger = %+v", got)
	}

	for _, rec := range []SaveRecord{
		{RunID: "r1", PlaylistPath: "a", Status: StatusSuccess},
		{RunID: "r1", PlaylistPath: "b", Status: StatusError},
		{RunID: "r2", PlaylistPath: "a", Status: StatusUnchanged},
		{RunID: "r2", PlaylistPath: "a", Status: StatusSuccess},
	} {
		rec.Operation = "relink"
		if _, err := db.RecordSave(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	got := db.GetStats()
	if got.SuccessfulSaves != 2 || got.UnchangedSaves != 1 || got.FailedSaves != 1 {
		t.Errorf("GetStats() statuses = %+v", got)
	}
	if got.Playlists != 2 || got.Runs != 2 {
		t.Errorf("GetStats() = %d playlists, %d runs; want 2, 2", got.Playlists, got.Runs)
	}
}

func TestDiagnoseDatabasePermissions(t *testing.T) {
	t.Run("writable directory", func(t *testing.T) {
		if err := diagnoseDatabasePermissions(filepath.Join(t.TempDir(), "x.db")); err != nil {
			t.Errorf("diagnoseDatabasePermissions() error = %v", err)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		if err := diagnoseDatabasePermissions(filepath.Join(t.TempDir(), "nope", "x.db")); err == nil {
			t.Error("diagnoseDatabasePermissions() = nil, want error")
		}
	})
}
