package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"playlist-relinker/internal/logging"
	"playlist-relinker/internal/metrics"
)

// Save statuses
const (
	StatusSuccess   = "success"
	StatusUnchanged = "unchanged"
	StatusError     = "error"
)

// SaveRecord is one ledger row.
type SaveRecord struct {
	ID             int64     `json:"id"`
	RunID          string    `json:"runId"`
	PlaylistPath   string    `json:"playlistPath"`
	BackupPath     string    `json:"backupPath,omitempty"`
	BackupDigest   string    `json:"backupDigest,omitempty"`
	BytesBefore    int64     `json:"bytesBefore"`
	BytesAfter     int64     `json:"bytesAfter"`
	EntriesChanged int       `json:"entriesChanged"`
	Operation      string    `json:"operation"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// RunSummary aggregates the rows of one run.
type RunSummary struct {
	RunID          string    `json:"runId"`
	Files          int       `json:"files"`
	Succeeded      int       `json:"succeeded"`
	Unchanged      int       `json:"unchanged"`
	Failed         int       `json:"failed"`
	EntriesChanged int       `json:"entriesChanged"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
}

const saveColumns = `id, run_id, playlist_path, backup_path, backup_digest, bytes_before,
	bytes_after, entries_changed, operation, status, error, created_at`

// RecordSave appends rec to the ledger and returns its ID. A zero CreatedAt
// is set to the current time.
func (d *Database) RecordSave(ctx context.Context, rec SaveRecord) (id int64, err error) {
	start := time.Now()
	defer func() { recordQuery("record_save", start, err) }()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `
	INSERT INTO saves (run_id, playlist_path, backup_path, backup_digest, bytes_before,
		bytes_after, entries_changed, operation, status, error, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.PlaylistPath, rec.BackupPath, rec.BackupDigest, rec.BytesBefore,
		rec.BytesAfter, rec.EntriesChanged, rec.Operation, rec.Status, rec.Error,
		rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("record save of %s: %w", rec.PlaylistPath, err)
	}
	return res.LastInsertId()
}

// SavesForPlaylist returns the ledger rows for one playlist, newest first.
func (d *Database) SavesForPlaylist(ctx context.Context, playlistPath string) (recs []SaveRecord, err error) {
	start := time.Now()
	defer func() { recordQuery("saves_for_playlist", start, err) }()

	return d.querySaves(ctx, `SELECT `+saveColumns+` FROM saves
		WHERE playlist_path = ? ORDER BY created_at DESC, id DESC`, playlistPath)
}

// RecentSaves returns up to limit rows, newest first.
func (d *Database) RecentSaves(ctx context.Context, limit int) (recs []SaveRecord, err error) {
	start := time.Now()
	defer func() { recordQuery("recent_saves", start, err) }()

	if limit <= 0 {
		limit = 50
	}
	return d.querySaves(ctx, `SELECT `+saveColumns+` FROM saves
		ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

// SavesForRun returns the rows of one run in the order they were written.
func (d *Database) SavesForRun(ctx context.Context, runID string) ([]SaveRecord, error) {
	return d.querySaves(ctx, `SELECT `+saveColumns+` FROM saves
		WHERE run_id = ? ORDER BY id`, runID)
}

func (d *Database) querySaves(ctx context.Context, query string, args ...any) ([]SaveRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close rows: %v", closeErr)
		}
	}()

	var recs []SaveRecord
	for rows.Next() {
		var rec SaveRecord
		var created int64
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.PlaylistPath, &rec.BackupPath,
			&rec.BackupDigest, &rec.BytesBefore, &rec.BytesAfter, &rec.EntriesChanged,
			&rec.Operation, &rec.Status, &rec.Error, &created); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.UnixMilli(created)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// RunSummary aggregates the rows written under runID. It returns
// sql.ErrNoRows when the run is unknown.
func (d *Database) RunSummary(ctx context.Context, runID string) (sum RunSummary, err error) {
	start := time.Now()
	defer func() { recordQuery("run_summary", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var first, last sql.NullInt64
	err = d.db.QueryRowContext(ctx, `
	SELECT COUNT(*),
		COALESCE(SUM(status = 'success'), 0),
		COALESCE(SUM(status = 'unchanged'), 0),
		COALESCE(SUM(status = 'error'), 0),
		COALESCE(SUM(entries_changed), 0),
		MIN(created_at), MAX(created_at)
	FROM saves WHERE run_id = ?`, runID).Scan(
		&sum.Files, &sum.Succeeded, &sum.Unchanged, &sum.Failed, &sum.EntriesChanged, &first, &last)
	if err != nil {
		return RunSummary{}, err
	}
	if sum.Files == 0 {
		return RunSummary{}, sql.ErrNoRows
	}

	sum.RunID = runID
	sum.StartedAt = time.UnixMilli(first.Int64)
	sum.FinishedAt = time.UnixMilli(last.Int64)
	return sum, nil
}

// GetStats returns ledger totals for the metrics collector. Errors are
// logged and yield zero values.
func (d *Database) GetStats() metrics.Stats {
	start := time.Now()
	var err error
	defer func() { recordQuery("stats", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var stats metrics.Stats
	err = d.db.QueryRowContext(ctx, `
	SELECT COALESCE(SUM(status = 'success'), 0),
		COALESCE(SUM(status = 'unchanged'), 0),
		COALESCE(SUM(status = 'error'), 0),
		COUNT(DISTINCT playlist_path),
		COUNT(DISTINCT run_id)
	FROM saves`).Scan(&stats.SuccessfulSaves, &stats.UnchangedSaves, &stats.FailedSaves,
		&stats.Playlists, &stats.Runs)
	if err != nil {
		logging.Warn("Failed to read ledger stats: %v", err)
		return metrics.Stats{}
	}
	return stats
}
