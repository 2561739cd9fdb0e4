package main

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"playlist-relinker/internal/backup"
	"playlist-relinker/internal/database"
	"playlist-relinker/internal/remap"
	"playlist-relinker/internal/session"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printGroups(w io.Writer, groups []remap.RootGroup) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ROOT\tENTRIES\tPLAYLISTS")
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", g.Root, len(g.Members), len(g.Files()))
	}
	_ = tw.Flush()
}

func printChanges(w io.Writer, changes []remap.Change) {
	if len(changes) == 0 {
		fmt.Fprintln(w, "No entries under the given roots.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "PLAYLIST\tLINE\tBEFORE\tAFTER")
	for _, c := range changes {
		after := c.After.String()
		if c.Err != nil {
			after = "(skipped: " + c.Err.Error() + ")"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", c.File, c.Line, c.Before, after)
	}
	_ = tw.Flush()

	entries, files := countApplicable(changes)
	fmt.Fprintf(w, "\n%d entries in %d playlists would change.\n", entries, files)
}

// printResults prints one line per file plus any skipped entries, and
// returns how many files failed.
func printResults(w io.Writer, results []session.FileResult) int {
	var saved, unchanged, failed, entries int
	for _, r := range results {
		switch r.Status {
		case database.StatusSuccess:
			saved++
			entries += r.EntriesChanged
			line := fmt.Sprintf("saved      %s (%d entries)", r.Path, r.EntriesChanged)
			if r.Backup != nil {
				line += ", backup " + r.Backup.Path
			}
			fmt.Fprintln(w, line)
		case database.StatusUnchanged:
			unchanged++
			fmt.Fprintf(w, "unchanged  %s\n", r.Path)
		default:
			failed++
			fmt.Fprintf(w, "FAILED     %s: %s\n", r.Path, r.Error)
		}
		for _, f := range r.Failures {
			fmt.Fprintf(w, "  skipped line %d (%s): %s\n", f.Line, f.Reason(), f.Path)
		}
	}
	fmt.Fprintf(w, "\n%d saved, %d unchanged, %d failed; %d entries changed.\n", saved, unchanged, failed, entries)
	return failed
}

func printBackups(w io.Writer, handles []backup.Handle) {
	tw := newTable(w)
	fmt.Fprintln(tw, "BACKUP\tSIZE\tCREATED\tDIGEST")
	for _, h := range handles {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", h.Path, h.Size, h.CreatedAt.Local().Format(time.DateTime), shortDigest(h.Digest))
	}
	_ = tw.Flush()
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func printRunSummary(w io.Writer, s database.RunSummary) {
	fmt.Fprintf(w, "Run %s: %d playlists, %d saved, %d unchanged, %d failed, %d entries changed\n",
		s.RunID, s.Files, s.Succeeded, s.Unchanged, s.Failed, s.EntriesChanged)
	fmt.Fprintf(w, "  %s to %s\n\n", s.StartedAt.Local().Format(time.DateTime), s.FinishedAt.Local().Format(time.DateTime))
}

func printHistory(w io.Writer, recs []database.SaveRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No saves recorded.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "TIME\tOPERATION\tSTATUS\tENTRIES\tPLAYLIST\tRUN")
	for _, r := range recs {
		status := r.Status
		if r.Error != "" {
			status += ": " + r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.CreatedAt.Local().Format(time.DateTime), r.Operation, status, r.EntriesChanged, r.PlaylistPath, r.RunID)
	}
	_ = tw.Flush()
}

func sortedKeys(m remap.DriveMapping) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
