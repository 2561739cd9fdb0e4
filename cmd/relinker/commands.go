package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"playlist-relinker/internal/database"
	"playlist-relinker/internal/remap"
	"playlist-relinker/internal/session"
)

var errLedgerDisabled = errors.New("the ledger is disabled (set DATABASE_DIR or --db-dir)")

func newScanCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List the playlists in --dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := a.targets(cmd.Context(), nil)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(a.out, p)
			}
			return nil
		},
	}
}

func newGroupsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "groups [PLAYLIST...]",
		Short: "Show playlist entries grouped by root folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}
			printGroups(a.out, a.sess.Group(files, a.config.GroupDepth))
			return nil
		},
	}
}

func newPreviewCommand(a *app) *cobra.Command {
	var pairs []string
	cmd := &cobra.Command{
		Use:   "preview --map OLD=NEW [PLAYLIST...]",
		Short: "Show what a relink would change without writing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := parseSubstitutions(pairs)
			if err != nil {
				return err
			}
			files, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}
			changes, err := a.sess.PreviewRelink(files, subs, a.config.GroupDepth)
			if err != nil {
				return withExitCode(exitUsage, err)
			}
			printChanges(a.out, changes)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&pairs, "map", "m", nil, "root substitution OLD=NEW (repeatable)")
	return cmd
}

func parseSubstitutions(pairs []string) ([]session.Substitution, error) {
	if len(pairs) == 0 {
		return nil, withExitCode(exitUsage, errors.New("at least one --map OLD=NEW is required"))
	}
	subs, err := session.ParseSubstitutions(pairs)
	if err != nil {
		return nil, withExitCode(exitUsage, err)
	}
	return subs, nil
}

func newRelinkCommand(a *app) *cobra.Command {
	var pairs []string
	cmd := &cobra.Command{
		Use:   "relink --map OLD=NEW [PLAYLIST...]",
		Short: "Replace root folders across playlists, backing each one up first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			subs, err := parseSubstitutions(pairs)
			if err != nil {
				return err
			}
			paths, err := a.targets(ctx, args)
			if err != nil {
				return err
			}

			files, errs := a.sess.LoadAll(ctx, paths)
			for i, err := range errs {
				if err != nil {
					fmt.Fprintf(a.errOut, "skipping %s: %v\n", paths[i], err)
				}
			}
			changes, err := a.sess.PreviewRelink(files, subs, a.config.GroupDepth)
			if err != nil {
				return withExitCode(exitUsage, err)
			}
			entries, touched := countApplicable(changes)
			if entries == 0 {
				fmt.Fprintln(a.out, "Nothing to change.")
				return nil
			}
			for _, s := range subs {
				fmt.Fprintf(a.out, "  %s -> %s\n", s.Old, s.New)
			}
			if err := a.confirm(fmt.Sprintf("Change %d entries in %d playlists?", entries, touched)); err != nil {
				return err
			}

			results, err := a.sess.Relink(ctx, paths, subs, a.config.GroupDepth)
			if err != nil {
				return withExitCode(exitUsage, err)
			}
			return a.report(results)
		},
	}
	cmd.Flags().StringArrayVarP(&pairs, "map", "m", nil, "root substitution OLD=NEW (repeatable)")
	return cmd
}

// countApplicable counts the changes that would be written and the files
// they belong to.
func countApplicable(changes []remap.Change) (entries, files int) {
	seen := make(map[string]bool)
	for _, c := range changes {
		if c.Err != nil || c.After.Equal(c.Before) {
			continue
		}
		entries++
		if !seen[c.File] {
			seen[c.File] = true
			files++
		}
	}
	return entries, files
}

func newDrivesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "drives [PLAYLIST...]",
		Short: "List the drive letters used by playlist entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}
			for _, d := range remap.Drives(files) {
				fmt.Fprintf(a.out, "%s:\n", d)
			}
			return nil
		},
	}
}

func newSwapDrivesCommand(a *app) *cobra.Command {
	var pairs []string
	cmd := &cobra.Command{
		Use:   "swap-drives --map C=D [PLAYLIST...]",
		Short: "Change drive letters across playlists, backing each one up first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(pairs) == 0 {
				return withExitCode(exitUsage, errors.New("at least one --map C=D is required"))
			}
			mapping, err := remap.ParseDriveMapping(pairs)
			if err == nil {
				mapping, err = mapping.Validate()
			}
			if err != nil {
				return withExitCode(exitUsage, err)
			}
			if len(mapping) == 0 {
				fmt.Fprintln(a.out, "Nothing to change.")
				return nil
			}

			paths, err := a.targets(ctx, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "  %s\n", formatMapping(mapping))
			if err := a.confirm(fmt.Sprintf("Swap drive letters in %d playlists?", len(paths))); err != nil {
				return err
			}

			results, err := a.sess.BatchDriveSwap(ctx, paths, mapping)
			if err != nil {
				return withExitCode(exitUsage, err)
			}
			return a.report(results)
		},
	}
	cmd.Flags().StringArrayVarP(&pairs, "map", "m", nil, "drive mapping C=D (repeatable)")
	return cmd
}

func newBackupsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backups PLAYLIST",
		Short: "List the backups kept for a playlist, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			handles, err := a.sess.Backups(args[0])
			if err != nil {
				return err
			}
			if len(handles) == 0 {
				fmt.Fprintln(a.out, "No backups.")
				return nil
			}
			printBackups(a.out, handles)
			return nil
		},
	}
}

func newRestoreCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore PLAYLIST BACKUP",
		Short: "Replace a playlist with one of its backups",
		Long:  "Replace a playlist with one of its backups. The content being replaced is backed up first.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.confirm(fmt.Sprintf("Restore %s from %s?", args[0], args[1])); err != nil {
				return err
			}
			res := a.sess.Restore(cmd.Context(), args[0], args[1])
			return a.report([]session.FileResult{res})
		},
	}
}

func newHistoryCommand(a *app) *cobra.Command {
	var (
		runID        string
		playlistPath string
		limit        int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded saves from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.db == nil {
				return errLedgerDisabled
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			var (
				recs []database.SaveRecord
				err  error
			)
			switch {
			case runID != "":
				sum, sumErr := a.db.RunSummary(ctx, runID)
				if sumErr != nil {
					return fmt.Errorf("run %s: %w", runID, sumErr)
				}
				printRunSummary(a.out, sum)
				recs, err = a.db.SavesForRun(ctx, runID)
			case playlistPath != "":
				recs, err = a.db.SavesForPlaylist(ctx, playlistPath)
			default:
				recs, err = a.db.RecentSaves(ctx, limit)
			}
			if err != nil {
				return err
			}
			printHistory(a.out, recs)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "show one run")
	cmd.Flags().StringVar(&playlistPath, "playlist", "", "show saves of one playlist")
	cmd.Flags().IntVar(&limit, "limit", 50, "number of recent saves")
	return cmd
}

// report prints batch results and turns failures into the partial exit status.
func (a *app) report(results []session.FileResult) error {
	failed := printResults(a.out, results)
	if failed > 0 {
		return withExitCode(exitPartial, fmt.Errorf("%d of %d playlists could not be saved", failed, len(results)))
	}
	return nil
}

func formatMapping(m remap.DriveMapping) string {
	pairs := make([]string, 0, len(m))
	for _, from := range sortedKeys(m) {
		pairs = append(pairs, from+": -> "+m[from]+":")
	}
	return strings.Join(pairs, ", ")
}
