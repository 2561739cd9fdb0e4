package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"playlist-relinker/internal/database"
	"playlist-relinker/internal/logging"
	"playlist-relinker/internal/playlist"
	"playlist-relinker/internal/session"
	"playlist-relinker/internal/startup"
)

const (
	exitUsage    = 1
	exitPartial  = 2
	exitDeclined = 3

	// Default timeout for ledger queries
	defaultTimeout = 30 * time.Second
)

// exitError carries the process exit status for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

var errDeclined = errors.New("aborted, nothing was written")

// app holds what the subcommands share.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	config   *startup.Config
	yes      bool
	noLedger bool
	logLevel string

	// isTerminal reports whether stdin is interactive.
	isTerminal func() bool

	db   *database.Database
	sess *session.Session
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		in:         in,
		out:        out,
		errOut:     errOut,
		config:     startup.FromEnv(),
		logLevel:   "warn",
		isTerminal: func() bool { return false },
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "relinker",
		Short:         "Repair playlists whose entries point at moved folders or drives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.config.ScanDir, "dir", "d", a.config.ScanDir, "folder to scan when no playlists are given")
	flags.BoolVarP(&a.config.ScanRecursive, "recursive", "r", a.config.ScanRecursive, "include subfolders when scanning")
	flags.IntVar(&a.config.GroupDepth, "depth", a.config.GroupDepth, "folder components kept in a root group")
	flags.StringVar(&a.config.BackupDirName, "backup-dir", a.config.BackupDirName, "folder beside each playlist that holds backups")
	flags.StringVar(&a.config.DatabaseDir, "db-dir", a.config.DatabaseDir, "ledger directory")
	flags.BoolVar(&a.noLedger, "no-ledger", false, "do not record saves in the ledger")
	flags.IntVar(&a.config.Workers, "workers", a.config.Workers, "parallel playlist loads")
	flags.BoolVarP(&a.yes, "yes", "y", false, "do not ask for confirmation")
	flags.StringVar(&a.logLevel, "log-level", a.logLevel, "debug, info, warn or error")

	root.AddCommand(
		newScanCommand(a),
		newGroupsCommand(a),
		newPreviewCommand(a),
		newRelinkCommand(a),
		newDrivesCommand(a),
		newSwapDrivesCommand(a),
		newBackupsCommand(a),
		newRestoreCommand(a),
		newHistoryCommand(a),
	)
	return root
}

// setup validates the configuration and opens the session and, unless
// disabled, the ledger.
func (a *app) setup() error {
	level, ok := logging.ParseLevel(a.logLevel)
	if !ok {
		return withExitCode(exitUsage, fmt.Errorf("--log-level: unknown level %q", a.logLevel))
	}
	logging.SetLevel(level)

	if err := a.config.Validate(); err != nil {
		return withExitCode(exitUsage, err)
	}

	opts := session.Options{
		BackupDirName: a.config.BackupDirName,
		Workers:       a.config.Workers,
		SkipHidden:    true,
	}
	if !a.noLedger {
		a.config.PrepareLedger()
	}
	if !a.noLedger && a.config.LedgerEnabled {
		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		db, err := database.New(ctx, a.config.DatabasePath)
		cancel()
		if err != nil {
			logging.Warn("Ledger unavailable, saves will not be recorded: %v", err)
		} else {
			a.db = db
			opts.Ledger = db
		}
	}
	a.sess = session.New(opts)
	return nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		fmt.Fprintf(a.errOut, "Warning: failed to close ledger: %v\n", err)
	}
	a.db = nil
}

// confirm asks before writing. Without a terminal there is nobody to ask and
// the operation proceeds.
func (a *app) confirm(prompt string) error {
	if a.yes || !a.isTerminal() {
		return nil
	}
	fmt.Fprintf(a.out, "%s [y/N] ", prompt)
	answer, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	}
	return withExitCode(exitDeclined, errDeclined)
}

// targets returns args, or the playlists in the scan folder when args is empty.
func (a *app) targets(ctx context.Context, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	return a.sess.Scan(ctx, a.config.ScanDir, a.config.ScanRecursive)
}

// load reads the target playlists, reporting the ones that fail.
func (a *app) load(ctx context.Context, args []string) ([]*playlist.File, error) {
	paths, err := a.targets(ctx, args)
	if err != nil {
		return nil, err
	}
	files, errs := a.sess.LoadAll(ctx, paths)

	loaded := make([]*playlist.File, 0, len(files))
	for i, f := range files {
		if errs[i] != nil {
			fmt.Fprintf(a.errOut, "skipping %s: %v\n", paths[i], errs[i])
			continue
		}
		loaded = append(loaded, f)
	}
	return loaded, ctx.Err()
}
