package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/arnecode/dropsync/internal/audit"
	"github.com/arnecode/dropsync/internal/config"
	"github.com/arnecode/dropsync/internal/scheduler"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run the bidirectional sync loop",
	}

	cmd.AddCommand(newSyncRunCmd())
	cmd.AddCommand(newSyncOnceCmd())
	cmd.AddCommand(newSyncReloadCmd())

	return cmd
}

func newSyncReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "reload",
		Short:       "Signal a running 'sync run' daemon to start a pass immediately",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(_ *cobra.Command, _ []string) error {
			return signalRunningDaemon(filepath.Join(config.DefaultDataDir(), "dropsync.pid"))
		},
	}
}

func newSyncOnceCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run exactly one sync pass and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSyncOnce(cmd.Context(), mustCLIContext(cmd.Context()), dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify and log upward actions without executing them, like the debug config key")

	return cmd
}

func newSyncRunCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sync loop continuously at the configured interval",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSyncLoop(cmd.Context(), mustCLIContext(cmd.Context()), dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify and log upward actions without executing them, like the debug config key")

	return cmd
}

func runSyncOnce(ctx context.Context, cc *CLIContext, dryRun bool) error {
	if err := config.EnsureLocalFolder(cc.Cfg); err != nil {
		return err
	}

	store, err := openAudit(cc)
	if err != nil {
		return err
	}
	defer store.Close()

	sched := newScheduler(ctx, cc, dryRun)

	startedAt := time.Now()
	report := sched.RunOnce(ctx)

	if err := recordPass(ctx, store, startedAt, report); err != nil {
		cc.Logger.Warn("sync: failed to record audit entry", slog.String("error", err.Error()))
	}

	printReport(cc, report)

	if report.Failed > 0 {
		return fmt.Errorf("sync completed with %d failed actions", report.Failed)
	}

	return nil
}

func runSyncLoop(ctx context.Context, cc *CLIContext, dryRun bool) error {
	if err := config.EnsureLocalFolder(cc.Cfg); err != nil {
		return err
	}

	store, err := openAudit(cc)
	if err != nil {
		return err
	}
	defer store.Close()

	lockPath := filepath.Join(config.DefaultDataDir(), "dropsync.pid")

	release, err := acquireRunLock(lockPath)
	if err != nil {
		return err
	}
	defer release()

	ctx = shutdownContext(ctx, cc.Logger)
	reload := reloadOnSIGHUP(ctx, cc.Logger)

	sched := newScheduler(ctx, cc, dryRun)

	runLoggingScheduler(ctx, cc, store, sched, reload)

	return nil
}

// runLoggingScheduler drives the scheduler's fixed-interval loop itself
// (rather than delegating to scheduler.Run) so each pass's report can be
// recorded to the audit log as it completes, and so a SIGHUP can trigger
// an extra pass between ticks.
func runLoggingScheduler(
	ctx context.Context, cc *CLIContext, store *audit.Store, sched *scheduler.Scheduler, reload <-chan struct{},
) {
	interval := time.Duration(cc.Cfg.IntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		startedAt := time.Now()
		report := sched.RunOnce(ctx)

		if err := recordPass(ctx, store, startedAt, report); err != nil {
			cc.Logger.Warn("sync: failed to record audit entry", slog.String("error", err.Error()))
		}

		cc.Logger.Info("sync pass complete",
			slog.Int("uploads", report.Uploads),
			slog.Int("downloads", report.Downloads),
			slog.Int("conflict_skips", report.ConflictSkips),
			slog.Int("failed", report.Failed),
		)

		select {
		case <-ctx.Done():
			return
		case <-reload:
			ticker.Reset(interval)
		case <-ticker.C:
		}
	}
}

func printReport(cc *CLIContext, report scheduler.Report) {
	if cc.Flags.JSON {
		printReportJSON(report)
		return
	}

	printReportText(cc, report)
}

func printReportText(cc *CLIContext, report scheduler.Report) {
	if report.Uploads == 0 && report.Downloads == 0 && report.RemoteDeletes == 0 &&
		report.LocalDeletes == 0 && report.ConflictSkips == 0 && report.Failed == 0 {
		cc.Statusf("Already in sync (%s).\n", report.Duration.Round(time.Millisecond))
		return
	}

	cc.Statusf("Sync complete (%s)\n", report.Duration.Round(time.Millisecond))

	if report.Uploads > 0 {
		cc.Statusf("  Uploaded:       %d\n", report.Uploads)
	}

	if report.Downloads > 0 {
		cc.Statusf("  Downloaded:     %d\n", report.Downloads)
	}

	if report.RemoteDeletes > 0 || report.LocalDeletes > 0 {
		cc.Statusf("  Deleted:        %d remote, %d local\n", report.RemoteDeletes, report.LocalDeletes)
	}

	if report.ConflictSkips > 0 {
		cc.Statusf("  Conflict-skips: %d\n", report.ConflictSkips)
	}

	if report.DebugSkipped > 0 {
		cc.Statusf("  Debug-skipped:  %d (upward actions classified but not applied)\n", report.DebugSkipped)
	}

	if report.Failed > 0 {
		cc.Statusf("  Failed:         %d\n", report.Failed)
	}
}

// syncReportJSON is the JSON output schema for sync run/once.
type syncReportJSON struct {
	DurationMs    int64    `json:"duration_ms"`
	Uploads       int      `json:"uploads"`
	Downloads     int      `json:"downloads"`
	RemoteDeletes int      `json:"remote_deletes"`
	LocalDeletes  int      `json:"local_deletes"`
	ConflictSkips int      `json:"conflict_skips"`
	DebugSkipped  int      `json:"debug_skipped"`
	Failed        int      `json:"failed"`
	Errors        []string `json:"errors,omitempty"`
}

func printReportJSON(report scheduler.Report) {
	errs := make([]string, len(report.Errors))
	for i, e := range report.Errors {
		errs[i] = e.Error()
	}

	out := syncReportJSON{
		DurationMs:    report.Duration.Milliseconds(),
		Uploads:       report.Uploads,
		Downloads:     report.Downloads,
		RemoteDeletes: report.RemoteDeletes,
		LocalDeletes:  report.LocalDeletes,
		ConflictSkips: report.ConflictSkips,
		DebugSkipped:  report.DebugSkipped,
		Failed:        report.Failed,
		Errors:        errs,
	}

	printJSON(out)
}
