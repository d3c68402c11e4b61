package main

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/arnecode/dropsync/internal/audit"
	"github.com/arnecode/dropsync/internal/auth"
	"github.com/arnecode/dropsync/internal/config"
	"github.com/arnecode/dropsync/internal/remotestore/httpstore"
	"github.com/arnecode/dropsync/internal/scheduler"
)

// transferHTTPClient returns an HTTP client with no fixed timeout — large
// file transfers over a slow link can run far longer than a metadata RPC.
// No per-call deadline is set either, so a call ends only when it
// completes, fails, or the pass's context is canceled.
func transferHTTPClient() *http.Client {
	return &http.Client{Timeout: 0}
}

// newScheduler wires a Scheduler from resolved config: an oauth2
// refresh-token TokenProvider, an httpstore.Client RemoteStore, and the
// reconciliation pipeline, exactly as sync-algorithm.md §6 describes the
// external collaborators. dryRun forces debug mode for this invocation
// regardless of the config file's debug key, mirroring the teacher's
// sync.go --dry-run flag.
func newScheduler(ctx context.Context, cc *CLIContext, dryRun bool) *scheduler.Scheduler {
	cfg := cc.Cfg

	creds := auth.Credentials{
		AppKey:       cfg.AppKey,
		AppSecret:    cfg.AppSecret,
		RefreshToken: cfg.RefreshToken,
		TokenURL:     httpstore.DefaultTokenURL,
	}

	provider := auth.New(ctx, creds, cc.Logger)
	store := httpstore.New(httpstore.DefaultBaseURL, transferHTTPClient(), provider, cc.Logger)

	interval := time.Duration(cfg.IntervalSeconds) * time.Second

	return scheduler.New(store, cfg.LocalFolder, cfg.RemoteRootPath(), interval, cc.Logger).
		WithDebug(cfg.Debug || dryRun)
}

// auditDBPath is the fixed location of the operator-facing audit database,
// derived from config.DefaultDataDir (§6 "Persisted state: none on disk in
// the core" — this lives entirely outside that boundary).
func auditDBPath() string {
	dir := config.DefaultDataDir()
	if dir == "" {
		return "dropsync-audit.db"
	}

	return filepath.Join(dir, "audit.db")
}

// openAudit opens (creating if absent) the audit database used by the
// status/conflicts commands and by sync run/once to record pass history.
func openAudit(cc *CLIContext) (*audit.Store, error) {
	store, err := audit.Open(auditDBPath(), cc.Logger)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	return store, nil
}

// recordPass converts a scheduler.Report into an audit entry.
func recordPass(ctx context.Context, store *audit.Store, startedAt time.Time, report scheduler.Report) error {
	summary := audit.RunSummary{
		StartedAt:     startedAt,
		Duration:      report.Duration,
		Uploads:       report.Uploads,
		Downloads:     report.Downloads,
		RemoteDeletes: report.RemoteDeletes,
		LocalDeletes:  report.LocalDeletes,
		ConflictSkips: report.ConflictSkips,
		DebugSkipped:  report.DebugSkipped,
		Failed:        report.Failed,
		ErrorSummary:  firstErrorString(report.Errors),
	}

	conflicts := make([]audit.ConflictEntry, len(report.Conflicts))
	for i, c := range report.Conflicts {
		conflicts[i] = audit.ConflictEntry{Path: c.Path, Reason: c.Reason}
	}

	_, err := store.RecordRun(ctx, summary, conflicts)

	return err
}

func firstErrorString(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	return errs[0].Error()
}
