// Package scheduler implements the Scheduler Loop (sync-algorithm.md
// §4.7): it owns the in-memory model.Snapshot and repeatedly composes the
// Local Indexer, Remote Indexer, Delta Computer, Reconciler, and Applier
// into one sync pass. Grounded on the teacher's internal/sync/engine.go
// RunOnce cadence (observe → plan → execute → report) and
// drive_runner.go's panic-recovery wrapper, but collapsed to the spec's
// single-drive, fixed-interval shape: no backoff, no jitter, no watch-mode
// daemon lifecycle, no multi-drive fan-out.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arnecode/dropsync/internal/apply"
	"github.com/arnecode/dropsync/internal/delta"
	"github.com/arnecode/dropsync/internal/localindex"
	"github.com/arnecode/dropsync/internal/model"
	"github.com/arnecode/dropsync/internal/reconcile"
	"github.com/arnecode/dropsync/internal/remoteindex"
	"github.com/arnecode/dropsync/internal/remotestore"
)

// Report summarizes one completed sync pass (§4.7), grounded on the
// teacher's SyncReport shape, trimmed to the outcomes this simpler
// reconciler actually produces.
type Report struct {
	Duration time.Duration

	Uploads       int
	Downloads     int
	RemoteDeletes int
	LocalDeletes  int
	ConflictSkips int

	Failed int
	Errors []error

	// DebugSkipped counts upward (local→remote) actions that were
	// classified and logged but never executed because Debug is set (§6
	// "debug"). Zero whenever Debug is false.
	DebugSkipped int

	// Conflicts is one entry per action the reconciler staged as a
	// conflict-skip and the Applier then passed through untouched — the
	// detail behind ConflictSkips, for a status/conflicts CLI surface or
	// an audit record to consume.
	Conflicts []ConflictDetail
}

// ConflictDetail names one path skipped as a conflict during a pass and
// the reason code the reconciler attached (§7 "Conflict").
type ConflictDetail struct {
	Path   string
	Reason model.ConflictReason
}

// addPhase folds one apply.Record slice into the report, keyed by the
// outcome the records were produced for.
func (r *Report) addPhase(outcome model.Outcome, records []apply.Record) {
	for _, rec := range records {
		switch {
		case rec.Failed():
			r.Failed++
			r.Errors = append(r.Errors, rec.Err)

		case !rec.Applied:
			r.ConflictSkips++
			r.Conflicts = append(r.Conflicts, ConflictDetail{Path: rec.Action.Path, Reason: rec.SkippedReason})

		default:
			switch outcome {
			case model.OutcomeUpload:
				r.Uploads++
			case model.OutcomeDownload:
				r.Downloads++
			case model.OutcomeDeleteRemote:
				r.RemoteDeletes++
			case model.OutcomeDeleteLocal:
				r.LocalDeletes++
			}
		}
	}
}

// Scheduler runs sync passes against one local/remote root pair, holding
// the prior pass's Snapshot as the three-way reasoning baseline (§3).
// Not safe for concurrent Run/RunOnce calls; Snapshot is read by Status
// callers through SnapshotCopy, which is safe to call concurrently.
type Scheduler struct {
	store      remotestore.RemoteStore
	localRoot  string
	remoteRoot string
	interval   time.Duration
	logger     *slog.Logger

	// debug mirrors the §6 "debug" config key: upward (local→remote)
	// actions are classified and logged but never applied; downward
	// actions always apply regardless.
	debug bool

	applier    *apply.Applier
	hashByPath localindex.HashProvider

	snapshot model.Snapshot
}

// New returns a Scheduler with an empty Snapshot — the first pass treats
// every local and remote entry as new (§3: an empty prior index is a
// valid base version).
func New(store remotestore.RemoteStore, localRoot, remoteRoot string, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		store:      store,
		localRoot:  localRoot,
		remoteRoot: remoteRoot,
		interval:   interval,
		logger:     logger,
		applier:    apply.New(store, localRoot, remoteRoot, logger),
		hashByPath: localindex.NewHashProvider(localRoot),
		snapshot:   model.NewSnapshot(),
	}
}

// WithConcurrency threads a per-phase file concurrency override down to
// the underlying Applier.
func (s *Scheduler) WithConcurrency(n int) *Scheduler {
	s.applier = s.applier.WithConcurrency(n)
	return s
}

// WithDebug sets the §6 "debug" mode: upward operations are classified
// and logged but never executed.
func (s *Scheduler) WithDebug(debug bool) *Scheduler {
	s.debug = debug
	return s
}

// SnapshotCopy returns an independent copy of the current Snapshot, for
// a status command to inspect without racing a concurrent RunOnce.
func (s *Scheduler) SnapshotCopy() model.Snapshot {
	return model.Snapshot{Local: s.snapshot.Local.Clone(), Remote: s.snapshot.Remote.Clone()}
}

// Run loops RunOnce forever, sleeping interval between passes, until ctx
// is canceled. There is no backoff and no jitter (§4.7) — a failed pass's
// per-action errors are folded into that pass's Report and the next pass
// starts interval later regardless.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		report := s.RunOnce(ctx)
		s.logPass(report)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce executes exactly one sync pass: index both sides, diff each
// against the prior Snapshot, reconcile in the fixed four-phase order
// against working copies of the two indices, apply each phase's
// ActionSet, then adopt the resulting state as the next pass's Snapshot
// (§4.7, §5, §9 "Cyclic mutual references"). A panic during the pass is
// recovered and reported as a failed Report rather than crashing the
// loop, mirroring the teacher's DriveRunner.run isolation.
//
// Reconciliation always mutates its working indices optimistically so
// phase N+1 sees phase N's effects within the pass. In Debug mode the two
// upward phases (§6 "debug") are skipped at apply time, so their
// optimistic claims on the working remote index must not be adopted —
// the next Snapshot.Remote falls back to the freshly observed
// currentRemote in that case. Downward phases always apply, so the
// working local index is always adopted.
func (s *Scheduler) RunOnce(ctx context.Context) (report Report) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			report.Errors = append(report.Errors, fmt.Errorf("scheduler: recovered panic: %v", r))
			report.Failed++
		}

		report.Duration = time.Since(start)
	}()

	currentLocal, err := localindex.Walk(ctx, s.localRoot, s.snapshot.Local, s.logger)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("scheduler: local walk: %w", err))
		report.Failed++

		return report
	}

	currentRemote, err := remoteindex.Build(ctx, s.store, s.remoteRoot, s.logger)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("scheduler: remote build: %w", err))
		report.Failed++

		return report
	}

	localDelta := delta.Compute(currentLocal, s.snapshot.Local)
	remoteDelta := delta.Compute(currentRemote, s.snapshot.Remote)

	workingLocal := currentLocal.Clone()
	workingRemote := currentRemote.Clone()

	sets := reconcile.Phases(localDelta, remoteDelta, workingLocal, workingRemote, reconcile.LocalHash(s.hashByPath), s.logger)

	for _, set := range sets {
		if s.debug && isUpward(set.Op) {
			s.logDebugSkip(set, &report)
			continue
		}

		s.applyPhase(ctx, set, workingLocal, &report)

		if ctx.Err() != nil {
			break
		}
	}

	nextRemote := workingRemote
	if s.debug {
		nextRemote = currentRemote
	}

	s.snapshot = model.Snapshot{Local: workingLocal, Remote: nextRemote}

	return report
}

// isUpward reports whether op is one of the two local→remote phases (§6
// "debug" only suppresses these).
func isUpward(op model.Op) bool {
	return op == model.OpUploadAdd || op == model.OpUploadDel
}

// logDebugSkip records a staged-but-unexecuted upward ActionSet in the
// report and logs it, per §6 "debug".
func (s *Scheduler) logDebugSkip(set model.ActionSet, report *Report) {
	if set.Total() == 0 {
		return
	}

	report.DebugSkipped += set.Total()

	s.logger.Info("debug: upward actions classified but not applied",
		slog.String("op", set.Op.String()),
		slog.Int("count", set.Total()))
}

// applyPhase dispatches one reconciler phase's ActionSet to the matching
// Applier primitive and folds the resulting records into report.
func (s *Scheduler) applyPhase(ctx context.Context, set model.ActionSet, workingLocal model.Index, report *Report) {
	var (
		records []apply.Record
		err     error
		outcome model.Outcome
	)

	switch set.Op {
	case model.OpUploadAdd:
		outcome = model.OutcomeUpload
		records, err = s.applier.Upload(ctx, set)
		adoptUploadHashes(workingLocal, records)
	case model.OpUploadDel:
		outcome = model.OutcomeDeleteRemote
		records, err = s.applier.DeleteRemote(ctx, set)
	case model.OpDownloadAdd:
		outcome = model.OutcomeDownload
		records, err = s.applier.Download(ctx, set)
	case model.OpDownloadDel:
		outcome = model.OutcomeDeleteLocal
		records, err = s.applier.DeleteLocal(ctx, set)
	}

	report.addPhase(outcome, records)

	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		report.Errors = append(report.Errors, fmt.Errorf("scheduler: %s aborted: %w", set.Op, err))
	}
}

// adoptUploadHashes writes each successful upload's confirmed content hash
// into workingLocal before it is adopted as the next pass's Snapshot.Local.
// The reconciler stages a freshly-discovered local file with a blank
// ContentHash (§4.2 hashing is lazy, computed only on demand); without this
// write-back that blank hash survives into the snapshot, and a later local
// delete of the same file forces the reconciler to re-read bytes that no
// longer exist on disk to decide whether the remote copy matches (§4.5
// fillHash) — a failure that otherwise drops the remote-delete action
// entirely instead of staging it.
func adoptUploadHashes(workingLocal model.Index, records []apply.Record) {
	for _, rec := range records {
		if !rec.Applied || rec.ResultHash == "" {
			continue
		}

		entry, ok := workingLocal.Get(rec.Action.Path)
		if !ok {
			continue
		}

		entry.ContentHash = rec.ResultHash
		workingLocal.Set(entry)
	}
}

func (s *Scheduler) logPass(report Report) {
	s.logger.Info("sync pass complete",
		slog.Duration("duration", report.Duration),
		slog.Int("uploads", report.Uploads),
		slog.Int("downloads", report.Downloads),
		slog.Int("remote_deletes", report.RemoteDeletes),
		slog.Int("local_deletes", report.LocalDeletes),
		slog.Int("conflict_skips", report.ConflictSkips),
		slog.Int("failed", report.Failed),
		slog.Int("debug_skipped", report.DebugSkipped),
	)
}
