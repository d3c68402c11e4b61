package apply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/arnecode/dropsync/internal/model"
)

// DeleteLocal applies an OutcomeDeleteLocal ActionSet (§4.6 "Delete-Local"):
// files first, each re-verified against the live filesystem before
// removal; then folders in descending depth order, removed with a
// non-recursive rmdir so any unexpectedly non-empty folder is skipped
// rather than destroyed.
func (a *Applier) DeleteLocal(ctx context.Context, set model.ActionSet) ([]Record, error) {
	records := make([]Record, 0, set.Total())

	for _, action := range set.Files {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		records = append(records, a.deleteLocalFile(action))
	}

	for _, action := range sortDescendingDepth(set.Folders) {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		records = append(records, a.deleteLocalFolder(action))
	}

	return records, nil
}

// deleteLocalFile re-verifies the live (size, mtime) pair against
// action.Expected — the local index entry observed at reconcile time —
// before removing the file. A mismatch means the file changed since it was
// staged, so the delete is skipped as a conflict rather than destroying
// newer content.
func (a *Applier) deleteLocalFile(action model.Action) Record {
	if action.Outcome == model.OutcomeConflictSkip {
		return conflictSkipRecord(action)
	}

	localPath := a.localFSPath(action.Path)

	info, err := os.Stat(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Already gone; nothing left to do.
			return Record{Action: action, Applied: true}
		}

		return Record{Action: action, Err: fmt.Errorf("apply: stat before delete %s: %w", action.Path, err)}
	}

	liveMtime := model.RoundMtime(float64(info.ModTime().UnixNano()) / float64(time.Second))
	if info.Size() != action.Expected.Size || liveMtime != action.Expected.Mtime {
		a.logger.Warn("apply: local delete conflict-skip: file changed since staging", slog.String("path", action.Path))
		return Record{Action: action, SkippedReason: model.ReasonTargetMissing}
	}

	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		return Record{Action: action, Err: fmt.Errorf("apply: remove %s: %w", action.Path, err)}
	}

	return Record{Action: action, Applied: true}
}

// deleteLocalFolder removes an empty local folder with a non-recursive
// rmdir; a non-empty folder is a conflict (content arrived after the
// folder was staged for removal) and is skipped, never force-removed.
func (a *Applier) deleteLocalFolder(action model.Action) Record {
	if action.Outcome == model.OutcomeConflictSkip {
		return conflictSkipRecord(action)
	}

	localPath := a.localFSPath(action.Path)

	err := os.Remove(localPath)
	switch {
	case err == nil:
		return Record{Action: action, Applied: true}
	case os.IsNotExist(err):
		return Record{Action: action, Applied: true}
	case isNotEmpty(err):
		a.logger.Warn("apply: local delete conflict-skip: folder not empty", slog.String("path", action.Path))
		return Record{Action: action, SkippedReason: model.ReasonUnexpectedTarget}
	default:
		return Record{Action: action, Err: fmt.Errorf("apply: rmdir %s: %w", action.Path, err)}
	}
}

// isNotEmpty reports whether err is the platform's "directory not empty"
// error, as returned by os.Remove on a non-empty directory.
func isNotEmpty(err error) bool {
	return errors.Is(err, syscall.ENOTEMPTY)
}
