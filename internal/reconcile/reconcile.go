// Package reconcile implements the Reconciler (sync-algorithm.md §4.5): a
// pure classifier that turns a side's delta plus the opposite side's
// current index into a staged model.ActionSet, mutating the opposite
// index optimistically so later phases in the same pass observe the
// effects of earlier ones (§5, §9 "Cyclic mutual references"). Grounded
// on the teacher's internal/sync/reconciler.go shape (ordered phases,
// per-case action constructors, structured conflict reasons), collapsed
// from its 14-row/7-row three-state hash-baseline matrix to the spec's
// simpler two-index, four-phase decision table.
package reconcile

import (
	"fmt"
	"log/slog"

	"github.com/arnecode/dropsync/internal/model"
)

// LocalHash lazily computes the content hash of a local file addressed by
// its canonical relative path (localindex.HashProvider's shape) — the
// reconciler calls this only when a classification actually needs the
// local side's hash, never for folders or for entries that already carry
// one (remote entries always do, from the listing).
type LocalHash func(relPath string) (string, error)

// Phases are the four ordered reconciler invocations of §4.5.
func Phases(
	localDelta, remoteDelta model.Delta,
	localIndex, remoteIndex model.Index,
	localHash LocalHash,
	logger *slog.Logger,
) []model.ActionSet {
	if logger == nil {
		logger = slog.Default()
	}

	return []model.ActionSet{
		reconcileAdd(model.OpUploadAdd, model.OutcomeUpload, localDelta.Modified, remoteIndex, true, localHash, logger),
		reconcileDel(model.OpUploadDel, model.OutcomeDeleteRemote, localDelta.Removed, remoteIndex, true, localHash, logger),
		reconcileAdd(model.OpDownloadAdd, model.OutcomeDownload, remoteDelta.Modified, localIndex, false, localHash, logger),
		reconcileDel(model.OpDownloadDel, model.OutcomeDeleteLocal, remoteDelta.Removed, localIndex, false, localHash, logger),
	}
}

// reconcileAdd implements the ADD rows of §4.5's table for one phase.
func reconcileAdd(
	op model.Op, outcome model.Outcome,
	modified, opposite model.Index,
	srcIsLocal bool, localHash LocalHash, logger *slog.Logger,
) model.ActionSet {
	set := model.NewActionSet(op)

	for path, src := range modified {
		dst, hasDst := opposite.Get(path)

		switch {
		case !hasDst:
			// ADD, no dst: stage; the opposite side gains this path.
			opposite.Set(src)
			set.Add(model.Action{Outcome: outcome, Path: path, Entry: src})

		case src.IsFolder && dst.IsFolder:
			// ADD, folder on folder: idempotent, no action emitted.

		default:
			rSrc, rDst, err := resolvePair(src, dst, srcIsLocal, localHash)
			if err != nil {
				logger.Warn("reconcile: hashing failed, omitting path",
					slog.String("path", path), slog.String("op", op.String()), slog.String("error", err.Error()))

				continue
			}

			if dst.Mtime < src.Mtime && contentDiffers(rSrc, rDst) {
				// ADD, newer source: stage, overwrite opposite.
				opposite.Set(rSrc)
				set.Add(model.Action{Outcome: outcome, Path: path, Entry: rSrc})
			} else {
				// ADD, dst not older: conflict-skip.
				reason := model.ReasonRemoteNewer
				if !srcIsLocal {
					reason = model.ReasonLocalNewer
				}

				logger.Warn("reconcile: conflict-skip on add",
					slog.String("path", path), slog.String("reason", string(reason)))
				set.Add(model.Action{Outcome: model.OutcomeConflictSkip, Path: path, Entry: rSrc, Reason: reason})
			}
		}
	}

	return set
}

// reconcileDel implements the DEL rows of §4.5's table for one phase.
func reconcileDel(
	op model.Op, outcome model.Outcome,
	removed, opposite model.Index,
	srcIsLocal bool, localHash LocalHash, logger *slog.Logger,
) model.ActionSet {
	set := model.NewActionSet(op)

	for path, src := range removed {
		dst, hasDst := opposite.Get(path)
		if !hasDst {
			// DEL, no dst: path already absent, skip silently.
			continue
		}

		rSrc, rDst, err := resolvePair(src, dst, srcIsLocal, localHash)
		if err != nil {
			logger.Warn("reconcile: hashing failed, omitting path",
				slog.String("path", path), slog.String("op", op.String()), slog.String("error", err.Error()))

			continue
		}

		if matchesForDelete(rSrc, rDst) && rSrc.Mtime >= rDst.Mtime {
			// DEL, content-equal dst: stage, remove from opposite.
			opposite.Delete(path)
			set.Add(model.Action{Outcome: outcome, Path: path, Entry: rSrc, Expected: rDst})
		} else {
			// DEL, dst diverged: conflict-skip.
			logger.Warn("reconcile: conflict-skip on delete",
				slog.String("path", path), slog.String("reason", string(model.ReasonUnexpectedTarget)))
			set.Add(model.Action{
				Outcome: model.OutcomeConflictSkip, Path: path, Entry: rSrc, Reason: model.ReasonUnexpectedTarget,
			})
		}
	}

	return set
}

// resolvePair fills in the local-side entry's content hash if it is
// missing (folders and remote entries never need this). srcIsLocal picks
// which of src/dst is the local-side entry for this phase.
func resolvePair(src, dst model.Entry, srcIsLocal bool, localHash LocalHash) (model.Entry, model.Entry, error) {
	var err error

	if srcIsLocal {
		src, err = fillHash(src, localHash)
	} else {
		dst, err = fillHash(dst, localHash)
	}

	if err != nil {
		return src, dst, err
	}

	return src, dst, nil
}

func fillHash(e model.Entry, localHash LocalHash) (model.Entry, error) {
	if e.IsFolder || e.ContentHash != "" {
		return e, nil
	}

	if localHash == nil {
		return e, fmt.Errorf("reconcile: no hash provider configured for %s", e.RelativePath)
	}

	hash, err := localHash(e.RelativePath)
	if err != nil {
		return e, fmt.Errorf("reconcile: hashing %s: %w", e.RelativePath, err)
	}

	e.ContentHash = hash

	return e, nil
}

// contentDiffers reports whether two ADD-phase entries have different
// content: different kind, different size, or (for same-size files)
// different hash.
func contentDiffers(src, dst model.Entry) bool {
	if src.IsFolder != dst.IsFolder {
		return true
	}

	if src.IsFolder {
		return false
	}

	if src.Size != dst.Size {
		return true
	}

	return !model.ContentEqual(src, dst)
}

// matchesForDelete reports whether a DEL-phase source entry still
// matches the opposite side's current entry: two folders at the same
// path always match (folders carry no content); files must be
// content-equal.
func matchesForDelete(src, dst model.Entry) bool {
	if src.IsFolder && dst.IsFolder {
		return true
	}

	if src.IsFolder != dst.IsFolder {
		return false
	}

	return model.ContentEqual(src, dst)
}
