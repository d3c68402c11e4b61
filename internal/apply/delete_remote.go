package apply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arnecode/dropsync/internal/model"
	"github.com/arnecode/dropsync/internal/pathutil"
)

// DeleteRemote applies an OutcomeDeleteRemote ActionSet (§4.6
// "Delete-Remote"): files first, batched and polled to completion; then
// folders in ascending depth order, eliding any folder already covered by
// an ancestor queued earlier in the same pass.
func (a *Applier) DeleteRemote(ctx context.Context, set model.ActionSet) ([]Record, error) {
	files, skippedFiles := partitionConflictSkips(set.Files)

	records, err := a.batchDeleteRemote(ctx, files)
	records = append(records, skippedFiles...)

	if err != nil {
		return records, err
	}

	folders, skippedFolders := partitionConflictSkips(elideCoveredFolders(sortAscendingDepth(set.Folders)))

	folderRecords, err := a.batchDeleteRemote(ctx, folders)
	records = append(records, folderRecords...)
	records = append(records, skippedFolders...)

	return records, err
}

// partitionConflictSkips splits already-classified conflict-skip actions
// out of a slice staged for a remote delete batch, turning each into its
// terminal Record directly rather than sending it through DeleteBatch.
func partitionConflictSkips(actions []model.Action) (remaining []model.Action, skipped []Record) {
	remaining = make([]model.Action, 0, len(actions))

	for _, action := range actions {
		if action.Outcome == model.OutcomeConflictSkip {
			skipped = append(skipped, conflictSkipRecord(action))
			continue
		}

		remaining = append(remaining, action)
	}

	return remaining, skipped
}

// elideCoveredFolders drops any folder action whose path is within a
// folder already present earlier in the (ascending-depth-sorted) slice —
// its contents are covered by the ancestor's delete (§4.6).
func elideCoveredFolders(sorted []model.Action) []model.Action {
	var queued []string

	kept := make([]model.Action, 0, len(sorted))

	for _, action := range sorted {
		covered := false

		for _, q := range queued {
			if pathutil.IsWithin(q, action.Path) {
				covered = true
				break
			}
		}

		if covered {
			continue
		}

		queued = append(queued, action.Path)
		kept = append(kept, action)
	}

	return kept
}

// batchDeleteRemote splits actions into batches of at most deleteBatchSize,
// issues one DeleteBatch call per batch, and polls DeleteBatchCheck at
// deleteBatchPollInterval until every job reports complete.
func (a *Applier) batchDeleteRemote(ctx context.Context, actions []model.Action) ([]Record, error) {
	records := make([]Record, 0, len(actions))

	for start := 0; start < len(actions); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(actions) {
			end = len(actions)
		}

		batch := actions[start:end]
		batchRecords, err := a.deleteBatch(ctx, batch)
		records = append(records, batchRecords...)

		if err != nil {
			return records, err
		}
	}

	return records, nil
}

func (a *Applier) deleteBatch(ctx context.Context, batch []model.Action) ([]Record, error) {
	paths := make([]string, len(batch))
	for i, action := range batch {
		paths[i] = a.remotePath(action.Path)
	}

	jobID, err := a.store.DeleteBatch(ctx, paths)
	if err != nil {
		if isContextErr(err) {
			return failAll(batch, err), err
		}

		return failAll(batch, fmt.Errorf("apply: delete_batch: %w", err)), nil
	}

	if err := a.pollDeleteBatch(ctx, jobID); err != nil {
		if isContextErr(err) {
			return failAll(batch, err), err
		}

		return failAll(batch, err), nil
	}

	records := make([]Record, len(batch))
	for i, action := range batch {
		records[i] = Record{Action: action, Applied: true}
	}

	return records, nil
}

func (a *Applier) pollDeleteBatch(ctx context.Context, jobID string) error {
	ticker := time.NewTicker(deleteBatchPollInterval)
	defer ticker.Stop()

	for {
		result, err := a.store.DeleteBatchCheck(ctx, jobID)
		if err != nil {
			return fmt.Errorf("apply: delete_batch_check %s: %w", jobID, err)
		}

		if result.Complete {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// isContextErr reports whether err stems from context cancellation or
// deadline expiry, as opposed to an ordinary RemoteStore RPC failure — only
// the former should abort the remaining batches.
func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func failAll(batch []model.Action, err error) []Record {
	records := make([]Record, len(batch))
	for i, action := range batch {
		records[i] = Record{Action: action, Err: err}
	}

	return records
}
