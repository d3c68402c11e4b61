package apply

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/arnecode/dropsync/internal/model"
	"github.com/arnecode/dropsync/internal/remotestore"
)

// Upload applies an OutcomeUpload ActionSet (§4.6 "Upload"): folders are
// created first, shortest path first, then files are uploaded concurrently.
func (a *Applier) Upload(ctx context.Context, set model.ActionSet) ([]Record, error) {
	records := make([]Record, 0, set.Total())

	for _, action := range sortAscendingDepth(set.Folders) {
		records = append(records, a.createRemoteFolder(ctx, action))
	}

	fileRecords, err := a.runConcurrent(ctx, set.Files, a.uploadFile)
	records = append(records, fileRecords...)

	return records, err
}

func (a *Applier) createRemoteFolder(ctx context.Context, action model.Action) Record {
	if action.Outcome == model.OutcomeConflictSkip {
		return conflictSkipRecord(action)
	}

	path := a.remotePath(action.Path)

	if err := a.store.CreateFolder(ctx, path); err != nil {
		a.logger.Warn("apply: remote folder create failed", slog.String("path", action.Path), slog.String("error", err.Error()))
		return Record{Action: action, Err: fmt.Errorf("apply: create remote folder %s: %w", action.Path, err)}
	}

	return Record{Action: action, Applied: true}
}

func (a *Applier) uploadFile(ctx context.Context, action model.Action) Record {
	if action.Outcome == model.OutcomeConflictSkip {
		return conflictSkipRecord(action)
	}

	localPath := a.localFSPath(action.Path)

	f, err := os.Open(localPath)
	if err != nil {
		return Record{Action: action, Err: fmt.Errorf("apply: open %s for upload: %w", action.Path, err)}
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return Record{Action: action, Err: fmt.Errorf("apply: stat %s for upload: %w", action.Path, err)}
	}

	size := stat.Size()
	remotePath := a.remotePath(action.Path)

	a.logger.Info("apply: upload", slog.String("path", action.Path), slog.Int64("size", size))

	var (
		entry     *remotestore.Entry
		uploadErr error
	)

	if size < simpleUploadMax {
		entry, uploadErr = a.store.Upload(ctx, remotePath, f, size, true)
	} else {
		entry, uploadErr = a.uploadChunked(ctx, remotePath, f, size)
	}

	if uploadErr != nil {
		return Record{Action: action, Err: fmt.Errorf("apply: upload %s: %w", action.Path, uploadErr)}
	}

	rec := Record{Action: action, Applied: true}
	if entry != nil {
		rec.ResultHash = entry.ContentHash
	}

	return rec
}

// uploadChunked drives the session_start/session_append/session_finish
// sequence of §4.6 in fixed chunkSize increments, sending the final
// (possibly short) chunk through SessionFinish and returning the Entry that
// call confirms (carrying the content hash the remote computed).
func (a *Applier) uploadChunked(ctx context.Context, remotePath string, f *os.File, size int64) (*remotestore.Entry, error) {
	firstLen := int64(chunkSize)
	if size < firstLen {
		firstLen = size
	}

	sessionID, err := a.store.SessionStart(ctx, io.LimitReader(f, firstLen), firstLen)
	if err != nil {
		return nil, fmt.Errorf("session_start: %w", err)
	}

	offset := firstLen

	if offset >= size {
		// The whole file fit in the first chunk; finish with an empty tail.
		cur := remotestore.Cursor{SessionID: sessionID, Offset: offset}
		commit := remotestore.CommitInfo{Path: remotePath, Overwrite: true}

		entry, err := a.store.SessionFinish(ctx, cur, io.LimitReader(f, 0), 0, commit)
		if err != nil {
			return nil, fmt.Errorf("session_finish at offset %d: %w", offset, err)
		}

		return entry, nil
	}

	for offset < size {
		remaining := size - offset
		if remaining <= chunkSize {
			cur := remotestore.Cursor{SessionID: sessionID, Offset: offset}
			commit := remotestore.CommitInfo{Path: remotePath, Overwrite: true}

			entry, err := a.store.SessionFinish(ctx, cur, io.LimitReader(f, remaining), remaining, commit)
			if err != nil {
				return nil, fmt.Errorf("session_finish at offset %d: %w", offset, err)
			}

			return entry, nil
		}

		cur := remotestore.Cursor{SessionID: sessionID, Offset: offset}
		if err := a.store.SessionAppend(ctx, cur, io.LimitReader(f, chunkSize), chunkSize); err != nil {
			return nil, fmt.Errorf("session_append at offset %d: %w", offset, err)
		}

		offset += chunkSize
	}

	return nil, fmt.Errorf("upload session for %s completed without a final chunk", remotePath)
}

// runConcurrent fans file-level actions out across a.concurrency workers,
// collecting one Record per action regardless of success or failure. Only
// a canceled context aborts the call early.
func (a *Applier) runConcurrent(
	ctx context.Context, actions []model.Action, handle func(context.Context, model.Action) Record,
) ([]Record, error) {
	records := make([]Record, len(actions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, action := range actions {
		i, action := i, action

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			records[i] = handle(gctx, action)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return records, err
	}

	return records, nil
}

