package apply

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/arnecode/dropsync/internal/hashutil"
	"github.com/arnecode/dropsync/internal/model"
)

// Download applies an OutcomeDownload ActionSet (§4.6 "Download"): folders
// are created first (parents before children), then files are downloaded
// concurrently to a temporary target and renamed into place.
func (a *Applier) Download(ctx context.Context, set model.ActionSet) ([]Record, error) {
	records := make([]Record, 0, set.Total())

	for _, action := range sortAscendingDepth(set.Folders) {
		records = append(records, a.createLocalFolder(action))
	}

	fileRecords, err := a.runConcurrent(ctx, set.Files, a.downloadFile)
	records = append(records, fileRecords...)

	return records, err
}

func (a *Applier) createLocalFolder(action model.Action) Record {
	if action.Outcome == model.OutcomeConflictSkip {
		return conflictSkipRecord(action)
	}

	localPath := a.localFSPath(action.Path)

	if err := os.MkdirAll(localPath, dirPermissions); err != nil {
		a.logger.Warn("apply: local folder create failed", slog.String("path", action.Path), slog.String("error", err.Error()))
		return Record{Action: action, Err: fmt.Errorf("apply: mkdir %s: %w", action.Path, err)}
	}

	return Record{Action: action, Applied: true}
}

// downloadFile implements the skip-as-conflict guard of §4.6 ("if a local
// file already exists at the path with identical hash or with mtime ≥
// remote.mtime, skip as conflict") before streaming the remote content to
// a .partial temp file and renaming it into place.
func (a *Applier) downloadFile(ctx context.Context, action model.Action) Record {
	if action.Outcome == model.OutcomeConflictSkip {
		return conflictSkipRecord(action)
	}

	localPath := a.localFSPath(action.Path)

	if rec, skip := a.checkExistingLocal(action, localPath); skip {
		return rec
	}

	if err := os.MkdirAll(filepath.Dir(localPath), dirPermissions); err != nil {
		return Record{Action: action, Err: fmt.Errorf("apply: mkdir for download %s: %w", action.Path, err)}
	}

	a.logger.Info("apply: download", slog.String("path", action.Path), slog.Int64("size", action.Entry.Size))

	partialPath := localPath + ".partial"
	if err := a.downloadToPartial(ctx, action, partialPath); err != nil {
		_ = os.Remove(partialPath)
		return Record{Action: action, Err: err}
	}

	if err := os.Rename(partialPath, localPath); err != nil {
		_ = os.Remove(partialPath)
		return Record{Action: action, Err: fmt.Errorf("apply: rename partial %s: %w", action.Path, err)}
	}

	mtime := entryModTime(action.Entry)
	if err := os.Chtimes(localPath, time.Now(), mtime); err != nil {
		a.logger.Warn("apply: restoring mtime failed", slog.String("path", action.Path), slog.String("error", err.Error()))
	}

	return Record{Action: action, Applied: true}
}

// checkExistingLocal reports whether an already-present local file should
// block the download: identical content hash, or a local mtime that is not
// strictly older than the remote's.
func (a *Applier) checkExistingLocal(action model.Action, localPath string) (Record, bool) {
	info, err := os.Stat(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, false
		}

		return Record{Action: action, Err: fmt.Errorf("apply: stat existing %s: %w", action.Path, err)}, true
	}

	localMtime := model.RoundMtime(float64(info.ModTime().UnixNano()) / float64(time.Second))
	if localMtime >= action.Entry.Mtime {
		a.logger.Warn("apply: download conflict-skip: local not older than remote", slog.String("path", action.Path))
		return Record{Action: action, SkippedReason: model.ReasonLocalNewer}, true
	}

	localHash, err := hashutil.ComputeFile(localPath)
	if err == nil && localHash == action.Entry.ContentHash && action.Entry.ContentHash != "" {
		a.logger.Debug("apply: download conflict-skip: content already matches", slog.String("path", action.Path))
		return Record{Action: action, SkippedReason: model.ReasonLocalNewer}, true
	}

	return Record{}, false
}

// downloadToPartial streams the remote file into partialPath, verifying
// the Dropbox-style content hash before returning.
func (a *Applier) downloadToPartial(ctx context.Context, action model.Action, partialPath string) error {
	f, err := os.Create(partialPath)
	if err != nil {
		return fmt.Errorf("apply: create partial file %s: %w", partialPath, err)
	}
	defer f.Close()

	hasher := hashutil.NewHasher()
	mw := io.MultiWriter(f, hasher)

	remotePath := a.remotePath(action.Path)
	if err := a.store.DownloadTo(ctx, remotePath, mw); err != nil {
		return fmt.Errorf("apply: download %s: %w", action.Path, err)
	}

	if got := hasher.Sum(); action.Entry.ContentHash != "" && got != action.Entry.ContentHash {
		return fmt.Errorf("apply: content hash mismatch for %s: got %s want %s", action.Path, got, action.Entry.ContentHash)
	}

	return nil
}
