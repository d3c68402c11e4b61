// Package localindex implements the Local Indexer (sync-algorithm.md §4.2):
// walking local_root into a fresh model.Index, reusing prior entries
// verbatim when their (mtime, size) are unchanged so unchanged files skip
// rehashing. Grounded on the teacher's internal/sync/scanner.go walk,
// scaled down from its DB-backed item tracking to the spec's simpler
// stateless "build a fresh index from prior_index" contract.
package localindex

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/arnecode/dropsync/internal/model"
	"github.com/arnecode/dropsync/internal/pathutil"
)

// ErrNosyncGuard is returned when a .nosync guard file sits at the sync
// root, the way the teacher's scanner refuses to run against an
// unmounted or empty volume.
var ErrNosyncGuard = errors.New("localindex: .nosync guard file present at sync root")

const nosyncFileName = ".nosync"

// Walk builds a fresh local index rooted at localRoot, reusing entries
// from prior whose (mtime, size) match the live filesystem (§4.2,
// invariant 2: this is what lets an unchanged file skip rehashing).
// Symlinks and special files are not followed and are treated as absent;
// unreadable entries are logged and omitted, never fatal to the walk.
func Walk(_ context.Context, localRoot string, prior model.Index, logger *slog.Logger) (model.Index, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := checkNosyncGuard(localRoot); err != nil {
		return nil, err
	}

	idx := model.NewIndex()

	walkErr := filepath.WalkDir(localRoot, func(fsPath string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("localindex: unreadable path, omitting", slog.String("path", fsPath), slog.String("error", err.Error()))
			return nil
		}

		if fsPath == localRoot {
			return nil
		}

		rel, relErr := filepath.Rel(localRoot, fsPath)
		if relErr != nil {
			logger.Warn("localindex: cannot compute relative path, omitting", slog.String("path", fsPath), slog.String("error", relErr.Error()))
			return nil
		}

		relPath := pathutil.Clean(rel)

		if d.Type()&os.ModeSymlink != 0 {
			logger.Debug("localindex: skipping symlink", slog.String("path", relPath))
			return nil
		}

		if !d.Type().IsDir() && !d.Type().IsRegular() {
			logger.Debug("localindex: skipping special file", slog.String("path", relPath))
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			logger.Warn("localindex: cannot stat entry, omitting", slog.String("path", relPath), slog.String("error", statErr.Error()))
			return nil
		}

		idx.Set(buildEntry(relPath, info, prior))

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("localindex: walking %s: %w", localRoot, walkErr)
	}

	return idx, nil
}

// buildEntry reuses the prior entry verbatim when the cheap (mtime, size)
// check passes (§4.2); otherwise it constructs a fresh entry with a
// not-yet-computed content hash, to be filled lazily by HashProvider.
func buildEntry(relPath string, info fs.FileInfo, prior model.Index) model.Entry {
	isFolder := info.IsDir()
	size := int64(0)

	if !isFolder {
		size = info.Size()
	}

	mtime := model.RoundMtime(float64(info.ModTime().UnixNano()) / 1e9)

	if old, ok := prior.Get(relPath); ok && old.IsFolder == isFolder && old.Mtime == mtime && old.Size == size {
		return old
	}

	return model.Entry{
		RelativePath: relPath,
		IsFolder:     isFolder,
		Size:         size,
		Mtime:        mtime,
		ContentHash:  "",
	}
}

func checkNosyncGuard(localRoot string) error {
	guardPath := filepath.Join(localRoot, nosyncFileName)

	_, err := os.Stat(guardPath)
	if err == nil {
		return ErrNosyncGuard
	}

	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("localindex: checking %s: %w", nosyncFileName, err)
	}

	return nil
}
