package apply

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnecode/dropsync/internal/hashutil"
	"github.com/arnecode/dropsync/internal/model"
	"github.com/arnecode/dropsync/internal/remotestore/fakestore"
)

func writeLocal(t *testing.T, root, rel string, content []byte) {
	t.Helper()

	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), dirPermissions))
	require.NoError(t, os.WriteFile(full, content, 0o644))
}

func fileAction(path string, content []byte) model.Action {
	hash, _ := hashutil.ComputeReader(bytes.NewReader(content))

	return model.Action{
		Outcome: model.OutcomeUpload,
		Path:    path,
		Entry:   model.Entry{RelativePath: path, Size: int64(len(content)), ContentHash: hash},
	}
}

func folderAction(path string, outcome model.Outcome) model.Action {
	return model.Action{
		Outcome: outcome,
		Path:    path,
		Entry:   model.Entry{RelativePath: path, IsFolder: true},
	}
}

func TestUploadSmallFileUsesSimpleUpload(t *testing.T) {
	root := t.TempDir()
	content := []byte("hello world")
	writeLocal(t, root, "a.txt", content)

	store := fakestore.New()
	applier := New(store, root, "/apps/dropsync", nil)

	set := model.NewActionSet(model.OpUploadAdd)
	set.Add(fileAction("a.txt", content))

	records, err := applier.Upload(context.Background(), set)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Applied)

	entry, err := store.Stat(context.Background(), "/apps/dropsync/a.txt")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(len(content)), entry.Size)
}

func TestUploadLargeFileUsesChunkedSession(t *testing.T) {
	root := t.TempDir()
	content := bytes.Repeat([]byte("x"), 20*1024*1024) // 20 MiB: start(8) + append(8) + finish(4)
	writeLocal(t, root, "big.bin", content)

	store := fakestore.New()
	applier := New(store, root, "/apps/dropsync", nil)

	set := model.NewActionSet(model.OpUploadAdd)
	set.Add(fileAction("big.bin", content))

	records, err := applier.Upload(context.Background(), set)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Applied)

	entry, err := store.Stat(context.Background(), "/apps/dropsync/big.bin")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(len(content)), entry.Size)

	wantHash, _ := hashutil.ComputeReader(bytes.NewReader(content))
	assert.Equal(t, wantHash, entry.ContentHash)
}

func TestUploadRecordsConfirmedContentHash(t *testing.T) {
	root := t.TempDir()
	content := []byte("hello world")
	writeLocal(t, root, "a.txt", content)

	store := fakestore.New()
	applier := New(store, root, "/apps/dropsync", nil)

	set := model.NewActionSet(model.OpUploadAdd)
	set.Add(fileAction("a.txt", content))

	records, err := applier.Upload(context.Background(), set)
	require.NoError(t, err)
	require.Len(t, records, 1)

	wantHash, _ := hashutil.ComputeReader(bytes.NewReader(content))
	assert.Equal(t, wantHash, records[0].ResultHash)
}

func TestUploadCreatesFoldersBeforeFiles(t *testing.T) {
	root := t.TempDir()
	content := []byte("data")
	writeLocal(t, root, "a/b/c.txt", content)

	store := fakestore.New()
	applier := New(store, root, "/apps/dropsync", nil)

	set := model.NewActionSet(model.OpUploadAdd)
	set.Add(folderAction("a/b", model.OutcomeUpload))
	set.Add(folderAction("a", model.OutcomeUpload))
	set.Add(fileAction("a/b/c.txt", content))

	records, err := applier.Upload(context.Background(), set)
	require.NoError(t, err)
	require.Len(t, records, 3)

	require.Len(t, records[0:2], 2)
	assert.Equal(t, "a", records[0].Action.Path, "shallowest folder is created first")
	assert.Equal(t, "a/b", records[1].Action.Path)

	entry, err := store.Stat(context.Background(), "/apps/dropsync/a/b/c.txt")
	require.NoError(t, err)
	require.NotNil(t, entry)
}

func TestUploadRecordsFailureWithoutAbortingBatch(t *testing.T) {
	root := t.TempDir()
	writeLocal(t, root, "present.txt", []byte("ok"))
	// "missing.txt" is intentionally never written to disk.

	store := fakestore.New()
	applier := New(store, root, "/apps/dropsync", nil)

	set := model.NewActionSet(model.OpUploadAdd)
	set.Add(fileAction("missing.txt", nil))
	set.Add(fileAction("present.txt", []byte("ok")))

	records, err := applier.Upload(context.Background(), set)
	require.NoError(t, err)
	require.Len(t, records, 2)

	var sawFailure, sawSuccess bool

	for _, r := range records {
		if r.Action.Path == "missing.txt" {
			sawFailure = r.Failed()
		}

		if r.Action.Path == "present.txt" {
			sawSuccess = r.Applied
		}
	}

	assert.True(t, sawFailure, "the missing local file must be recorded as a failure")
	assert.True(t, sawSuccess, "a sibling failure must not prevent the other upload from applying")
}
