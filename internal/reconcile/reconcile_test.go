package reconcile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnecode/dropsync/internal/model"
)

func file(path string, mtime float64, size int64, hash string) model.Entry {
	return model.Entry{RelativePath: path, Mtime: mtime, Size: size, ContentHash: hash}
}

func folder(path string) model.Entry {
	return model.Entry{RelativePath: path, IsFolder: true}
}

func noHash(string) (string, error) {
	return "", errors.New("should not be called")
}

func TestReconcileAddNoDst(t *testing.T) {
	modified := model.NewIndex()
	modified.Set(file("a.txt", 100, 5, "h1"))

	opposite := model.NewIndex()

	set := reconcileAdd(model.OpUploadAdd, model.OutcomeUpload, modified, opposite, true, noHash, nil)

	require.Len(t, set.Files, 1)
	assert.Equal(t, model.OutcomeUpload, set.Files[0].Outcome)

	staged, ok := opposite.Get("a.txt")
	require.True(t, ok, "the opposite index must gain the path optimistically")
	assert.Equal(t, "h1", staged.ContentHash)
}

func TestReconcileAddFolderOnFolderSkips(t *testing.T) {
	modified := model.NewIndex()
	modified.Set(folder("a"))

	opposite := model.NewIndex()
	opposite.Set(folder("a"))

	set := reconcileAdd(model.OpUploadAdd, model.OutcomeUpload, modified, opposite, true, noHash, nil)

	assert.Equal(t, 0, set.Total(), "folder-on-folder is idempotent, no action emitted")
}

func TestReconcileAddNewerSourceStages(t *testing.T) {
	modified := model.NewIndex()
	modified.Set(file("a.txt", 200, 9, "h2"))

	opposite := model.NewIndex()
	opposite.Set(file("a.txt", 100, 5, "h1"))

	set := reconcileAdd(model.OpUploadAdd, model.OutcomeUpload, modified, opposite, true, noHash, nil)

	require.Len(t, set.Files, 1)
	assert.Equal(t, model.OutcomeUpload, set.Files[0].Outcome)

	staged, _ := opposite.Get("a.txt")
	assert.Equal(t, "h2", staged.ContentHash, "opposite index must be overwritten with the newer source entry")
}

func TestReconcileAddDstNotOlderConflicts(t *testing.T) {
	modified := model.NewIndex()
	modified.Set(file("a.txt", 100, 5, "h1"))

	opposite := model.NewIndex()
	opposite.Set(file("a.txt", 200, 9, "h2"))

	set := reconcileAdd(model.OpUploadAdd, model.OutcomeUpload, modified, opposite, true, noHash, nil)

	require.Len(t, set.Files, 1)
	assert.Equal(t, model.OutcomeConflictSkip, set.Files[0].Outcome)
	assert.Equal(t, model.ReasonRemoteNewer, set.Files[0].Reason)

	staged, _ := opposite.Get("a.txt")
	assert.Equal(t, "h2", staged.ContentHash, "conflict-skip must never mutate the opposite index")
}

func TestReconcileAddDstNotOlderDownloadDirectionUsesLocalNewer(t *testing.T) {
	modified := model.NewIndex()
	modified.Set(file("a.txt", 100, 5, "h1")) // remote src

	opposite := model.NewIndex()
	opposite.Set(file("a.txt", 200, 9, "h2")) // local dst, newer

	set := reconcileAdd(model.OpDownloadAdd, model.OutcomeDownload, modified, opposite, false, noHash, nil)

	require.Len(t, set.Files, 1)
	assert.Equal(t, model.ReasonLocalNewer, set.Files[0].Reason)
}

func TestReconcileDelNoDstSkipsSilently(t *testing.T) {
	removed := model.NewIndex()
	removed.Set(file("gone.txt", 100, 5, "h1"))

	opposite := model.NewIndex()

	set := reconcileDel(model.OpUploadDel, model.OutcomeDeleteRemote, removed, opposite, true, noHash, nil)

	assert.Equal(t, 0, set.Total())
}

func TestReconcileDelContentEqualStages(t *testing.T) {
	removed := model.NewIndex()
	removed.Set(file("a.txt", 200, 5, "h1"))

	opposite := model.NewIndex()
	opposite.Set(file("a.txt", 100, 5, "h1"))

	set := reconcileDel(model.OpUploadDel, model.OutcomeDeleteRemote, removed, opposite, true, noHash, nil)

	require.Len(t, set.Files, 1)
	assert.Equal(t, model.OutcomeDeleteRemote, set.Files[0].Outcome)

	_, ok := opposite.Get("a.txt")
	assert.False(t, ok, "opposite index must lose the path once the delete is staged")
}

func TestReconcileDelDivergedConflicts(t *testing.T) {
	removed := model.NewIndex()
	removed.Set(file("a.txt", 100, 5, "h1"))

	opposite := model.NewIndex()
	opposite.Set(file("a.txt", 300, 9, "h2")) // independently modified after the delete was observed

	set := reconcileDel(model.OpUploadDel, model.OutcomeDeleteRemote, removed, opposite, true, noHash, nil)

	require.Len(t, set.Files, 1)
	assert.Equal(t, model.OutcomeConflictSkip, set.Files[0].Outcome)
	assert.Equal(t, model.ReasonUnexpectedTarget, set.Files[0].Reason)

	_, ok := opposite.Get("a.txt")
	assert.True(t, ok, "a diverged delete must never remove the opposite entry")
}

func TestReconcileDelFolderOnFolderMatches(t *testing.T) {
	removed := model.NewIndex()
	removed.Set(folder("a"))

	opposite := model.NewIndex()
	opposite.Set(folder("a"))

	set := reconcileDel(model.OpUploadDel, model.OutcomeDeleteRemote, removed, opposite, true, noHash, nil)

	require.Len(t, set.Folders, 1)
	assert.Equal(t, model.OutcomeDeleteRemote, set.Folders[0].Outcome)
}

func TestReconcileLazyHashesLocalSideOnly(t *testing.T) {
	called := false
	provider := func(relPath string) (string, error) {
		called = true
		assert.Equal(t, "a.txt", relPath)

		return "computed", nil
	}

	modified := model.NewIndex()
	modified.Set(file("a.txt", 200, 5, "")) // local entry, hash not yet computed

	opposite := model.NewIndex()
	opposite.Set(file("a.txt", 100, 5, "computed")) // remote dst, same size, already hashed

	set := reconcileAdd(model.OpUploadAdd, model.OutcomeUpload, modified, opposite, true, provider, nil)

	assert.True(t, called, "a same-size comparison must fall back to lazily computing the local hash")
	require.Len(t, set.Files, 1)
	assert.Equal(t, model.OutcomeConflictSkip, set.Files[0].Outcome,
		"content turned out identical after hashing, but §4.5's table still treats a non-'newer source' match as the conflict-skip catch-all")
}

func TestPhasesRunsInFixedOrder(t *testing.T) {
	localDelta := model.NewDelta()
	localDelta.Modified.Set(file("new.txt", 100, 5, "h1"))

	remoteDelta := model.NewDelta()
	remoteDelta.Modified.Set(file("other.txt", 50, 5, "h2"))

	localIndex := model.NewIndex()
	remoteIndex := model.NewIndex()

	sets := Phases(localDelta, remoteDelta, localIndex, remoteIndex, noHash, nil)

	require.Len(t, sets, 4)
	assert.Equal(t, model.OpUploadAdd, sets[0].Op)
	assert.Equal(t, model.OpUploadDel, sets[1].Op)
	assert.Equal(t, model.OpDownloadAdd, sets[2].Op)
	assert.Equal(t, model.OpDownloadDel, sets[3].Op)

	require.Len(t, sets[0].Files, 1, "phase 1 uploads new.txt and claims it in remoteIndex")

	_, staged := remoteIndex.Get("new.txt")
	assert.True(t, staged, "the opposite index gains the optimistically-staged path")

	require.Len(t, sets[2].Files, 1, "phase 3 downloads other.txt and claims it in localIndex")

	_, staged = localIndex.Get("other.txt")
	assert.True(t, staged)
}

func TestPhasesUploadDelSeesUploadAddClaim(t *testing.T) {
	// Whitebox: construct an overlapping Modified/Removed pair on the same
	// path to exercise phase 2 observing phase 1's optimistic mutation of
	// the shared remote index, per §5's "phase N observes phase < N" rule.
	localDelta := model.NewDelta()
	localDelta.Modified.Set(file("x.txt", 200, 5, "h1"))
	localDelta.Removed.Set(file("x.txt", 100, 5, "h1"))

	remoteDelta := model.NewDelta()

	localIndex := model.NewIndex()
	remoteIndex := model.NewIndex() // empty: phase 1 must create the dst phase 2 then matches against

	sets := Phases(localDelta, remoteDelta, localIndex, remoteIndex, noHash, nil)

	require.Len(t, sets[0].Files, 1, "phase 1 stages the upload and claims x.txt in remoteIndex")
	require.Len(t, sets[1].Files, 1, "phase 2 must see phase 1's claim as the dst entry")
	assert.Equal(t, model.OutcomeConflictSkip, sets[1].Files[0].Outcome,
		"phase 1's fresher claim (mtime 200) than the removed src (mtime 100) must block the delete, protecting the just-staged upload")

	_, stillPresent := remoteIndex.Get("x.txt")
	assert.True(t, stillPresent, "a blocked delete must not remove phase 1's claim from the opposite index")
}
