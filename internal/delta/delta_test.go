package delta

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arnecode/dropsync/internal/model"
)

func entry(path string, mtime float64, size int64) model.Entry {
	return model.Entry{RelativePath: path, Mtime: mtime, Size: size}
}

func TestComputeModifiedOnNewPath(t *testing.T) {
	current := model.NewIndex()
	current.Set(entry("a.txt", 100, 5))

	d := Compute(current, model.NewIndex())

	_, ok := d.Modified.Get("a.txt")
	assert.True(t, ok)
	assert.Empty(t, d.Removed)
}

func TestComputeModifiedOnNewerMtime(t *testing.T) {
	last := model.NewIndex()
	last.Set(entry("a.txt", 100, 5))

	current := model.NewIndex()
	current.Set(entry("a.txt", 200, 5))

	d := Compute(current, last)

	_, ok := d.Modified.Get("a.txt")
	assert.True(t, ok, "strictly newer mtime must be classified as modified")
}

func TestComputeUnchangedMtimeNeverModified(t *testing.T) {
	last := model.NewIndex()
	last.Set(entry("a.txt", 100, 5))

	current := model.NewIndex()
	current.Set(entry("a.txt", 100, 5))

	d := Compute(current, last)

	assert.Empty(t, d.Modified, "unchanged mtime must never enter modified, even with strict less-than")
	assert.Empty(t, d.Removed)
}

func TestComputeOlderMtimeNeverModified(t *testing.T) {
	last := model.NewIndex()
	last.Set(entry("a.txt", 200, 5))

	current := model.NewIndex()
	current.Set(entry("a.txt", 100, 5))

	d := Compute(current, last)

	assert.Empty(t, d.Modified, "an mtime that regressed must not be classified as modified")
}

func TestComputeRemoved(t *testing.T) {
	last := model.NewIndex()
	last.Set(entry("gone.txt", 100, 5))

	d := Compute(model.NewIndex(), last)

	removed, ok := d.Removed.Get("gone.txt")
	assert.True(t, ok)
	assert.Equal(t, "gone.txt", removed.RelativePath)
}

func TestComputeEmptyBothSides(t *testing.T) {
	d := Compute(model.NewIndex(), model.NewIndex())
	assert.True(t, d.IsEmpty())
}
