// Package model defines the value types shared by every sync component:
// Entry, Index, Snapshot, and Delta (data-model.md §3), plus the Action
// vocabulary the reconciler hands to the applier (sync-algorithm.md §5.5,
// "Dynamic dispatch on action" design note).
package model

// Entry represents a node (file or folder) at a specific side, at a
// specific point in time. Entries are immutable once placed in an Index
// (§3 "Lifecycles").
type Entry struct {
	// RelativePath is the canonical POSIX path relative to the sync root
	// (internal/pathutil.Clean form): no leading slash, forward slashes.
	RelativePath string

	IsFolder bool

	// Size is non-negative bytes; always 0 for folders.
	Size int64

	// Mtime is the modification time as seconds since the Unix epoch,
	// rounded to 0.1s for stability (§3).
	Mtime float64

	// ContentHash is present only for files; the zero value ("") means
	// "not yet computed" for local entries (computed lazily) or "not
	// applicable" for folders.
	ContentHash string
}

// IsFile reports whether the entry represents a file (not a folder).
func (e Entry) IsFile() bool {
	return !e.IsFolder
}

// IndexEqual reports whether two entries are index-equal: same path,
// mtime, and size. Hash is deliberately excluded — this is the cheap
// check that lets an unchanged file skip rehashing (§3, invariant 2).
func IndexEqual(a, b Entry) bool {
	return a.RelativePath == b.RelativePath && a.Mtime == b.Mtime && a.Size == b.Size
}

// ContentEqual reports whether two file entries are content-equal: their
// content hashes match. Both hashes must be non-empty; an entry with an
// unknown hash is never content-equal to anything (the caller must
// compute the hash first).
func ContentEqual(a, b Entry) bool {
	return a.ContentHash != "" && b.ContentHash != "" && a.ContentHash == b.ContentHash
}

// RoundMtime rounds a Unix-epoch-seconds float to 0.1s precision, per the
// Entry.Mtime contract in §3.
func RoundMtime(seconds float64) float64 {
	const tenth = 10.0

	return float64(int64(seconds*tenth+0.5)) / tenth
}
