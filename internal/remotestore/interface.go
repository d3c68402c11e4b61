// Package remotestore defines the RemoteStore interface (sync-algorithm
// §6): the boundary between the reconciliation core and the Dropbox-style
// object store. The core never depends on a concrete transport — only on
// this interface — per spec.md §1's scoping of OAuth and HTTP/RPC shape
// as external collaborators.
package remotestore

import (
	"context"
	"io"
	"time"
)

// EntryKind distinguishes files from folders in a remote listing.
type EntryKind int

// Entry kinds. Tombstones and other kinds are not represented — the
// remote indexer ignores anything that isn't a file or folder (§4.3).
const (
	KindFile EntryKind = iota
	KindFolder
)

// Entry is a single remote metadata record, as returned by List/Stat/
// Upload/session finish calls (§6).
type Entry struct {
	PathDisplay    string
	Kind           EntryKind
	Size           int64
	ServerModified time.Time // epoch-seconds precision; sub-second truncated by the transport
	ContentHash    string    // files only
}

// ListResult is one page of a listing call (§6).
type ListResult struct {
	Entries []Entry
	HasMore bool
	Cursor  string
}

// CommitInfo carries the destination path and overwrite mode for the
// final call of a chunked upload session (§4.6 "Upload").
type CommitInfo struct {
	Path      string
	Overwrite bool
}

// Cursor tracks how many bytes of a chunked upload session have been
// sent so far (§4.6: "cursor.offset = bytes_sent_so_far").
type Cursor struct {
	SessionID string
	Offset    int64
}

// BatchCheckResult reports whether an async delete-batch job has finished.
type BatchCheckResult struct {
	Complete bool
}

// RemoteStore is the external collaborator the core drives (§6). Every
// method is a blocking RPC call; the concrete implementation owns retry,
// backoff, and timeout policy (§5 "Timeouts", §7 "TransientNetwork").
type RemoteStore interface {
	// List begins (or, if recursive listing needs follow-up pages,
	// continues via ListContinue) a listing rooted at root.
	List(ctx context.Context, root string, recursive bool) (*ListResult, error)
	ListContinue(ctx context.Context, cursor string) (*ListResult, error)

	// Stat probes a single path. Returns (nil, nil) for "not found" — a
	// normal signal per §7, never an error.
	Stat(ctx context.Context, path string) (*Entry, error)

	// Upload performs a single-request upload for files under the
	// simple-upload threshold (§4.6).
	Upload(ctx context.Context, path string, r io.Reader, size int64, overwrite bool) (*Entry, error)

	// Chunked upload session, used for files at or above the chunking
	// threshold (§4.6).
	SessionStart(ctx context.Context, firstChunk io.Reader, size int64) (sessionID string, err error)
	SessionAppend(ctx context.Context, cur Cursor, chunk io.Reader, size int64) error
	SessionFinish(ctx context.Context, cur Cursor, lastChunk io.Reader, size int64, commit CommitInfo) (*Entry, error)

	// DownloadTo streams the remote file at path into w.
	DownloadTo(ctx context.Context, path string, w io.Writer) error

	CreateFolder(ctx context.Context, path string) error

	// DeleteBatch queues an asynchronous batch delete (§4.6
	// "Delete-Remote"), returning an opaque job ID to poll.
	DeleteBatch(ctx context.Context, paths []string) (jobID string, err error)
	DeleteBatchCheck(ctx context.Context, jobID string) (*BatchCheckResult, error)
}
