// Package apply implements the Applier (sync-algorithm.md §4.6): the five
// primitives — Upload, Download, Delete-Remote, Delete-Local, and the
// metadata probe — that turn a reconciler-staged model.ActionSet into real
// filesystem and RemoteStore I/O. Grounded on the teacher's
// internal/sync/executor.go: phased dispatch (folders before files, or
// files before folders depending on direction), per-action handlers that
// record rather than abort on failure, and a chunked-upload helper that
// streams io.LimitReader slices of the file and takes the content hash
// from the entry the remote confirms.
package apply

import (
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/arnecode/dropsync/internal/model"
	"github.com/arnecode/dropsync/internal/pathutil"
	"github.com/arnecode/dropsync/internal/remotestore"
)

const (
	// chunkSize is the fixed chunk size for a chunked upload session (§4.6).
	chunkSize = 8 * 1024 * 1024

	// simpleUploadMax is the largest file size eligible for a single-request
	// upload; files at or above this size use a chunked session (§4.6).
	simpleUploadMax = 8 * 1024 * 1024

	// deleteBatchSize is the maximum number of paths per DeleteBatch call (§4.6).
	deleteBatchSize = 1000

	// deleteBatchPollInterval is how often DeleteBatchCheck is polled (§4.6: "1 Hz").
	deleteBatchPollInterval = time.Second

	// dirPermissions is the mode for locally-created sync directories.
	dirPermissions = 0o755
)

// Applier executes staged action sets against a RemoteStore and the local
// filesystem. A single Applier instance is scoped to one local/remote root
// pair, matching one scheduler pass (§4.7).
type Applier struct {
	store       remotestore.RemoteStore
	localRoot   string
	remoteRoot  string
	concurrency int
	logger      *slog.Logger
}

// defaultConcurrency bounds how many file operations run in flight per
// phase — high enough to overlap RPC latency, low enough that a single
// pass never saturates the host's file descriptors or the remote's
// rate limits.
const defaultConcurrency = 4

// New returns an Applier rooted at localRoot (a filesystem path) and
// remoteRoot (RemoteStore wire form, per pathutil.ToRemotePath).
func New(store remotestore.RemoteStore, localRoot, remoteRoot string, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}

	return &Applier{
		store:       store,
		localRoot:   localRoot,
		remoteRoot:  remoteRoot,
		concurrency: defaultConcurrency,
		logger:      logger,
	}
}

// WithConcurrency overrides the default per-phase file concurrency. n <= 0
// is treated as 1 (fully sequential).
func (a *Applier) WithConcurrency(n int) *Applier {
	if n <= 0 {
		n = 1
	}

	a.concurrency = n

	return a
}

// Record is the outcome of attempting to apply one staged model.Action.
// Failed RPC/filesystem errors are recorded here rather than aborting the
// batch (§4.6 "Failure semantics": a sync pass is never aborted by a
// single file's failure).
type Record struct {
	Action model.Action

	// Applied is true once the action's effect landed (upload succeeded,
	// file removed, etc). False with a nil Err means the action was a
	// conflict (see SkippedReason). Folder deletes elided because an
	// ancestor folder delete already covers them produce no Record.
	Applied bool

	// SkippedReason is set when Applied is false and Err is nil: the
	// action was skipped as a conflict, not failed.
	SkippedReason model.ConflictReason

	// Err is set when the underlying RPC or filesystem call failed.
	Err error

	// ResultHash carries back the content hash the RemoteStore confirmed
	// for a successful upload. The reconciler stages a freshly-discovered
	// local file with a blank ContentHash (hashing it is deferred to
	// whichever side actually needs it), so this is the only place that
	// hash becomes known; the scheduler writes it back into the adopted
	// local snapshot so a later delete of that same file doesn't require
	// re-reading bytes that may no longer be there. Empty for every
	// primitive other than Upload.
	ResultHash string
}

// Failed reports whether the record represents a hard failure (as opposed
// to a clean skip or a successful apply).
func (r Record) Failed() bool {
	return r.Err != nil
}

// conflictSkipRecord turns an already-classified conflict-skip action
// into its terminal Record without touching the filesystem or RemoteStore
// — the reconciler interleaves OutcomeConflictSkip actions into the same
// ActionSet as the phase's staged work (sync-algorithm.md §4.5), so every
// Applier primitive must recognize and pass these through untouched.
func conflictSkipRecord(action model.Action) Record {
	return Record{Action: action, SkippedReason: action.Reason}
}

// remotePath renders a canonical relative path as this Applier's RemoteStore
// wire-form path.
func (a *Applier) remotePath(relPath string) string {
	return pathutil.ToRemotePath(a.remoteRoot, relPath)
}

// localFSPath joins the Applier's local root with a canonical relative
// path to produce a host filesystem path.
func (a *Applier) localFSPath(relPath string) string {
	return filepath.Join(a.localRoot, filepath.FromSlash(relPath))
}

// entryModTime converts an Entry's rounded Unix-epoch-seconds Mtime into a
// time.Time suitable for os.Chtimes.
func entryModTime(e model.Entry) time.Time {
	whole := int64(e.Mtime)
	frac := e.Mtime - float64(whole)

	return time.Unix(whole, int64(frac*float64(time.Second))).UTC()
}

// sortAscendingDepth orders folder actions shallowest-first (parents
// before children), for folder creation (§4.6 "Upload"/"Download") and for
// Delete-Remote's ancestor-elision pass. Ties break lexicographically for
// deterministic ordering.
func sortAscendingDepth(actions []model.Action) []model.Action {
	out := append([]model.Action(nil), actions...)
	sortActionsByDepth(out, true)

	return out
}

// sortDescendingDepth orders folder actions deepest-first (children before
// parents), for Delete-Local's rmdir pass.
func sortDescendingDepth(actions []model.Action) []model.Action {
	out := append([]model.Action(nil), actions...)
	sortActionsByDepth(out, false)

	return out
}

func sortActionsByDepth(actions []model.Action, ascending bool) {
	sort.SliceStable(actions, func(i, j int) bool {
		di, dj := pathutil.Depth(actions[i].Path), pathutil.Depth(actions[j].Path)
		if di != dj {
			if ascending {
				return di < dj
			}

			return di > dj
		}

		return actions[i].Path < actions[j].Path
	})
}
