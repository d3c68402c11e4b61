// Package fakestore is an in-memory remotestore.RemoteStore used by tests,
// grounded on the teacher's testutil package (in-process fakes standing
// in for the real Graph API/filesystem so engine-level tests don't need
// network or disk).
package fakestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arnecode/dropsync/internal/hashutil"
	"github.com/arnecode/dropsync/internal/remotestore"
)

// file is the server-side record for a single path.
type file struct {
	entry   remotestore.Entry
	content []byte
}

// pendingSession tracks an in-flight chunked upload.
type pendingSession struct {
	path string
	buf  bytes.Buffer
}

// pendingJob tracks an in-flight (instantly-complete) delete-batch job.
type pendingJob struct {
	done bool
}

// Store is a single-threaded, mutex-guarded fake remote object store.
// ListPageSize controls pagination so tests can exercise List/ListContinue
// without needing thousands of fixture entries.
type Store struct {
	mu           sync.Mutex
	files        map[string]*file
	folders      map[string]bool
	sessions     map[string]*pendingSession
	jobs         map[string]*pendingJob
	ListPageSize int
}

// New returns an empty Store. The root folder always implicitly exists.
func New() *Store {
	return &Store{
		files:        make(map[string]*file),
		folders:      make(map[string]bool),
		sessions:     make(map[string]*pendingSession),
		jobs:         make(map[string]*pendingJob),
		ListPageSize: 1000,
	}
}

// Seed directly installs a file with the given content and server
// modification time, bypassing Upload — used to set up test fixtures.
func (s *Store) Seed(path string, content []byte, mtime time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, _ := hashutil.ComputeReader(bytes.NewReader(content))
	s.files[path] = &file{
		content: content,
		entry: remotestore.Entry{
			PathDisplay:    path,
			Kind:           remotestore.KindFile,
			Size:           int64(len(content)),
			ServerModified: mtime,
			ContentHash:    hash,
		},
	}
}

// SeedFolder directly installs a folder.
func (s *Store) SeedFolder(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.folders[path] = true
}

func (s *Store) List(_ context.Context, root string, recursive bool) (*remotestore.ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.collect(root, recursive)

	return s.paginate(all, 0, root, recursive), nil
}

func (s *Store) ListContinue(_ context.Context, cursor string) (*remotestore.ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// cursor:<offset>:<recursive>:<root>; root goes last since it may be empty.
	parts := strings.SplitN(strings.TrimPrefix(cursor, "cursor:"), ":", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("fakestore: invalid cursor %q", cursor)
	}

	offset, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("fakestore: invalid cursor %q: %w", cursor, err)
	}

	recursive, err := strconv.ParseBool(parts[1])
	if err != nil {
		return nil, fmt.Errorf("fakestore: invalid cursor %q: %w", cursor, err)
	}

	root := parts[2]
	all := s.collect(root, recursive)

	return s.paginate(all, offset, root, recursive), nil
}

func (s *Store) collect(root string, recursive bool) []remotestore.Entry {
	var all []remotestore.Entry

	for p, f := range s.files {
		if withinScope(root, p, recursive) {
			all = append(all, f.entry)
		}
	}

	for p := range s.folders {
		if p != root && withinScope(root, p, recursive) {
			all = append(all, remotestore.Entry{PathDisplay: p, Kind: remotestore.KindFolder})
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].PathDisplay < all[j].PathDisplay })

	return all
}

func withinScope(root, path string, recursive bool) bool {
	if root != "" && path != root && !hasPrefix(path, root+"/") {
		return false
	}

	if !recursive && root != "" {
		rest := path[len(root):]
		if len(rest) > 0 && rest[0] == '/' {
			rest = rest[1:]
		}

		return !bytes.Contains([]byte(rest), []byte("/"))
	}

	return true
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func (s *Store) paginate(all []remotestore.Entry, offset int, root string, recursive bool) *remotestore.ListResult {
	if offset >= len(all) {
		return &remotestore.ListResult{}
	}

	end := offset + s.ListPageSize
	if end > len(all) {
		end = len(all)
	}

	res := &remotestore.ListResult{Entries: all[offset:end]}

	if end < len(all) {
		res.HasMore = true
		res.Cursor = fmt.Sprintf("cursor:%d:%t:%s", end, recursive, root)
	}

	return res
}

func (s *Store) Stat(_ context.Context, path string) (*remotestore.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.files[path]; ok {
		e := f.entry
		return &e, nil
	}

	if s.folders[path] {
		return &remotestore.Entry{PathDisplay: path, Kind: remotestore.KindFolder}, nil
	}

	return nil, nil //nolint:nilnil // not-found is a normal signal (§7)
}

func (s *Store) Upload(_ context.Context, path string, r io.Reader, size int64, _ bool) (*remotestore.Entry, error) {
	content, err := io.ReadAll(io.LimitReader(r, size))
	if err != nil {
		return nil, fmt.Errorf("fakestore: reading upload body: %w", err)
	}

	hash, _ := hashutil.ComputeReader(bytes.NewReader(content))

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	f := &file{
		content: content,
		entry: remotestore.Entry{
			PathDisplay:    path,
			Kind:           remotestore.KindFile,
			Size:           int64(len(content)),
			ServerModified: now,
			ContentHash:    hash,
		},
	}
	s.files[path] = f

	e := f.entry

	return &e, nil
}

func (s *Store) SessionStart(_ context.Context, firstChunk io.Reader, size int64) (string, error) {
	buf, err := io.ReadAll(io.LimitReader(firstChunk, size))
	if err != nil {
		return "", fmt.Errorf("fakestore: reading first chunk: %w", err)
	}

	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	ps := &pendingSession{}
	ps.buf.Write(buf)
	s.sessions[id] = ps

	return id, nil
}

func (s *Store) SessionAppend(_ context.Context, cur remotestore.Cursor, chunk io.Reader, size int64) error {
	buf, err := io.ReadAll(io.LimitReader(chunk, size))
	if err != nil {
		return fmt.Errorf("fakestore: reading chunk: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.sessions[cur.SessionID]
	if !ok {
		return fmt.Errorf("fakestore: unknown session %s", cur.SessionID)
	}

	if int64(ps.buf.Len()) != cur.Offset {
		return fmt.Errorf("fakestore: offset mismatch for session %s: have %d want %d", cur.SessionID, ps.buf.Len(), cur.Offset)
	}

	ps.buf.Write(buf)

	return nil
}

func (s *Store) SessionFinish(
	_ context.Context, cur remotestore.Cursor, lastChunk io.Reader, size int64, commit remotestore.CommitInfo,
) (*remotestore.Entry, error) {
	buf, err := io.ReadAll(io.LimitReader(lastChunk, size))
	if err != nil {
		return nil, fmt.Errorf("fakestore: reading final chunk: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.sessions[cur.SessionID]
	if !ok {
		return nil, fmt.Errorf("fakestore: unknown session %s", cur.SessionID)
	}

	ps.buf.Write(buf)
	delete(s.sessions, cur.SessionID)

	content := ps.buf.Bytes()
	hash, _ := hashutil.ComputeReader(bytes.NewReader(content))
	now := time.Now().UTC()

	f := &file{
		content: content,
		entry: remotestore.Entry{
			PathDisplay:    commit.Path,
			Kind:           remotestore.KindFile,
			Size:           int64(len(content)),
			ServerModified: now,
			ContentHash:    hash,
		},
	}
	s.files[commit.Path] = f

	e := f.entry

	return &e, nil
}

func (s *Store) DownloadTo(_ context.Context, path string, w io.Writer) error {
	s.mu.Lock()
	f, ok := s.files[path]
	s.mu.Unlock()

	if !ok {
		return &remotestore.RemoteError{StatusCode: 404, Message: path, Err: remotestore.ErrNotFound}
	}

	if _, err := w.Write(f.content); err != nil {
		return fmt.Errorf("fakestore: writing downloaded content: %w", err)
	}

	return nil
}

func (s *Store) CreateFolder(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.folders[path] = true

	return nil
}

func (s *Store) DeleteBatch(_ context.Context, paths []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range paths {
		delete(s.files, p)
		delete(s.folders, p)
	}

	id := uuid.NewString()
	s.jobs[id] = &pendingJob{done: true} // fake transport completes synchronously

	return id, nil
}

func (s *Store) DeleteBatchCheck(_ context.Context, jobID string) (*remotestore.BatchCheckResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("fakestore: unknown job %s", jobID)
	}

	return &remotestore.BatchCheckResult{Complete: job.done}, nil
}

var _ remotestore.RemoteStore = (*Store)(nil)
