package httpstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/arnecode/dropsync/internal/remotestore"
)

// wireEntry is the JSON shape of a single remote metadata record, per
// sync-algorithm.md §6.
type wireEntry struct {
	PathDisplay    string `json:"path_display"`
	Tag            string `json:"\".tag\""` // "file" | "folder"
	Size           int64  `json:"size"`
	ServerModified int64  `json:"server_modified"` // epoch seconds
	ContentHash    string `json:"content_hash"`
}

func (w wireEntry) toEntry() remotestore.Entry {
	kind := remotestore.KindFile
	if w.Tag == "folder" {
		kind = remotestore.KindFolder
	}

	return remotestore.Entry{
		PathDisplay:    w.PathDisplay,
		Kind:           kind,
		Size:           w.Size,
		ServerModified: time.Unix(w.ServerModified, 0).UTC(),
		ContentHash:    w.ContentHash,
	}
}

type listRequest struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
}

type listContinueRequest struct {
	Cursor string `json:"cursor"`
}

type listResponse struct {
	Entries []wireEntry `json:"entries"`
	HasMore bool        `json:"has_more"`
	Cursor  string      `json:"cursor"`
}

func (r listResponse) toResult() *remotestore.ListResult {
	out := &remotestore.ListResult{HasMore: r.HasMore, Cursor: r.Cursor}
	for _, e := range r.Entries {
		// Tombstones and other non-file/folder kinds carry no ".tag" the
		// wire shape recognizes; skip anything unrecognized (§4.3).
		if e.Tag != "file" && e.Tag != "folder" {
			continue
		}

		out.Entries = append(out.Entries, e.toEntry())
	}

	return out
}

// List begins a (possibly recursive) listing at root.
func (c *Client) List(ctx context.Context, root string, recursive bool) (*remotestore.ListResult, error) {
	var resp listResponse
	if err := c.doJSON(ctx, "POST", "/files/list_folder", listRequest{Path: root, Recursive: recursive}, &resp); err != nil {
		return nil, fmt.Errorf("httpstore: list %s: %w", root, err)
	}

	return resp.toResult(), nil
}

// ListContinue fetches the next page of a listing started by List.
func (c *Client) ListContinue(ctx context.Context, cursor string) (*remotestore.ListResult, error) {
	var resp listResponse
	if err := c.doJSON(ctx, "POST", "/files/list_folder/continue", listContinueRequest{Cursor: cursor}, &resp); err != nil {
		return nil, fmt.Errorf("httpstore: list_continue: %w", err)
	}

	return resp.toResult(), nil
}

type statRequest struct {
	Path string `json:"path"`
}

// Stat probes a single path, returning (nil, nil) for "not found" (§7).
func (c *Client) Stat(ctx context.Context, path string) (*remotestore.Entry, error) {
	var resp wireEntry

	err := c.doJSON(ctx, "POST", "/files/get_metadata", statRequest{Path: path}, &resp)
	if err != nil {
		if errors.Is(err, remotestore.ErrNotFound) {
			return nil, nil //nolint:nilnil // "not found" is a normal signal, not an error (§7)
		}

		return nil, fmt.Errorf("httpstore: stat %s: %w", path, err)
	}

	entry := resp.toEntry()

	return &entry, nil
}

type uploadParams struct {
	Path      string `json:"path"`
	Overwrite bool   `json:"overwrite"`
}

// Upload performs a single-request upload (§4.6, files under the
// simple-upload threshold).
func (c *Client) Upload(ctx context.Context, path string, r io.Reader, size int64, overwrite bool) (*remotestore.Entry, error) {
	body, err := io.ReadAll(io.LimitReader(r, size))
	if err != nil {
		return nil, fmt.Errorf("httpstore: reading upload body for %s: %w", path, err)
	}

	var resp wireEntry
	if err := c.doJSONWithArgBody(ctx, "/files/upload", uploadParams{Path: path, Overwrite: overwrite}, body, &resp); err != nil {
		return nil, fmt.Errorf("httpstore: upload %s: %w", path, err)
	}

	entry := resp.toEntry()

	return &entry, nil
}

// SessionStart opens a chunked upload session with the first chunk
// (§4.6).
func (c *Client) SessionStart(ctx context.Context, firstChunk io.Reader, size int64) (string, error) {
	body, err := io.ReadAll(io.LimitReader(firstChunk, size))
	if err != nil {
		return "", fmt.Errorf("httpstore: reading first chunk: %w", err)
	}

	var resp struct {
		SessionID string `json:"session_id"`
	}

	if err := c.doJSONWithArgBody(ctx, "/files/upload_session/start", struct{}{}, body, &resp); err != nil {
		return "", fmt.Errorf("httpstore: session_start: %w", err)
	}

	return resp.SessionID, nil
}

type sessionCursor struct {
	SessionID string `json:"session_id"`
	Offset    int64  `json:"offset"`
}

// SessionAppend appends one chunk to an open upload session (§4.6
// "session_append_v2").
func (c *Client) SessionAppend(ctx context.Context, cur remotestore.Cursor, chunk io.Reader, size int64) error {
	body, err := io.ReadAll(io.LimitReader(chunk, size))
	if err != nil {
		return fmt.Errorf("httpstore: reading chunk at offset %d: %w", cur.Offset, err)
	}

	arg := sessionCursor{SessionID: cur.SessionID, Offset: cur.Offset}
	if err := c.doJSONWithArgBody(ctx, "/files/upload_session/append_v2", arg, body, nil); err != nil {
		return fmt.Errorf("httpstore: session_append at offset %d: %w", cur.Offset, err)
	}

	return nil
}

type sessionFinishArg struct {
	Cursor sessionCursor           `json:"cursor"`
	Commit remotestore.CommitInfo `json:"commit"`
}

// SessionFinish closes an upload session with the final chunk and commit
// info (§4.6 "session_finish").
func (c *Client) SessionFinish(
	ctx context.Context, cur remotestore.Cursor, lastChunk io.Reader, size int64, commit remotestore.CommitInfo,
) (*remotestore.Entry, error) {
	body, err := io.ReadAll(io.LimitReader(lastChunk, size))
	if err != nil {
		return nil, fmt.Errorf("httpstore: reading final chunk: %w", err)
	}

	arg := sessionFinishArg{Cursor: sessionCursor{SessionID: cur.SessionID, Offset: cur.Offset}, Commit: commit}

	var resp wireEntry
	if err := c.doJSONWithArgBody(ctx, "/files/upload_session/finish", arg, body, &resp); err != nil {
		return nil, fmt.Errorf("httpstore: session_finish for %s: %w", commit.Path, err)
	}

	entry := resp.toEntry()

	return &entry, nil
}

// DownloadTo streams the remote file at path into w.
func (c *Client) DownloadTo(ctx context.Context, path string, w io.Writer) error {
	resp, err := c.doRetry(ctx, "POST", "/files/download", mustJSON(statRequest{Path: path}), "")
	if err != nil {
		return fmt.Errorf("httpstore: download %s: %w", path, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("httpstore: streaming download of %s: %w", path, err)
	}

	return nil
}

// CreateFolder creates a folder at path.
func (c *Client) CreateFolder(ctx context.Context, path string) error {
	if err := c.doJSON(ctx, "POST", "/files/create_folder_v2", statRequest{Path: path}, nil); err != nil {
		return fmt.Errorf("httpstore: create_folder %s: %w", path, err)
	}

	return nil
}

type deleteBatchRequest struct {
	Entries []statRequest `json:"entries"`
}

// DeleteBatch queues an asynchronous batch delete (§4.6 "Delete-Remote").
func (c *Client) DeleteBatch(ctx context.Context, paths []string) (string, error) {
	req := deleteBatchRequest{Entries: make([]statRequest, len(paths))}
	for i, p := range paths {
		req.Entries[i] = statRequest{Path: p}
	}

	var resp struct {
		AsyncJobID string `json:"async_job_id"`
	}

	if err := c.doJSON(ctx, "POST", "/files/delete_batch", req, &resp); err != nil {
		return "", fmt.Errorf("httpstore: delete_batch: %w", err)
	}

	return resp.AsyncJobID, nil
}

type jobIDRequest struct {
	AsyncJobID string `json:"async_job_id"`
}

// DeleteBatchCheck polls an async delete-batch job for completion.
func (c *Client) DeleteBatchCheck(ctx context.Context, jobID string) (*remotestore.BatchCheckResult, error) {
	var resp struct {
		Tag string `json:"\".tag\""`
	}

	if err := c.doJSON(ctx, "POST", "/files/delete_batch/check", jobIDRequest{AsyncJobID: jobID}, &resp); err != nil {
		return nil, fmt.Errorf("httpstore: delete_batch_check %s: %w", jobID, err)
	}

	return &remotestore.BatchCheckResult{Complete: resp.Tag == "complete"}, nil
}
