// Package httpstore is the default RemoteStore implementation: a JSON/RPC
// HTTP client speaking the Dropbox-style wire shape described in
// sync-algorithm.md §6. It is intentionally kept outside the
// reconciliation core (spec.md §1 scopes the HTTP/RPC transport as an
// external collaborator) but is grounded on the teacher's
// internal/graph/client.go retry-and-classify shape so the dependency
// surface (bearer auth, exponential backoff, sentinel error
// classification) is exercised end to end.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/arnecode/dropsync/internal/remotestore"
)

// Retry policy per spec.md §7 "TransientNetwork": up to 3 retries after
// the first attempt, backing off 1s, 2s, 4s.
const (
	maxRetries    = 3
	baseBackoff   = 1 * time.Second
	backoffFactor = 2.0
)

// DefaultBaseURL is a placeholder production endpoint; real deployments
// override it via Client construction.
const DefaultBaseURL = "https://content.dropboxapi.example.com/2"

// DefaultTokenURL is the OAuth2 refresh-token endpoint paired with
// DefaultBaseURL, for internal/auth.Credentials.TokenURL.
const DefaultTokenURL = "https://api.dropboxapi.example.com/oauth2/token"

// TokenProvider yields a valid bearer token, refreshing as needed. This
// is the exact shape of spec.md §1's "TokenProvider" external
// collaborator — httpstore depends only on this interface, never on a
// concrete OAuth2 type.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// DefaultRequestTimeout is the default per-call RPC timeout value (60s).
// Client does not apply it: no request it sends carries a timeout or
// deadline of its own.
const DefaultRequestTimeout = 60 * time.Second

// Client implements remotestore.RemoteStore over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenProvider
	logger     *slog.Logger
	userAgent  string

	sleepFunc func(ctx context.Context, d time.Duration) error
}

// New creates an httpstore Client. httpClient's Timeout should be 0 (or
// large) for upload/download calls since those can run far longer than a
// single metadata RPC; any per-RPC bound then comes only from the
// context the caller passes, matching the teacher's split between its "meta" and
// "transfer" HTTP clients (root.go's defaultHTTPClient/transferHTTPClient).
func New(baseURL string, httpClient *http.Client, token TokenProvider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		userAgent:  "dropsync/0.1",
		sleepFunc:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// calcBackoff returns the backoff duration for the given zero-based
// retry attempt: 1s, 2s, 4s.
func calcBackoff(attempt int) time.Duration {
	return time.Duration(float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt)))
}

// doJSON performs an authenticated JSON RPC call with retry-on-transient
// semantics and decodes the response body into out (if non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var bodyBytes []byte

	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("httpstore: encoding request: %w", err)
		}

		bodyBytes = b
	}

	resp, err := c.doRetry(ctx, method, path, bodyBytes, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("httpstore: decoding response from %s: %w", path, err)
	}

	return nil
}

// doRetry is the shared retry loop, grounded on the teacher's
// internal/graph/client.go doRetry but tuned to spec.md §7's 3-retry
// (4 attempts in all), 1-2-4s backoff contract.
func (c *Client) doRetry(ctx context.Context, method, path string, body []byte, contentType string) (*http.Response, error) {
	var attempt int

	for {
		resp, err := c.doOnce(ctx, method, path, body, contentType)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("httpstore: request canceled: %w", ctx.Err())
			}

			if attempt < maxRetries {
				if sleepErr := c.retrySleep(ctx, method, path, attempt, err); sleepErr != nil {
					return nil, sleepErr
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("httpstore: %s %s: %w: %w", method, path, remotestore.ErrConnectionFail, err)
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			return resp, nil
		}

		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if remotestore.IsRetryable(resp.StatusCode) && attempt < maxRetries {
			if sleepErr := c.retrySleep(ctx, method, path, attempt, fmt.Errorf("HTTP %d", resp.StatusCode)); sleepErr != nil {
				return nil, sleepErr
			}

			attempt++

			continue
		}

		return nil, &remotestore.RemoteError{
			StatusCode: resp.StatusCode,
			Message:    string(errBody),
			Err:        remotestore.ClassifyStatus(resp.StatusCode),
		}
	}
}

func (c *Client) retrySleep(ctx context.Context, method, path string, attempt int, cause error) error {
	backoff := calcBackoff(attempt)

	c.logger.Warn("httpstore: retrying after transient error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("attempt", attempt+1),
		slog.Duration("backoff", backoff),
		slog.String("error", cause.Error()),
	)

	if err := c.sleepFunc(ctx, backoff); err != nil {
		return fmt.Errorf("httpstore: request canceled during backoff: %w", err)
	}

	return nil
}

// doJSONWithArgBody performs the Dropbox-API convention used by content
// endpoints (upload, upload_session/*): the call arguments travel in a
// header as JSON while the request body is raw bytes.
func (c *Client) doJSONWithArgBody(ctx context.Context, path string, arg any, body []byte, out any) error {
	argJSON, err := json.Marshal(arg)
	if err != nil {
		return fmt.Errorf("httpstore: encoding call arguments: %w", err)
	}

	resp, err := c.doRetryWithArgHeader(ctx, path, argJSON, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("httpstore: decoding response from %s: %w", path, err)
	}

	return nil
}

// doRetryWithArgHeader is doRetry specialized for the content-endpoint
// calling convention (arguments in a header, raw bytes as the body).
func (c *Client) doRetryWithArgHeader(ctx context.Context, path string, argHeader, body []byte) (*http.Response, error) {
	var attempt int

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("httpstore: building request: %w", err)
		}

		tok, err := c.token.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", remotestore.ErrAuthExpired, err)
		}

		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Content-Type", "application/octet-stream")
		req.Header.Set("Dropbox-API-Arg", string(argHeader))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("httpstore: request canceled: %w", ctx.Err())
			}

			if attempt < maxRetries {
				if sleepErr := c.retrySleep(ctx, http.MethodPost, path, attempt, err); sleepErr != nil {
					return nil, sleepErr
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("httpstore: %s: %w: %w", path, remotestore.ErrConnectionFail, err)
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			return resp, nil
		}

		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if remotestore.IsRetryable(resp.StatusCode) && attempt < maxRetries {
			if sleepErr := c.retrySleep(ctx, http.MethodPost, path, attempt, fmt.Errorf("HTTP %d", resp.StatusCode)); sleepErr != nil {
				return nil, sleepErr
			}

			attempt++

			continue
		}

		return nil, &remotestore.RemoteError{
			StatusCode: resp.StatusCode,
			Message:    string(errBody),
			Err:        remotestore.ClassifyStatus(resp.StatusCode),
		}
	}
}

// mustJSON marshals v, panicking only on a programmer error (a type that
// cannot be marshaled) — callers only ever pass fixed internal shapes.
func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("httpstore: BUG: marshaling %T: %v", v, err))
	}

	return b
}

func (c *Client) doOnce(ctx context.Context, method, path string, body []byte, contentType string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("httpstore: building request: %w", err)
	}

	tok, err := c.token.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", remotestore.ErrAuthExpired, err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", c.userAgent)

	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	return c.httpClient.Do(req) //nolint:bodyclose // caller closes on success path
}
