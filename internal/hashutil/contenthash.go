// Package hashutil implements the Dropbox-style content hash
// (sync-algorithm §4.1): the file is split into fixed 4 MiB blocks, each
// block is SHA-256'd, the raw digests are concatenated in order, and the
// concatenation is SHA-256'd again. Streaming throughout — peak memory is
// one block regardless of file size.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// BlockSize is the Dropbox content-hash block size: 4 MiB.
const BlockSize = 4 * 1024 * 1024

// EmptyHash is the content hash of a zero-length file: SHA-256 of the
// empty string, hex-encoded. Every empty file, regardless of name or
// location, hashes to this constant (§4.1).
const EmptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// Hasher accumulates the per-block SHA-256 digests and produces the final
// content hash on Sum. It is an io.Writer so it composes with io.Copy,
// io.TeeReader, and io.MultiWriter the way the teacher's hashers do.
type Hasher struct {
	block    hash.Hash
	blockLen int
	digests  []byte // concatenated 32-byte block digests, in order
}

// NewHasher returns a ready-to-write Hasher.
func NewHasher() *Hasher {
	return &Hasher{block: sha256.New()}
}

// Write implements io.Writer, splitting the stream into BlockSize blocks
// and finalizing each block's digest as it fills.
func (h *Hasher) Write(p []byte) (int, error) {
	total := len(p)

	for len(p) > 0 {
		room := BlockSize - h.blockLen
		chunk := p
		if len(chunk) > room {
			chunk = chunk[:room]
		}

		n, err := h.block.Write(chunk)
		if err != nil {
			return 0, err
		}

		h.blockLen += n
		p = p[n:]

		if h.blockLen == BlockSize {
			h.flushBlock()
		}
	}

	return total, nil
}

// flushBlock finalizes the current block's SHA-256 digest, appends it to
// the running digest list, and resets the block hasher for the next block.
func (h *Hasher) flushBlock() {
	h.digests = append(h.digests, h.block.Sum(nil)...)
	h.block = sha256.New()
	h.blockLen = 0
}

// Sum finalizes the hash and returns the lowercase hex digest. Safe to
// call exactly once after all bytes have been written.
//
// A zero-length input never calls Write, so no block is ever flushed and
// digests stays empty; SHA-256 of an empty digest list is exactly the
// fixed EmptyHash constant, matching the real Dropbox hash for an empty
// file (zero blocks, not one empty block).
func (h *Hasher) Sum() string {
	if h.blockLen > 0 {
		h.flushBlock()
	}

	final := sha256.Sum256(h.digests)

	return hex.EncodeToString(final[:])
}

// ComputeFile streams fsPath through a Hasher and returns its content hash.
// The Hasher keeps no block buffer, only a 32-byte digest per completed
// block, so memory is bounded by io.Copy's internal buffer plus those
// digests.
func ComputeFile(fsPath string) (string, error) {
	f, err := os.Open(fsPath)
	if err != nil {
		return "", fmt.Errorf("hashutil: opening %s: %w", fsPath, err)
	}
	defer f.Close()

	return ComputeReader(f)
}

// ComputeReader streams r through a Hasher and returns its content hash.
func ComputeReader(r io.Reader) (string, error) {
	h := NewHasher()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashutil: reading content: %w", err)
	}

	return h.Sum(), nil
}
