package hashutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestEmptyFileHash(t *testing.T) {
	got, err := ComputeReader(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("ComputeReader: %v", err)
	}

	if got != EmptyHash {
		t.Errorf("empty hash = %s, want %s", got, EmptyHash)
	}
}

func TestSmallFileHash(t *testing.T) {
	data := []byte("hello")

	// Reference: single short block, SHA-256(SHA-256("hello")).
	block := sha256.Sum256(data)
	want := sha256.Sum256(block[:])
	wantHex := hex.EncodeToString(want[:])

	got, err := ComputeReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ComputeReader: %v", err)
	}

	if got != wantHex {
		t.Errorf("hash = %s, want %s", got, wantHex)
	}
}

func TestExactBlockBoundary(t *testing.T) {
	data := make([]byte, BlockSize) // exactly one full block, no trailing partial block

	block := sha256.Sum256(data)
	want := sha256.Sum256(block[:])
	wantHex := hex.EncodeToString(want[:])

	got, err := ComputeReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ComputeReader: %v", err)
	}

	if got != wantHex {
		t.Errorf("hash = %s, want %s", got, wantHex)
	}
}

func TestTwoBlocksWithRemainder(t *testing.T) {
	data := make([]byte, BlockSize+100)
	for i := range data {
		data[i] = byte(i)
	}

	b1 := sha256.Sum256(data[:BlockSize])
	b2 := sha256.Sum256(data[BlockSize:])

	concat := append(append([]byte{}, b1[:]...), b2[:]...)
	want := sha256.Sum256(concat)
	wantHex := hex.EncodeToString(want[:])

	got, err := ComputeReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ComputeReader: %v", err)
	}

	if got != wantHex {
		t.Errorf("hash = %s, want %s", got, wantHex)
	}
}

func TestComputeFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")

	if err := os.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ComputeFile(p)
	if err != nil {
		t.Fatalf("ComputeFile: %v", err)
	}

	want, _ := ComputeReader(bytes.NewReader([]byte("hello")))
	if got != want {
		t.Errorf("ComputeFile = %s, want %s", got, want)
	}
}

func TestComputeFileMissing(t *testing.T) {
	if _, err := ComputeFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
