package main

import (
	"bytes"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnecode/dropsync/internal/audit"
)

func TestNewConflictsCmd_Structure(t *testing.T) {
	cmd := newConflictsCmd()
	assert.Equal(t, "conflicts", cmd.Name())
	assert.NotNil(t, cmd.RunE)

	flag := cmd.Flags().Lookup("limit")
	assert.NotNil(t, flag)
	assert.Equal(t, "20", flag.DefValue)
}

func TestPrintConflictsTable(t *testing.T) {
	conflicts := []audit.ConflictRecord{
		{
			ID:         "1234567890abcdef",
			RunID:      "abcdef1234567890",
			Path:       "notes/a.txt",
			Reason:     "remote_newer",
			DetectedAt: time.Date(2026, time.January, 2, 15, 4, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	printTable(&buf, []string{"DETECTED", "PATH", "REASON", "RUN"}, [][]string{
		{formatTime(conflicts[0].DetectedAt), conflicts[0].Path, conflicts[0].Reason, conflicts[0].RunID[:conflictIDPrefixLen]},
	})

	out := buf.String()
	assert.Contains(t, out, "notes/a.txt")
	assert.Contains(t, out, "remote_newer")
	assert.Contains(t, out, "abcdef12")
	assert.NotContains(t, out, "abcdef1234567890")
}

func TestConflictIDPrefixLen(t *testing.T) {
	assert.Equal(t, 8, conflictIDPrefixLen)
}

func TestPrintConflictsTable_TruncatesRunID(t *testing.T) {
	conflicts := []audit.ConflictRecord{
		{RunID: "abcdef1234567890", Path: "notes/a.txt", Reason: "remote_newer"},
	}

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = oldStdout })

	printConflictsTable(conflicts)
	w.Close()

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Contains(t, string(out), "abcdef12")
	assert.NotContains(t, string(out), "abcdef1234567890")
}
