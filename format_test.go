package main

import (
	"bytes"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTime(t *testing.T) {
	now := time.Now()
	sameYear := time.Date(now.Year(), time.March, 15, 10, 30, 0, 0, time.UTC)
	diffYear := time.Date(2020, time.December, 25, 8, 0, 0, 0, time.UTC)

	t.Run("same year", func(t *testing.T) {
		result := formatTime(sameYear)
		assert.Contains(t, result, "Mar")
		assert.Contains(t, result, "15")
		assert.Contains(t, result, "10:30")
	})

	t.Run("different year", func(t *testing.T) {
		result := formatTime(diffYear)
		assert.Contains(t, result, "Dec")
		assert.Contains(t, result, "25")
		assert.Contains(t, result, "2020")
	})
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	headers := []string{"WHEN", "PATH", "REASON"}
	rows := [][]string{
		{"Jan  2 15:04", "notes/a.txt", "remote_newer"},
		{"Jan  3 09:00", "notes/b.txt", "local_newer"},
	}

	printTable(&buf, headers, rows)
	output := buf.String()

	assert.Contains(t, output, "WHEN")
	assert.Contains(t, output, "PATH")
	assert.Contains(t, output, "notes/a.txt")
	assert.Contains(t, output, "remote_newer")
}

func TestStatusf(t *testing.T) {
	t.Run("quiet suppresses output", func(t *testing.T) {
		oldStderr := os.Stderr
		r, w, err := os.Pipe()
		require.NoError(t, err)
		os.Stderr = w
		t.Cleanup(func() { os.Stderr = oldStderr })

		statusf(true, "should not appear %s", "test")
		w.Close()

		out, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Empty(t, string(out))
	})

	t.Run("normal mode writes to stderr", func(t *testing.T) {
		oldStderr := os.Stderr
		r, w, err := os.Pipe()
		require.NoError(t, err)
		os.Stderr = w
		t.Cleanup(func() { os.Stderr = oldStderr })

		statusf(false, "hello %s", "world")
		w.Close()

		out, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "hello world", string(out))
	})
}

func TestCLIContext_Statusf_DoesNotPanic(t *testing.T) {
	cc := &CLIContext{Flags: RootFlags{Quiet: true}}
	cc.Statusf("should not appear: %d\n", 42)

	cc2 := &CLIContext{Flags: RootFlags{Quiet: false}}
	cc2.Statusf("status message: %s\n", "ok")
}
