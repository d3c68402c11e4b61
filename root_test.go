package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnecode/dropsync/internal/config"
)

func TestBuildLogger_Default(t *testing.T) {
	logger := buildLogger(nil)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
}

func TestBuildLogger_ConfigDebug(t *testing.T) {
	cfg := &config.Config{LogLevel: "debug"}

	logger := buildLogger(cfg)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_ConfigInfo(t *testing.T) {
	cfg := &config.Config{LogLevel: "info"}

	logger := buildLogger(cfg)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_FlagsOverrideConfig(t *testing.T) {
	old := flagDebug
	t.Cleanup(func() { flagDebug = old })

	flagDebug = true

	cfg := &config.Config{LogLevel: "error"}
	logger := buildLogger(cfg)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestCliContextFrom_NilContext(t *testing.T) {
	cc := cliContextFrom(context.Background())
	assert.Nil(t, cc)
}

func TestCliContextFrom_WithCLIContext(t *testing.T) {
	expected := &CLIContext{
		Cfg:    &config.Config{LocalFolder: "/test"},
		Logger: slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	ctx := context.WithValue(context.Background(), cliContextKey{}, expected)

	cc := cliContextFrom(ctx)
	assert.Equal(t, expected, cc)
	assert.Equal(t, "/test", cc.Cfg.LocalFolder)
}

func TestMustCLIContext_Panics(t *testing.T) {
	assert.Panics(t, func() { mustCLIContext(context.Background()) })
}

func TestMustCLIContext_Returns(t *testing.T) {
	expected := &CLIContext{Cfg: &config.Config{LocalFolder: "/must-test"}}
	ctx := context.WithValue(context.Background(), cliContextKey{}, expected)

	cc := mustCLIContext(ctx)
	assert.Equal(t, expected, cc)
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	expected := []string{"sync", "status", "conflicts", "config"}
	for _, name := range expected {
		_, _, err := cmd.Find([]string{name})
		assert.NoError(t, err, "expected subcommand %q not found", name)
	}
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"config", "json", "verbose", "debug", "quiet"} {
		flag := cmd.PersistentFlags().Lookup(name)
		assert.NotNil(t, flag, "expected persistent flag %q not found", name)
	}
}

func TestNewRootCmd_MutualExclusivity(t *testing.T) {
	pairs := [][]string{
		{"--verbose", "--debug"},
		{"--verbose", "--quiet"},
		{"--debug", "--quiet"},
	}

	for _, flags := range pairs {
		t.Run(flags[0]+"_"+flags[1], func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetArgs(append(flags, "config", "init", "--config", filepath.Join(t.TempDir(), "unused.toml")))

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "none of the others can be")
		})
	}
}

func TestNewRootCmd_ConfigInitSkipsConfigLoad(t *testing.T) {
	cmd := newRootCmd()

	sub, _, err := cmd.Find([]string{"config", "init"})
	require.NoError(t, err)

	assert.Equal(t, "true", sub.Annotations[skipConfigAnnotation])
}

func TestNewRootCmd_SyncReloadSkipsConfigLoad(t *testing.T) {
	cmd := newRootCmd()

	sub, _, err := cmd.Find([]string{"sync", "reload"})
	require.NoError(t, err)

	assert.Equal(t, "true", sub.Annotations[skipConfigAnnotation])
}

func TestLoadConfig_MissingFile(t *testing.T) {
	old := flagConfigPath
	t.Cleanup(func() { flagConfigPath = old })

	flagConfigPath = filepath.Join(t.TempDir(), "nonexistent.toml")

	cmd := newRootCmd()
	cmd.SetContext(context.Background())

	err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestLoadConfig_Populates(t *testing.T) {
	old := flagConfigPath
	t.Cleanup(func() { flagConfigPath = old })

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
app_key = "key"
app_secret = "secret"
refresh_token = "refresh"
local_folder = "`+filepath.Join(dir, "sync")+`"
dropbox_folder = "/Apps/dropsync"
interval_seconds = 120
`), 0o600))

	flagConfigPath = cfgPath

	cmd := newRootCmd()
	cmd.SetContext(context.Background())

	require.NoError(t, loadConfig(cmd))

	cc := cliContextFrom(cmd.Context())
	require.NotNil(t, cc)
	assert.Equal(t, "/Apps/dropsync", cc.Cfg.DropboxFolder)
	assert.Equal(t, 120, cc.Cfg.IntervalSeconds)
}
