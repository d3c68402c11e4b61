package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arnecode/dropsync/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or scaffold configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(mustCLIContext(cmd.Context()))
		},
	}
}

// configShowJSON mirrors the text output of `config show`: credential
// values are never echoed, only whether they are present.
type configShowJSON struct {
	AppKeySet        bool   `json:"app_key_set"`
	AppSecretSet     bool   `json:"app_secret_set"`
	RefreshTokenSet  bool   `json:"refresh_token_set"`
	LocalFolder      string `json:"local_folder"`
	DropboxFolder    string `json:"dropbox_folder"`
	IntervalSeconds  int    `json:"interval_seconds"`
	Debug            bool   `json:"debug"`
	RPCTimeoutSecs   int    `json:"rpc_timeout_seconds"`
	LogLevel         string `json:"log_level"`
	LogFormat        string `json:"log_format"`
}

func runConfigShow(cc *CLIContext) error {
	cfg := cc.Cfg

	if cc.Flags.JSON {
		printJSON(configShowJSON{
			AppKeySet:       cfg.AppKey != "",
			AppSecretSet:    cfg.AppSecret != "",
			RefreshTokenSet: cfg.RefreshToken != "",
			LocalFolder:     cfg.LocalFolder,
			DropboxFolder:   displayRemoteFolder(cfg.DropboxFolder),
			IntervalSeconds: cfg.IntervalSeconds,
			Debug:           cfg.Debug,
			RPCTimeoutSecs:  cfg.RPCTimeoutSeconds,
			LogLevel:        cfg.LogLevel,
			LogFormat:       cfg.LogFormat,
		})

		return nil
	}

	fmt.Printf("app_key            = %s\n", redactedOrSet(cfg.AppKey))
	fmt.Printf("app_secret         = %s\n", redactedOrSet(cfg.AppSecret))
	fmt.Printf("refresh_token      = %s\n", redactedOrSet(cfg.RefreshToken))
	fmt.Printf("local_folder       = %s\n", cfg.LocalFolder)
	fmt.Printf("dropbox_folder     = %s\n", displayRemoteFolder(cfg.DropboxFolder))
	fmt.Printf("interval_seconds   = %d\n", cfg.IntervalSeconds)
	fmt.Printf("debug              = %t\n", cfg.Debug)
	fmt.Printf("rpc_timeout_seconds = %d\n", cfg.RPCTimeoutSeconds)
	fmt.Printf("log_level          = %s\n", cfg.LogLevel)
	fmt.Printf("log_format         = %s\n", cfg.LogFormat)

	return nil
}

// redactedOrSet never echoes a credential value back to the terminal; it
// only confirms whether one is present.
func redactedOrSet(value string) string {
	if value == "" {
		return "(not set)"
	}

	return "(set)"
}

const configFileMode = 0o600

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "init",
		Short:       "Write a starter config file",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := flagConfigPath
			if path == "" {
				path = config.DefaultConfigPath()
			}

			return runConfigInit(path)
		},
	}
}

const starterConfigTemplate = `# dropsync configuration. See "dropsync config show" for the effective
# values once this file is filled in.

app_key = ""
app_secret = ""
refresh_token = ""

local_folder = ""
dropbox_folder = ""

interval_seconds = 300
debug = false
`

func runConfigInit(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing config file at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(starterConfigTemplate), configFileMode); err != nil {
		return fmt.Errorf("writing starter config: %w", err)
	}

	fmt.Printf("Wrote starter config to %s\n", path)

	return nil
}
