// Package config implements TOML configuration loading, defaulting, and
// validation for dropsync's single-drive setup, scaled down from the
// teacher's multi-drive/multi-profile config package to the handful of
// keys sync-algorithm.md §6 recognizes.
package config

import "github.com/arnecode/dropsync/internal/pathutil"

// Config is the top-level configuration structure (§6 "Configuration keys").
type Config struct {
	// AppKey, AppSecret, and RefreshToken are forwarded to the
	// TokenProvider that mints bearer tokens for the RemoteStore.
	AppKey       string `toml:"app_key"`
	AppSecret    string `toml:"app_secret"`
	RefreshToken string `toml:"refresh_token"`

	// LocalFolder is an absolute local path, auto-created if absent.
	LocalFolder string `toml:"local_folder"`

	// DropboxFolder is a POSIX path in the remote namespace; "" or "/"
	// means the user's root.
	DropboxFolder string `toml:"dropbox_folder"`

	// IntervalSeconds is the inter-pass sleep; must be >= 1.
	IntervalSeconds int `toml:"interval_seconds"`

	// Debug: when true, upward (local→remote) operations are classified
	// and logged but not executed; downward operations always execute.
	Debug bool `toml:"debug"`

	// RPCTimeoutSeconds is validated (>= 1, default 60) and reported by
	// `config show`; no RemoteStore call is bounded by it.
	RPCTimeoutSeconds int `toml:"rpc_timeout_seconds"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// RemoteRootPath renders DropboxFolder in the form pathutil.ToRemotePath
// and pathutil.RelativeTo expect: both already trim leading/trailing
// slashes, so "" and "/" are equivalent to the account root.
func (c *Config) RemoteRootPath() string {
	return pathutil.Clean(c.DropboxFolder)
}
