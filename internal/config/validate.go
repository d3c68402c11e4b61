package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

const minIntervalSeconds = 1

// Validate checks every configuration value and returns all errors found
// joined together, so a user sees every problem in one pass rather than
// fixing them one at a time (mirrors the teacher's validate.go accumulation).
func Validate(cfg *Config) error {
	var errs []error

	if cfg.AppKey == "" {
		errs = append(errs, errors.New("app_key: must not be empty"))
	}

	if cfg.AppSecret == "" {
		errs = append(errs, errors.New("app_secret: must not be empty"))
	}

	if cfg.RefreshToken == "" {
		errs = append(errs, errors.New("refresh_token: must not be empty"))
	}

	if cfg.LocalFolder == "" {
		errs = append(errs, errors.New("local_folder: must not be empty"))
	} else if !filepath.IsAbs(cfg.LocalFolder) {
		errs = append(errs, fmt.Errorf("local_folder: must be absolute, got %q", cfg.LocalFolder))
	}

	if cfg.IntervalSeconds < minIntervalSeconds {
		errs = append(errs, fmt.Errorf("interval_seconds: must be >= %d, got %d",
			minIntervalSeconds, cfg.IntervalSeconds))
	}

	if cfg.RPCTimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("rpc_timeout_seconds: must be >= 1, got %d", cfg.RPCTimeoutSeconds))
	}

	errs = append(errs, validateLogLevel(cfg.LogLevel)...)
	errs = append(errs, validateLogFormat(cfg.LogFormat)...)

	return errors.Join(errs...)
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("log_format: must be one of auto, text, json; got %q", format)}
	}

	return nil
}
