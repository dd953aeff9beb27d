// Package config loads pbdash configuration.
//
// # Resolution
//
//  1. The path passed to Load, when non-empty
//  2. PBDASH_CONFIG
//  3. ~/.config/pbdash/config.toml
//
// A missing file is not an error; defaults apply. Every key can be
// overridden from the environment with the PBDASH_ prefix, dots replaced by
// underscores (PBDASH_NOTIFY_DURATION_MS, PBDASH_LOG_LEVEL).
//
// # Example
//
//	api_url = "http://127.0.0.1:8000"
//	request_timeout_seconds = 10
//	rate_limit = 0            # requests per second, 0 disables
//
//	[notify]
//	duration_ms = 3000
//	error_field = "message"   # or "errmsg" for legacy servers
//
//	[dashboard]
//	min_interval_seconds = 21600
//	codes = ["005930", "000660"]
//
//	[export]
//	dir = "~/Downloads"
//
//	[session]
//	dir = ""                  # defaults to $XDG_RUNTIME_DIR/pbdash
//
//	[log]
//	level = "info"
//	file = "~/.local/share/pbdash/pbdash.log"
//	max_size_mb = 10
//	max_backups = 3
//	max_age_days = 14
//
// Paths accept a leading ~ and are made absolute.
package config
