// Package app is the composition root for pbdash.
//
// Run builds the components in dependency order and hands them to the TUI:
//
//	config.Load()          TOML file + PBDASH_* env
//	logging.Setup()        zap logger writing to a rotated file
//	notify.NewController() single flash slot with auto-dismiss
//	dispatch.New()         HTTP exchanges, routes outcomes to the controller
//	query.New()            typed API calls on top of the dispatcher
//	gate.SessionStore      dashboard throttle for this login session
//	StartPoller()          background stock list refresh
//	ui.Run()               blocks until the user quits
//
// # Polling
//
// The poller refreshes the saved stock list on a fixed interval. Each
// refresh waits for the dispatcher to resolve the request so failures can be
// counted. After a failure the next wait doubles per consecutive failure, up
// to maxBackoff, and a success resets it:
//
//	failures  wait (2s base)
//	0         2s
//	1         4s
//	2         8s
//	3         16s
//	4+        30s
//
// Failures are also surfaced to the user by the dispatcher as danger
// notifications, so the poller only logs them.
//
// # Shutdown
//
// When the TUI exits, Run stops the poller and waits for in-flight requests
// to finish their transport phase before returning.
package app
