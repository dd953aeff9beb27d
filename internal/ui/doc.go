// Package ui provides the terminal user interface for pbdash.
//
// The UI is a Bubble Tea program. Model holds all view state and is only
// touched from the program loop:
//
//   - Dispatcher continuations arrive as runMsg and run inside Update
//   - notify.Controller changes arrive as flashMsg and trigger a redraw
//   - state.Store snapshots arrive on every tick as snapshotMsg
//
// # Views
//
//   - Stocks: saved stocks in a table with an optional quote sidebar
//   - Logs: the tail of the pbdash log file with level filtering
//   - Dashboard: a market overview shown at startup when the gate is due
//
// # Key Bindings
//
//   - enter: Fetch a quote for the selected stock
//   - c: Fetch price history, x: Export it as CSV
//   - d twice: Delete the selected stock
//   - s: Toggle the sidebar, clearing any flash
//   - /: Filter stocks by code or name
//   - esc: Dismiss the flash and return to stocks
//   - e or Ctrl+C: Exit
package ui
