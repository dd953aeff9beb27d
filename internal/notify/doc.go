// Package notify implements the single-slot flash message used to surface
// request outcomes to the user.
//
// The Controller is a two-state machine:
//
//	        Show(text)               timer fires / Clear()
//	Idle ───────────────> Visible ───────────────────────> Idle
//	                      │    ^
//	                      └────┘ Show(text) replaces content, re-arms timer
//
// At most one dismiss timer is armed. Every Show bumps a generation counter so
// a timer that already fired for a superseded message cannot dismiss the new
// one. Show with empty text is the same as Clear, and Clear while idle does
// nothing.
//
// Rendering is not part of this package. A presentation adapter calls
// Subscribe and redraws on every change; the TUI forwards these changes into
// its Bubble Tea event loop.
package notify
