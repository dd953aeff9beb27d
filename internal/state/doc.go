// Package state holds the data shared between the background poller,
// dispatcher continuations and the TUI.
//
// Writers:
//
//	poller          -> UpdateStocks
//	quote callback  -> SetQuote
//	column callback -> SetColumns
//	delete callback -> RemoveStock
//
// The UI only reads, through Snapshot, which returns copies of the slices
// and maps so rendering never observes a partial update.
//
// UpdateStocks with a non-nil error keeps the previous list and increments
// ConsecutiveFailures; two or more failures in a row mark the snapshot
// offline. The next successful update resets the counter.
package state
