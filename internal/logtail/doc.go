// Package logtail reads the tail of pbdash's own log file for the logs view.
//
// Read keeps a ring buffer of the last maxLines lines, so memory stays
// bounded by the window rather than the file size:
//
//	lines, err := logtail.Read(cfg.Log.File, 400)
//
// Lines are written by the zap console encoder as tab separated columns:
//
//	<time> <LEVEL> <caller> <message> <json fields>
//
// Parse splits one such line into an Entry. Lines that do not start with a
// level column, such as stack trace continuations, come back with only Raw
// set. FilterLevel drops entries below a minimum level and carries the
// verdict over to their continuation lines.
package logtail
