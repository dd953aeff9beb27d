// Package export renders query results as CSV documents.
//
// Layout of a plain export:
//
//	Title,,          <- title padded to the column count
//	                 <- blank separator
//	stamp,start,end  <- header
//	2020-01-01,...   <- one row per record
//
// The report variant inserts the JSON encoded report and config objects as
// two single-cell rows between the blank separator and the header.
//
// Exporter.Save writes the document atomically into the configured export
// directory.
package export
