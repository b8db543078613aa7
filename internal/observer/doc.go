// Package observer provides file-based trial sinks.
//
// FileSink gives every trial its own directory beneath a run directory:
//
//	<root>/<trial-id>/config.json    merged configuration (canonical JSON)
//	<root>/<trial-id>/records.json   recorded key/value entries
//	<root>/<trial-id>/run.json       final status, written by Finalize
//
// Multi fans one trial out to several sinks, e.g. a FileSink and the
// SQLite store.
package observer
