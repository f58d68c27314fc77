// Package storage keeps a history of review runs.
//
// Three backends share the [Store] interface: an in-process memory store
// (the default), SQLite through the CGO-free modernc driver, and
// PostgreSQL through lib/pq. The SQL backends create their schema on open.
package storage
