// Package state persists moversync's runtime data in SQLite: settings edited at
// runtime, last-sync and last-build markers, exclusion build history, cached
// manager tags, and the latest mover statistics snapshot.
//
// The exclusion file itself is the authoritative output; this database only
// records what happened around it. Schema changes bump schemaVersion in
// schema.go; users delete state.db to adopt a new schema.
package state
