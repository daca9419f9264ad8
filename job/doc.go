// Package job defines the entities managed by the queue: the Job
// itself, its terminal DLQEntry form, live Worker registrations, and
// config rows.
//
// Job values are snapshots returned by the store. They are not
// intended to be constructed and persisted directly by user code;
// state transitions happen through the store's claim primitive or
// through the queue package's outcome handlers.
package job
