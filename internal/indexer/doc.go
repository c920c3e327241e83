// Package indexer keeps the index of a library in sync with the disk.
//
// Update drives a scanner over the library, seeding its skip set with every
// indexed path. Files found on disk are drained from the skip set, new files
// are extracted and written in batches, and whatever is left in the skip set
// no longer exists and is removed from the index.
//
// The indexer also owns the in-memory search engine, built lazily from the
// database and kept current by Update, resolves selectors into groups of
// items, and can watch the library with fsnotify, running Update after a
// quiet period.
package indexer
