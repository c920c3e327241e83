// Package search is the in-memory similarity search engine.
//
// The engine holds the fingerprints of every indexed item and answers two
// kinds of query: Query finds the matches of a single needle, Similar runs
// Query for every item and post-processes the result into groups. Both are
// safe for concurrent use and take Params by value.
package search
