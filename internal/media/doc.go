// Package media defines indexed items and the operations performed on
// groups of them.
//
// An Item is one indexed file. A Group is an ordered list of items, either
// a needle followed by its matches or a reconciled ordering. A GroupList is
// the result of a query.
//
// Properties (see ParseProperty) are a closed set of typed accessors used
// for filtering, sorting and grouping. FileExtractor turns a file on disk
// into an Item with its fingerprint.
package media
