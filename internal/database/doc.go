// Package database stores the media index of one library in SQLite.
//
// The database lives at <library>/_index/media.db. Paths are stored relative
// to the library root and converted to absolute paths at the API boundary,
// so a library can be moved or mounted elsewhere without reindexing.
//
// The connection registers a REGEXP function, enabling regular expression
// selectors in SQL. WAL mode lets readers run during an update.
package database
