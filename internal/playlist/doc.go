// Package playlist reads and writes selections as WPL (Windows Media
// Player) playlists, so an ordering produced by cbird can be opened in a
// media player and read back as a selection.
//
// Entries are written relative to the playlist file. When reading, Windows
// separators are accepted and entries are resolved relative to the playlist
// first, then by file name in the library root.
package playlist
