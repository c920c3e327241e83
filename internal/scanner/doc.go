/*
Package scanner discovers media files under a directory and feeds them
through an Extractor on a bounded worker pool.

A Scanner is used in three steps:

	s := scanner.New(params, extractor, errs)
	s.OnMediaProcessed(func(m media.Item) { ... })
	s.Scan(root, skip)   // stage only, nothing runs yet
	stats := s.Finish()  // start if needed and wait

Scan only stages work; Start launches it. A scanner that is staged and
then dropped never touches the disk.

The skip set holds paths that are already indexed. Every one of them that is
found on disk is removed from the set and not processed again, so after
Finish the set contains exactly the known paths that no longer exist.

Per-file problems are recorded in the ErrorRecord rather than failing the
scan. Truncated images that could be repaired are indexed and tagged.
*/
package scanner
