/*
Package filesystem wraps os.Stat, os.Open and os.ReadFile with retries for
NFS stale file handle errors (ESTALE). Libraries indexed by cbird often live
on network shares, and a handle can go stale while a long scan is running.

Only ESTALE is retried; every other error is returned immediately. Backoff
starts at InitialBackoff and doubles up to MaxBackoff.

	data, err := filesystem.ReadFileWithRetry(path, filesystem.DefaultRetryConfig())

Retry metrics are labelled with a volume name resolved by longest-prefix
match through a VolumeResolver, and reported through an Observer installed
with SetObserver.
*/
package filesystem
