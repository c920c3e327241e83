/*
Package workers sizes worker pools.

Counts are derived from runtime.GOMAXPROCS rather than runtime.NumCPU so
container CPU limits are respected:

	n := workers.ForCPU(8)   // decode / hash work, at most 8
	n := workers.ForIO(16)   // file reads
	n := workers.Resolve(0)  // 0 means "pick for me"

Setting INDEX_THREADS pins the count for every helper, still subject to the
caller's cap.
*/
package workers
